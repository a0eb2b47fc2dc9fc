package validator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/melody/internal/pkg/otp"
)

const (
	passwordMinLen = 6
	// bcrypt input limit.
	passwordMaxLen = 72
)

var ErrTranslatorNotFound = errors.New("validator: english translator not found")

// V10Validator validates structs with go-playground/validator and reports
// failures as English messages keyed by JSON field name.
type V10Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// V10ValidationError maps JSON field names to messages.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}
	b, _ := json.Marshal(map[string]string(vs)) //nolint:errcheck // string map always marshals
	return string(b)
}

func (vs V10ValidationError) Values() map[string]string { return vs }

// customRule is a string-only validation tag with its English message.
type customRule struct {
	tag     string
	message string
	check   func(string) bool
}

var customRules = []customRule{
	{
		tag:     "password",
		message: "{0} must be 6-72 characters",
		check: func(s string) bool {
			n := utf8.RuneCountInString(s)
			return n >= passwordMinLen && n <= passwordMaxLen && !strings.ContainsAny(s, "\r\n")
		},
	},
	{
		tag:     "otpcode",
		message: "{0} must be exactly 6 digits",
		check:   otp.IsCode,
	},
}

func NewV10Validator() (*V10Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	locale := en.New()
	trans, ok := ut.New(locale, locale).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, err
	}
	for _, rule := range customRules {
		if err := registerRule(v, trans, rule); err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: v, trans: trans}, nil
}

func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Translate(v.trans)
	}
	return out
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

func registerRule(v *validator.Validate, trans ut.Translator, rule customRule) error {
	err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && rule.check(s)
	})
	if err != nil {
		return err
	}

	return v.RegisterTranslation(rule.tag, trans,
		func(t ut.Translator) error { return t.Add(rule.tag, rule.message, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("validator: translation failed", "tag", fe.Tag(), "field", fe.Field(), "error", err)
				return fe.Error()
			}
			return msg
		},
	)
}
