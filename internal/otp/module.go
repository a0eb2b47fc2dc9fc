package otp

import (
	"github.com/shandysiswandi/melody/internal/otp/inbound"
	"github.com/shandysiswandi/melody/internal/otp/outbound/email"
	"github.com/shandysiswandi/melody/internal/otp/outbound/mq"
	"github.com/shandysiswandi/melody/internal/otp/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/mail"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	otpgen "github.com/shandysiswandi/melody/internal/pkg/otp"
	"github.com/shandysiswandi/melody/internal/pkg/otpstore"
	"github.com/shandysiswandi/melody/internal/pkg/router"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

type Dependency struct {
	Router     *router.Router             `validate:"required"`
	Store      otpstore.Store             `validate:"required"`
	Generator  otpgen.Generator           `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Accounts   account.Provider           `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMail := email.New(dep.Mail, dep.Instrument, email.Config{
		From:       dep.Config.GetString("modules.otp.mail.from"),
		Subject:    dep.Config.GetString("modules.otp.mail.subject"),
		Body:       dep.Config.GetString("modules.otp.mail.body"),
		MaxRetries: uint64(max(dep.Config.GetInt("modules.otp.mail.max_retries"), 0)),
		RetryBase:  dep.Config.GetMillisecond("modules.otp.mail.retry_base_ms"),
		RetryCap:   dep.Config.GetMillisecond("modules.otp.mail.retry_cap_ms"),
	})
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument, dep.UUID, dep.Clock)

	uc := usecase.New(usecase.Dependency{
		Store:         dep.Store,
		Generator:     dep.Generator,
		RepoMail:      repoMail,
		RepoMessaging: repoMsg,
		RepoAccount:   dep.Accounts,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
