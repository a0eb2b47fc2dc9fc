package authflow

import (
	"slices"

	"github.com/samber/lo"
)

const captchaLength = 5

var captchaCharset = slices.Concat(lo.UpperCaseLettersCharset, lo.NumbersCharset)

// RandomCaptcha produces short uppercase alphanumeric challenges. It keeps
// bots off the form and is not a secret.
type RandomCaptcha struct{}

func NewRandomCaptcha() *RandomCaptcha { return &RandomCaptcha{} }

func (*RandomCaptcha) Generate() string {
	return lo.RandomString(captchaLength, captchaCharset)
}
