package identity

import (
	"github.com/shandysiswandi/melody/internal/identity/inbound"
	"github.com/shandysiswandi/melody/internal/identity/outbound/mq"
	"github.com/shandysiswandi/melody/internal/identity/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	"github.com/shandysiswandi/melody/internal/pkg/otpstore"
	"github.com/shandysiswandi/melody/internal/pkg/router"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

type Dependency struct {
	Router     *router.Router             `validate:"required"`
	Accounts   account.Provider           `validate:"required"`
	Store      otpstore.Store             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
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

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument, dep.UUID, dep.Clock)

	uc := usecase.New(usecase.Dependency{
		Accounts:      dep.Accounts,
		Grants:        dep.Store,
		RepoMessaging: repoMsg,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
