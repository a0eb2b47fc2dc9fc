package audit

import (
	"context"

	"github.com/shandysiswandi/melody/internal/audit/inbound"
	"github.com/shandysiswandi/melody/internal/audit/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/goroutine"
	"github.com/shandysiswandi/melody/internal/pkg/idempotency"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	"github.com/shandysiswandi/melody/internal/pkg/router"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

type Dependency struct {
	Ctx         context.Context            `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Messaging   messaging.Consumer         `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Goroutine   *goroutine.Manager         `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		Idempotency: dep.Idempotency,
		Clock:       dep.Clock,
		Instrument:  dep.Instrument,
		Retain:      dep.Config.GetInt("modules.audit.retain"),
	})

	if dep.Config.GetBool("modules.audit.http_enabled") {
		inbound.RegisterHTTPEndpoint(dep.Router, uc)
	}
	inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)

	return nil
}
