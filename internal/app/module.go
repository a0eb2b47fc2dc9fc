package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/melody/internal/audit"
	"github.com/shandysiswandi/melody/internal/identity"
	"github.com/shandysiswandi/melody/internal/otp"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.otp.enabled") {
		if err := otp.New(otp.Dependency{
			Router:     a.router,
			Store:      a.store,
			Generator:  a.generator,
			Mail:       a.mail,
			Messaging:  a.messaging,
			Accounts:   a.accounts,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module otp", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Router:     a.router,
			Accounts:   a.accounts,
			Store:      a.store,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.audit.enabled") {
		if err := audit.New(audit.Dependency{
			Ctx:         a.ctx,
			Router:      a.router,
			Messaging:   a.messaging,
			Idempotency: a.idemp,
			Goroutine:   a.goroutine,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Clock:       a.clock,
			Validator:   a.validator,
		}); err != nil {
			slog.Error("failed to init module audit", "error", err)
			os.Exit(1)
		}
	}
}
