package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoMessaging interface {
	PublishAccountCreated(ctx context.Context, email string) error
}

type grantStore interface {
	ConsumeGrant(ctx context.Context, identifier string) (bool, error)
}

type Usecase struct {
	accounts      account.Provider
	grants        grantStore
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	ins           instrument.Instrumentation
}

type Dependency struct {
	Accounts      account.Provider
	Grants        grantStore
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		accounts:      dep.Accounts,
		grants:        dep.Grants,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

// ensureVerified consumes the verification grant when sign-in and sign-up
// are gated behind a prior OTP verification.
func (s *Usecase) ensureVerified(ctx context.Context, email string) error {
	if !s.cfg.GetBool("modules.identity.require_verification") {
		return nil
	}

	ok, err := s.grants.ConsumeGrant(ctx, email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume verification grant", "email", email, "error", err)
		return goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "identity action without recent verification", "email", email)
		return goerror.NewBusiness("OTP verification required", goerror.CodeForbidden)
	}

	return nil
}
