package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/otp"
	"github.com/shandysiswandi/melody/internal/pkg/otpstore"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoMail interface {
	SendOTP(ctx context.Context, to, code string) error
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, email string) error
	PublishOTPVerified(ctx context.Context, email string) error
	PublishPasswordReset(ctx context.Context, email string) error
}

type repoAccount interface {
	UpdatePassword(ctx context.Context, email, newPassword string) error
}

type Usecase struct {
	store         otpstore.Store
	generator     otp.Generator
	repoMail      repoMail
	repoMessaging repoMessaging
	repoAccount   repoAccount
	validator     validator.Validator
	cfg           config.Config
	ins           instrument.Instrumentation

	issued   metric.Int64Counter
	verified metric.Int64Counter
	rejected metric.Int64Counter
}

type Dependency struct {
	Store         otpstore.Store
	Generator     otp.Generator
	RepoMail      repoMail
	RepoMessaging repoMessaging
	RepoAccount   repoAccount
	Validator     validator.Validator
	Config        config.Config
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("otp.usecase")

	return &Usecase{
		store:         dep.Store,
		generator:     dep.Generator,
		repoMail:      dep.RepoMail,
		repoMessaging: dep.RepoMessaging,
		repoAccount:   dep.RepoAccount,
		validator:     dep.Validator,
		cfg:           dep.Config,
		ins:           dep.Instrument,
		issued:        newCounter(meter, "otp.codes.issued", "Number of OTP codes stored and mailed"),
		verified:      newCounter(meter, "otp.codes.verified", "Number of OTP codes verified"),
		rejected:      newCounter(meter, "otp.codes.rejected", "Number of OTP verifications rejected"),
	}
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Error("failed to create otp counter", "name", name, "error", err)
		return nil
	}
	return c
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, reason string) {
	if c == nil {
		return
	}
	if reason == "" {
		c.Add(ctx, 1)
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

// grantEnabled reports whether a successful verification must leave a grant
// for a follow-up privileged action.
func (s *Usecase) grantEnabled() bool {
	return s.cfg.GetBool("modules.otp.reset_requires_verification") ||
		s.cfg.GetBool("modules.identity.require_verification")
}
