package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/melody/internal/pkg/goerror"
)

type SendOTPInput struct {
	Email string `json:"email" validate:"required,email"`
}

// SendOTP stores a fresh code for the email and mails it. The code is stored
// before sending so a successful send always refers to a consumable code.
func (s *Usecase) SendOTP(ctx context.Context, in SendOTPInput) error {
	ctx, span := s.startSpan(ctx, "SendOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" {
		return goerror.NewInvalidFormat("Missing email")
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	code, err := s.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.store.Put(ctx, in.Email, code); err != nil {
		slog.ErrorContext(ctx, "failed to store otp", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMail.SendOTP(ctx, in.Email, code); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "email", in.Email, "error", err)
		return goerror.NewServerWithMessage(err, "Failed to send OTP email")
	}

	s.count(ctx, s.issued, "")
	slog.InfoContext(ctx, "otp issued", "email", in.Email)

	if err := s.repoMessaging.PublishOTPIssued(ctx, in.Email); err != nil {
		slog.WarnContext(ctx, "failed to publish otp issued", "email", in.Email, "error", err)
	}

	return nil
}
