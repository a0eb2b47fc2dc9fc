package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
)

type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

func (s *Usecase) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	ctx, span := s.startSpan(ctx, "ResetPassword")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if s.cfg.GetBool("modules.otp.reset_requires_verification") {
		ok, err := s.store.ConsumeGrant(ctx, in.Email)
		if err != nil {
			slog.ErrorContext(ctx, "failed to consume verification grant", "email", in.Email, "error", err)
			return goerror.NewServer(err)
		}
		if !ok {
			slog.WarnContext(ctx, "password reset without recent verification", "email", in.Email)
			return goerror.NewBusiness("OTP verification required", goerror.CodeForbidden)
		}
	}

	err := s.repoAccount.UpdatePassword(ctx, in.Email, in.NewPassword)
	if errors.Is(err, account.ErrAccountNotFound) {
		slog.WarnContext(ctx, "password reset for unknown account", "email", in.Email)
		return goerror.NewBusiness("Account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to update password", "email", in.Email, "error", err)
		return goerror.NewServerWithMessage(err, "Failed to update password")
	}

	slog.InfoContext(ctx, "password reset", "email", in.Email)

	if err := s.repoMessaging.PublishPasswordReset(ctx, in.Email); err != nil {
		slog.WarnContext(ctx, "failed to publish password reset", "email", in.Email, "error", err)
	}

	return nil
}
