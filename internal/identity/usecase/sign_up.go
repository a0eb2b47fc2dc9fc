package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
)

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

func (s *Usecase) SignUp(ctx context.Context, in SignUpInput) error {
	ctx, span := s.startSpan(ctx, "SignUp")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.ensureVerified(ctx, in.Email); err != nil {
		return err
	}

	err := s.accounts.CreateAccount(ctx, in.Email, in.Password)
	if errors.Is(err, account.ErrAccountExists) {
		slog.WarnContext(ctx, "sign up for existing account", "email", in.Email)
		return goerror.NewBusiness("Account already exists", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to create account", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "account created", "email", in.Email)

	if err := s.repoMessaging.PublishAccountCreated(ctx, in.Email); err != nil {
		slog.WarnContext(ctx, "failed to publish account created", "email", in.Email, "error", err)
	}

	return nil
}
