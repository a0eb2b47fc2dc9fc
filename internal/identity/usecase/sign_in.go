package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/melody/internal/pkg/account"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
)

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

func (s *Usecase) SignIn(ctx context.Context, in SignInInput) error {
	ctx, span := s.startSpan(ctx, "SignIn")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if err := s.ensureVerified(ctx, in.Email); err != nil {
		return err
	}

	err := s.accounts.SignIn(ctx, in.Email, in.Password)
	if errors.Is(err, account.ErrInvalidCredentials) || errors.Is(err, account.ErrAccountNotFound) {
		slog.WarnContext(ctx, "sign in rejected", "email", in.Email)
		return goerror.NewBusiness("Invalid email or password", goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to sign in", "email", in.Email, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "signed in", "email", in.Email)

	return nil
}
