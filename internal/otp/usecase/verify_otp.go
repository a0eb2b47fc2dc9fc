package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/otp"
	"github.com/shandysiswandi/melody/internal/pkg/otpstore"
)

const (
	MessageMissingEmail     = "Missing email"
	MessageInvalidFormat    = "OTP must be exactly 6 digits"
	MessageExpiredOrMissing = "OTP expired or not found"
	MessageInvalidOTP       = "Invalid OTP"
	MessageLocked           = "Too many failed attempts, please request a new OTP"
	MessageVerified         = "Verified!"
)

type VerifyOTPInput struct {
	Email string
	Code  string
}

// VerifyOTPOutput is returned for every logical outcome. Only store
// failures are reported as errors.
type VerifyOTPOutput struct {
	Verified bool
	Message  string
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" {
		s.count(ctx, s.rejected, "missing_email")
		return &VerifyOTPOutput{Message: MessageMissingEmail}, nil
	}

	// malformed codes never reach the store, so they cannot burn attempts
	if !otp.IsCode(in.Code) {
		s.count(ctx, s.rejected, "format")
		return &VerifyOTPOutput{Message: MessageInvalidFormat}, nil
	}

	result, err := s.store.Consume(ctx, in.Email, in.Code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume otp", "email", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	switch result {
	case otpstore.ResultMatched:
	case otpstore.ResultMismatch:
		s.count(ctx, s.rejected, result.String())
		return &VerifyOTPOutput{Message: MessageInvalidOTP}, nil
	case otpstore.ResultLocked:
		s.count(ctx, s.rejected, result.String())
		slog.WarnContext(ctx, "otp locked after too many attempts", "email", in.Email)
		return &VerifyOTPOutput{Message: MessageLocked}, nil
	default:
		s.count(ctx, s.rejected, result.String())
		return &VerifyOTPOutput{Message: MessageExpiredOrMissing}, nil
	}

	if s.grantEnabled() {
		if err := s.store.Grant(ctx, in.Email); err != nil {
			slog.ErrorContext(ctx, "failed to store verification grant", "email", in.Email, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	s.count(ctx, s.verified, "")
	slog.InfoContext(ctx, "otp verified", "email", in.Email)

	if err := s.repoMessaging.PublishOTPVerified(ctx, in.Email); err != nil {
		slog.WarnContext(ctx, "failed to publish otp verified", "email", in.Email, "error", err)
	}

	return &VerifyOTPOutput{Verified: true, Message: MessageVerified}, nil
}
