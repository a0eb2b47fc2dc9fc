package inbound

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/melody/internal/otp/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/router"
)

// HTTPEndpoint exposes the OTP issue, verify and password-reset handlers.
type HTTPEndpoint struct {
	uc uc
}

// SendOTP issues a code for the email and mails it.
// @Summary Send OTP
// @Description Generates a 6-digit code, stores it for the email and emails it.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body SendOTPRequest true "Send OTP payload"
// @Success 200 {object} StatusResponse "Code sent"
// @Failure 400 {object} router.errorResponse "Missing email"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Failed to send OTP email"
// @Router /send-otp [post]
func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.SendOTP(r.Context(), usecase.SendOTPInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return StatusResponse{Success: true}, nil
}

// VerifyOTP checks a submitted code. Logical failures are reported with
// status 200 and success=false.
// @Summary Verify OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Verify OTP payload"
// @Success 200 {object} StatusResponse "Verification result"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /verify-otp [post]
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Email: req.Email,
		Code:  req.OTP,
	})
	if err != nil {
		return nil, err
	}

	return StatusResponse{Success: resp.Verified, Message: resp.Message}, nil
}

// ResetPassword replaces the account password for the email.
// @Summary Reset password
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset password payload"
// @Success 200 {object} ResetPasswordResponse "Password updated"
// @Failure 400 {object} ResetPasswordResponse "Invalid input"
// @Failure 403 {object} ResetPasswordResponse "OTP verification required"
// @Failure 404 {object} ResetPasswordResponse "Account not found"
// @Failure 500 {object} ResetPasswordResponse "Failed to update password"
// @Router /reset-password [post]
func (h *HTTPEndpoint) ResetPassword(r *router.Request) (any, error) {
	var req ResetPasswordRequest
	if err := r.DecodeBody(&req); err != nil {
		return resetFailure(err), nil
	}

	if err := h.uc.ResetPassword(r.Context(), usecase.ResetPasswordInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
	}); err != nil {
		return resetFailure(err), nil
	}

	return ResetPasswordResponse{Success: true, Message: "Password updated"}, nil
}

func resetFailure(err error) ResetPasswordResponse {
	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		return ResetPasswordResponse{Error: "Internal server error", status: http.StatusInternalServerError}
	}

	status := gerr.StatusCode()
	if gerr.Type() == goerror.TypeValidation {
		status = http.StatusBadRequest
	}

	return ResetPasswordResponse{Error: describe(gerr), status: status}
}

// describe flattens validation details into one sentence; other errors
// keep their own message.
func describe(gerr *goerror.Error) string {
	fields := gerr.Fields()
	var values interface{ Values() map[string]string }
	if errors.As(gerr, &values) {
		fields = values.Values()
	}
	if len(fields) == 0 {
		return gerr.Msg()
	}

	msgs := lo.Values(fields)
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
