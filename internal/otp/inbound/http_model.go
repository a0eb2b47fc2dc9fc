package inbound

import "net/http"

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// StatusResponse is the {success, message} envelope shared by the OTP endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ResetPasswordResponse reports failures under "error" rather than "message".
type ResetPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	status int
}

func (r ResetPasswordResponse) StatusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
