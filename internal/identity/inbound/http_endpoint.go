package inbound

import (
	"github.com/shandysiswandi/melody/internal/identity/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/router"
)

// HTTPEndpoint exposes the account sign-in and sign-up handlers.
type HTTPEndpoint struct {
	uc uc
}

// SignIn confirms an email/password pair.
// @Summary Sign in
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body CredentialRequest true "Credentials"
// @Success 200 {object} StatusResponse "Signed in"
// @Failure 401 {object} router.errorResponse "Invalid email or password"
// @Failure 403 {object} router.errorResponse "OTP verification required"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/sign-in [post]
func (h *HTTPEndpoint) SignIn(r *router.Request) (any, error) {
	var req CredentialRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.SignIn(r.Context(), usecase.SignInInput{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return nil, err
	}

	return StatusResponse{Success: true, Message: "Signed in"}, nil
}

// SignUp creates an account.
// @Summary Sign up
// @Tags Identity
// @Accept json
// @Produce json
// @Param request body CredentialRequest true "Credentials"
// @Success 200 {object} StatusResponse "Account created"
// @Failure 403 {object} router.errorResponse "OTP verification required"
// @Failure 409 {object} router.errorResponse "Account already exists"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/sign-up [post]
func (h *HTTPEndpoint) SignUp(r *router.Request) (any, error) {
	var req CredentialRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.SignUp(r.Context(), usecase.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return nil, err
	}

	return StatusResponse{Success: true, Message: "Account created"}, nil
}
