package inbound

import (
	"context"

	"github.com/shandysiswandi/melody/internal/identity/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/router"
)

type uc interface {
	SignIn(ctx context.Context, in usecase.SignInInput) error
	SignUp(ctx context.Context, in usecase.SignUpInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/identity/sign-in", end.SignIn)
	r.POST("/api/v1/identity/sign-up", end.SignUp)
}
