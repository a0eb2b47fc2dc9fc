package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/melody/internal/otp/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/router"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/pkg/validator"
)

type fakeUsecase struct {
	sendErr   error
	verifyOut *usecase.VerifyOTPOutput
	verifyErr error
	resetErr  error

	gotVerify usecase.VerifyOTPInput
}

func (f *fakeUsecase) SendOTP(context.Context, usecase.SendOTPInput) error { return f.sendErr }

func (f *fakeUsecase) VerifyOTP(_ context.Context, in usecase.VerifyOTPInput) (*usecase.VerifyOTPOutput, error) {
	f.gotVerify = in
	return f.verifyOut, f.verifyErr
}

func (f *fakeUsecase) ResetPassword(context.Context, usecase.ResetPasswordInput) error { return f.resetErr }

func newServer(t *testing.T, uc uc) http.Handler {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  name: test\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), Instrument: instrument.NewNoop()})
	RegisterHTTPEndpoint(r, uc)
	return r
}

func do(t *testing.T, h http.Handler, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func TestSendOTPEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "success",
			body:       `{"email":"a@example.com"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"success": true},
		},
		{
			name:       "missing email",
			err:        goerror.NewInvalidFormat("Missing email"),
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"success": false, "message": "Missing email"},
		},
		{
			name:       "mail failure",
			err:        goerror.NewServerWithMessage(errors.New("smtp"), "Failed to send OTP email"),
			body:       `{"email":"a@example.com"}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"success": false, "message": "Failed to send OTP email"},
		},
		{
			name:       "broken json",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"success": false, "message": "Invalid request body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := newServer(t, &fakeUsecase{sendErr: tt.err})

			// Act
			status, body := do(t, h, "/send-otp", tt.body)

			// Assert
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			for k, v := range tt.wantBody {
				if body[k] != v {
					t.Fatalf("body[%q] = %v, want %v (body %v)", k, body[k], v, body)
				}
			}
		})
	}
}

func TestVerifyOTPEndpoint(t *testing.T) {
	t.Run("logical failure is still a 200", func(t *testing.T) {
		// Arrange
		uc := &fakeUsecase{verifyOut: &usecase.VerifyOTPOutput{Message: usecase.MessageInvalidOTP}}
		h := newServer(t, uc)

		// Act
		status, body := do(t, h, "/verify-otp", `{"email":"a@example.com","otp":"111111"}`)

		// Assert
		if status != http.StatusOK {
			t.Fatalf("status = %d, want 200", status)
		}
		if body["success"] != false || body["message"] != usecase.MessageInvalidOTP {
			t.Fatalf("body = %v", body)
		}
		if uc.gotVerify.Code != "111111" || uc.gotVerify.Email != "a@example.com" {
			t.Fatalf("usecase input = %+v", uc.gotVerify)
		}
	})

	t.Run("verified", func(t *testing.T) {
		h := newServer(t, &fakeUsecase{verifyOut: &usecase.VerifyOTPOutput{Verified: true, Message: usecase.MessageVerified}})

		status, body := do(t, h, "/verify-otp", `{"email":"a@example.com","otp":"123456"}`)

		if status != http.StatusOK || body["success"] != true || body["message"] != "Verified!" {
			t.Fatalf("status = %d body = %v", status, body)
		}
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		h := newServer(t, &fakeUsecase{verifyErr: goerror.NewServer(errors.New("redis"))})

		status, body := do(t, h, "/verify-otp", `{"email":"a@example.com","otp":"123456"}`)

		if status != http.StatusInternalServerError || body["success"] != false {
			t.Fatalf("status = %d body = %v", status, body)
		}
	})
}

func TestResetPasswordEndpoint(t *testing.T) {
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	validationErr := goerror.NewInvalidInput(v.Validate(usecase.ResetPasswordInput{Email: "a@example.com", NewPassword: "1"}))

	tests := []struct {
		name       string
		err        error
		body       string
		wantStatus int
		wantKey    string
		wantValue  any
	}{
		{name: "success", body: `{"email":"a@example.com","newPassword":"secret1"}`, wantStatus: http.StatusOK, wantKey: "message", wantValue: "Password updated"},
		{name: "validation", err: validationErr, body: `{}`, wantStatus: http.StatusBadRequest, wantKey: "error", wantValue: "newPassword must be 6-72 characters"},
		{name: "broken json", body: `nope`, wantStatus: http.StatusBadRequest, wantKey: "error", wantValue: "Invalid request body"},
		{name: "needs verification", err: goerror.NewBusiness("OTP verification required", goerror.CodeForbidden), body: `{}`, wantStatus: http.StatusForbidden, wantKey: "error", wantValue: "OTP verification required"},
		{name: "not found", err: goerror.NewBusiness("Account not found", goerror.CodeNotFound), body: `{}`, wantStatus: http.StatusNotFound, wantKey: "error", wantValue: "Account not found"},
		{name: "unstructured error", err: errors.New("boom"), body: `{}`, wantStatus: http.StatusInternalServerError, wantKey: "error", wantValue: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, &fakeUsecase{resetErr: tt.err})

			status, body := do(t, h, "/reset-password", tt.body)

			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %v)", status, tt.wantStatus, body)
			}
			if body[tt.wantKey] != tt.wantValue {
				t.Fatalf("body[%q] = %v, want %v", tt.wantKey, body[tt.wantKey], tt.wantValue)
			}
			if body["success"] != (tt.wantStatus == http.StatusOK) {
				t.Fatalf("body[success] = %v", body["success"])
			}
		})
	}
}
