package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shandysiswandi/melody/internal/pkg/goerror"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 1 << 20

var statusCodes = map[int]goerror.Code{
	http.StatusBadRequest:          goerror.CodeInvalidFormat,
	http.StatusUnauthorized:        goerror.CodeUnauthorized,
	http.StatusForbidden:           goerror.CodeForbidden,
	http.StatusNotFound:            goerror.CodeNotFound,
	http.StatusConflict:            goerror.CodeConflict,
	http.StatusUnprocessableEntity: goerror.CodeInvalidInput,
	http.StatusTooManyRequests:     goerror.CodeTooManyRequest,
	http.StatusGatewayTimeout:      goerror.CodeTimeout,
}

// HTTPClient posts JSON to a Melody server.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL. A nil hc uses a traced
// default client.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type reply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// text prefers message over error, the reset endpoint reports failures in
// the latter.
func (r reply) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}

func (c *HTTPClient) post(ctx context.Context, path string, in any) (int, reply, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		req.Header.Set("X-Correlation-ID", cID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, reply{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, reply{}, err
	}

	var out reply
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return resp.StatusCode, reply{}, fmt.Errorf("authflow: decode %s response (status %d): %w", path, resp.StatusCode, err)
		}
	}

	return resp.StatusCode, out, nil
}

// call treats anything but 200 with success=true as a failure. The server's
// message, when present, becomes the user facing text.
func (c *HTTPClient) call(ctx context.Context, path string, in any) (reply, error) {
	status, out, err := c.post(ctx, path, in)
	if err != nil {
		return out, err
	}
	if status == http.StatusOK && out.Success {
		return out, nil
	}

	msg := out.text()
	if msg == "" {
		return out, fmt.Errorf("authflow: %s failed with status %d", path, status)
	}

	code, ok := statusCodes[status]
	if !ok {
		code = goerror.CodeInternal
		// verify-otp reports a rejected code as 200 with success=false
		if status == http.StatusOK {
			code = goerror.CodeUnauthorized
		}
	}
	return out, goerror.NewBusiness(msg, code)
}

// HTTPCodeService talks to the OTP endpoints.
type HTTPCodeService struct {
	client *HTTPClient
}

func NewHTTPCodeService(client *HTTPClient) *HTTPCodeService {
	return &HTTPCodeService{client: client}
}

func (s *HTTPCodeService) RequestCode(ctx context.Context, email string) error {
	_, err := s.client.call(ctx, "/send-otp", map[string]string{"email": email})
	return err
}

func (s *HTTPCodeService) VerifyCode(ctx context.Context, email, code string) error {
	_, err := s.client.call(ctx, "/verify-otp", map[string]string{"email": email, "otp": code})
	return err
}

func (s *HTTPCodeService) ResetPassword(ctx context.Context, email, newPassword string) error {
	_, err := s.client.call(ctx, "/reset-password", map[string]string{"email": email, "newPassword": newPassword})
	return err
}

// HTTPIdentityProvider talks to the identity endpoints.
type HTTPIdentityProvider struct {
	client *HTTPClient
}

func NewHTTPIdentityProvider(client *HTTPClient) *HTTPIdentityProvider {
	return &HTTPIdentityProvider{client: client}
}

func (p *HTTPIdentityProvider) SignIn(ctx context.Context, email, password string) error {
	_, err := p.client.call(ctx, "/api/v1/identity/sign-in", map[string]string{"email": email, "password": password})
	return err
}

func (p *HTTPIdentityProvider) CreateAccount(ctx context.Context, email, password string) error {
	_, err := p.client.call(ctx, "/api/v1/identity/sign-up", map[string]string{"email": email, "password": password})
	return err
}
