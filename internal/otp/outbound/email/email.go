package email

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultSubject = "Mã OTP xác thực"
	DefaultBody    = "Mã OTP của bạn là: {code}"
)

// Config shapes the OTP message and the retry policy for transient SMTP errors.
type Config struct {
	From    string
	Subject string
	// Body is a template; "{code}" is replaced by the code.
	Body       string
	MaxRetries uint64
	RetryBase  time.Duration
	RetryCap   time.Duration
}

type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
	cfg    Config
}

func New(client mail.Mail, ins instrument.Instrumentation, cfg Config) *Mail {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Body == "" {
		cfg.Body = DefaultBody
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = 2 * time.Second
	}

	return &Mail{client: client, ins: ins, cfg: cfg}
}

func (m *Mail) SendOTP(ctx context.Context, to, code string) error {
	ctx, span := m.ins.Tracer("otp.outbound.email").Start(ctx, "SendOTP")
	defer span.End()

	msg := mail.Message{
		From:     m.cfg.From,
		To:       []string{to},
		Subject:  m.cfg.Subject,
		TextBody: strings.ReplaceAll(m.cfg.Body, "{code}", code),
	}

	b := retry.NewFibonacci(m.cfg.RetryBase)
	b = retry.WithCappedDuration(m.cfg.RetryCap, b)
	b = retry.WithMaxRetries(m.cfg.MaxRetries, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := m.client.Send(ctx, msg)
		if err == nil || isPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, mail.ErrNoRecipients) ||
		errors.Is(err, mail.ErrNoSender) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
