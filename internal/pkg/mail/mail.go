package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	// ErrNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrNoRecipients = errors.New("no recipients provided")
	// ErrNoSender is returned when both Message.From and the configured default From are empty.
	ErrNoSender = errors.New("no sender provided")
	// ErrUnknownDriver is returned by NewFromDriver for unsupported drivers.
	ErrUnknownDriver = errors.New("mail: unknown driver")
)

// Message represents an email payload.
type Message struct {
	// From is an optional explicit sender; the transport default is used when empty.
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	// TextBody is the plain-text body.
	TextBody string
	// HTMLBody is the optional HTML alternative.
	HTMLBody string
}

// Mail abstracts an email provider.
//
// Send returns nil only once the server accepted the message for delivery.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Config configures the SMTP transports.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender, e.g. "Melody Player <no-reply@melody.app>".
	From string
	// MaxConns bounds the pool size (pool driver only).
	MaxConns int
	// IdleTimeoutSeconds closes idle pooled connections (pool driver only).
	IdleTimeoutSeconds int
	// WaitTimeoutSeconds bounds waiting for a free pooled connection (pool driver only).
	WaitTimeoutSeconds int
}

func (c Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewFromDriver builds the transport named by driver: "smtp", "smtppool" or "noop".
func NewFromDriver(driver string, cfg Config) (Mail, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "smtp":
		return NewSMTP(cfg)
	case "smtppool":
		return NewPool(cfg)
	case "noop":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func prepare(msg Message, defaultFrom string) (Message, error) {
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return msg, ErrNoRecipients
	}
	if msg.From == "" {
		msg.From = defaultFrom
	}
	if msg.From == "" {
		return msg, ErrNoSender
	}
	return msg, nil
}

// sendWithContext runs send and returns early with ctx.Err() if ctx ends first.
// The underlying transports do not accept a context, so an abandoned send
// finishes in the background and its result is discarded.
func sendWithContext(ctx context.Context, send func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- send() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop discards every message. It is meant for local runs without SMTP.
type Noop struct{}

func (Noop) Send(ctx context.Context, msg Message) error {
	_, err := prepare(msg, "noop@localhost")
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (Noop) Close() error { return nil }
