package mail

import (
	"context"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SMTP sends each message over a fresh connection using jordan-wright/email,
// upgrading with STARTTLS when the server offers it.
type SMTP struct {
	addr        string
	defaultFrom string
	auth        smtp.Auth
	send        func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSMTP constructs an SMTP mail sender.
func NewSMTP(cfg Config) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTP{
		addr:        cfg.addr(),
		defaultFrom: cfg.From,
		auth:        auth,
		send:        func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}, nil
}

func toEmail(msg Message) *email.Email {
	e := email.NewEmail()
	e.From = msg.From
	e.To = msg.To
	e.Cc = msg.Cc
	e.Bcc = msg.Bcc
	e.Subject = msg.Subject
	e.Text = []byte(msg.TextBody)
	if msg.HTMLBody != "" {
		e.HTML = []byte(msg.HTMLBody)
	}
	return e
}

// Send delivers a message over SMTP.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	msg, err := prepare(msg, s.defaultFrom)
	if err != nil {
		return err
	}

	e := toEmail(msg)
	return sendWithContext(ctx, func() error {
		return s.send(e, s.addr, s.auth)
	})
}

// Close implements io.Closer for interface compatibility.
func (s *SMTP) Close() error {
	return nil
}
