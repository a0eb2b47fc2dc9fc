package mail

import (
	"context"
	"crypto/tls"
	"net/smtp"
	"time"

	"github.com/knadh/smtppool"
)

// Pool sends messages over persistent SMTP connections managed by knadh/smtppool.
type Pool struct {
	pool        *smtppool.Pool
	defaultFrom string
}

// NewPool dials nothing up front; connections are opened on demand up to MaxConns.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}

	p, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        maxConns,
		IdleTimeout:     seconds(cfg.IdleTimeoutSeconds, 15),
		PoolWaitTimeout: seconds(cfg.WaitTimeoutSeconds, 10),
		Auth:            auth,
		TLSConfig:       &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, err
	}

	return &Pool{pool: p, defaultFrom: cfg.From}, nil
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

// Send delivers msg through a pooled connection.
func (p *Pool) Send(ctx context.Context, msg Message) error {
	msg, err := prepare(msg, p.defaultFrom)
	if err != nil {
		return err
	}

	e := smtppool.Email{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Subject: msg.Subject,
		Text:    []byte(msg.TextBody),
	}
	if msg.HTMLBody != "" {
		e.HTML = []byte(msg.HTMLBody)
	}

	return sendWithContext(ctx, func() error { return p.pool.Send(e) })
}

// Close closes all pooled connections.
func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}
