package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when no server URL is configured.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	// URL is the NATS server address.
	URL string
	// Options are passed to the NATS client.
	Options []nats.Option
}

// NATS is a messaging implementation backed by core NATS. Core NATS has no
// redelivery, so Ack and Nack are no-ops.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Publish sends msg on subject and flushes the connection.
func (n *NATS) Publish(ctx context.Context, subject string, msg OutgoingMessage) error {
	if subject == "" {
		return ErrDestinationRequired
	}

	nm := nats.NewMsg(subject)
	nm.Data = msg.Body
	for key, val := range msg.Headers {
		nm.Header.Set(key, val)
	}

	if err := n.conn.PublishMsg(nm); err != nil {
		return fmt.Errorf("messaging: nats publish %s: %w", subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}
	return nil
}

// Consume subscribes to subject in the configured queue group and blocks
// until ctx is done.
func (n *NATS) Consume(ctx context.Context, subject string, handler Handler, opts ...ConsumeOption) error {
	if handler == nil {
		return ErrHandlerRequired
	}
	if subject == "" {
		return ErrDestinationRequired
	}

	co := newConsumeOptions(opts...)
	sem := make(chan struct{}, co.concurrency)

	sub, err := n.conn.QueueSubscribe(subject, co.group, func(m *nats.Msg) {
		headers := make(map[string]string, len(m.Header))
		for key := range m.Header {
			headers[key] = m.Header.Get(key)
		}
		d := &delivery{id: m.Subject, body: m.Data, headers: headers}

		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			_ = dispatch(ctx, DriverNATS, d, handler, co.autoAck)
		}()
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe %s: %w", subject, err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	<-ctx.Done()
	return sub.Drain()
}

// Close drains subscriptions and closes the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
