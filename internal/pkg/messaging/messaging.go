package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// ErrHandlerRequired is returned when Consume is called with a nil handler.
var ErrHandlerRequired = errors.New("messaging: handler is required")

// ErrDestinationRequired is returned for an empty topic/subject/subscription.
var ErrDestinationRequired = errors.New("messaging: destination is required")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("messaging: closed")

// Messaging is a broker-agnostic client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a destination (topic/subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
}

// Consumer consumes messages from a source until ctx is done or the broker
// connection fails.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
//
// With auto-ack enabled a nil return acks and an error nacks; otherwise the
// handler is responsible for calling Ack or Nack.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	Body []byte
	// Key is used by Kafka for partitioning.
	Key []byte
	// Headers map to Kafka/NATS headers and Pub/Sub attributes. NSQ has no
	// header support and drops them.
	Headers map[string]string
}

// Message is a broker-agnostic received message.
type Message interface {
	ID() string
	Body() []byte
	Header(key string) string
	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// delivery is the Message implementation shared by every driver.
type delivery struct {
	id      string
	body    []byte
	headers map[string]string
	ack     func() error
	nack    func() error

	responded atomic.Bool
}

func (d *delivery) ID() string   { return d.id }
func (d *delivery) Body() []byte { return d.body }

func (d *delivery) Header(key string) string {
	return d.headers[key]
}

func (d *delivery) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.responded.Swap(true) || d.ack == nil {
		return nil
	}
	return d.ack()
}

func (d *delivery) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.responded.Swap(true) || d.nack == nil {
		return nil
	}
	return d.nack()
}

// dispatch runs handler for d, recovering panics, and settles d when autoAck is set.
func dispatch(ctx context.Context, kind string, d *delivery, handler Handler, autoAck bool) error {
	herr := invokeHandler(ctx, kind, func() error {
		return handler(ctx, d)
	})

	if herr != nil {
		slog.WarnContext(ctx, "messaging handler returned error", "kind", kind, "id", d.id, "error", herr)
	}

	if !autoAck || d.responded.Load() {
		return herr
	}
	if herr == nil {
		return d.Ack(ctx)
	}
	return d.Nack(ctx)
}
