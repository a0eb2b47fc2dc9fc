package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

const memoryBuffer = 256

// Memory is an in-process broker. Each consumer group on a destination gets
// its own copy of every message; consumers sharing a group compete for it.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]chan *delivery
	seq    atomic.Uint64
	closed bool
}

// NewMemory creates an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{groups: make(map[string]map[string]chan *delivery)}
}

func (m *Memory) channel(destination, group string) (chan *delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	byGroup, ok := m.groups[destination]
	if !ok {
		byGroup = make(map[string]chan *delivery)
		m.groups[destination] = byGroup
	}
	ch, ok := byGroup[group]
	if !ok {
		ch = make(chan *delivery, memoryBuffer)
		byGroup[group] = ch
	}
	return ch, nil
}

// Publish delivers msg to every group subscribed to destination. Messages
// published before any consumer subscribed are dropped.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if destination == "" {
		return ErrDestinationRequired
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for _, ch := range m.groups[destination] {
		d := &delivery{
			id:      strconv.FormatUint(m.seq.Add(1), 10),
			body:    append([]byte(nil), msg.Body...),
			headers: copyHeaders(msg.Headers),
		}
		select {
		case ch <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Consume reads messages from source until ctx is done.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if handler == nil {
		return ErrHandlerRequired
	}
	if source == "" {
		return ErrDestinationRequired
	}

	co := newConsumeOptions(opts...)
	ch, err := m.channel(source, co.group)
	if err != nil {
		return fmt.Errorf("messaging: memory subscribe %s: %w", source, err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-ch:
					if !ok {
						return
					}
					_ = dispatch(ctx, DriverMemory, d, handler, co.autoAck)
				}
			}
		}()
	}
	wg.Wait()

	return nil
}

// Close stops all consumers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, byGroup := range m.groups {
		for _, ch := range byGroup {
			close(ch)
		}
	}
	return nil
}

// Noop satisfies Messaging without a broker.
type Noop struct{}

// NewNoop returns a Messaging that discards everything.
func NewNoop() Noop { return Noop{} }

func (Noop) Publish(context.Context, string, OutgoingMessage) error { return nil }

// Consume blocks until ctx is done.
func (Noop) Consume(ctx context.Context, _ string, handler Handler, _ ...ConsumeOption) error {
	if handler == nil {
		return ErrHandlerRequired
	}
	<-ctx.Done()
	return nil
}

func (Noop) Close() error { return nil }

func copyHeaders(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
