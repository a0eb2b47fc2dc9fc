package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/idempotency"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultRetain = 100

// Record is one audited OTP lifecycle event.
type Record struct {
	Event      string    `json:"event"`
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
	ReceivedAt time.Time `json:"received_at"`
}

type Usecase struct {
	idemp    idempotency.Idempotency
	clock    clock.Clocker
	ins      instrument.Instrumentation
	consumed metric.Int64Counter

	mu     sync.Mutex
	recent []Record
	next   int
	retain int
}

type Dependency struct {
	Idempotency idempotency.Idempotency
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
	// Retain bounds how many records Recent can return.
	Retain int
}

func New(dep Dependency) *Usecase {
	consumed, err := dep.Instrument.Meter("audit.usecase").Int64Counter("audit.events.consumed",
		metric.WithDescription("Number of OTP lifecycle events recorded"))
	if err != nil {
		slog.Error("failed to create audit counter", "error", err)
	}

	retain := dep.Retain
	if retain <= 0 {
		retain = defaultRetain
	}

	return &Usecase{
		idemp:    dep.Idempotency,
		clock:    dep.Clock,
		ins:      dep.Instrument,
		consumed: consumed,
		retain:   retain,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.usecase").Start(ctx, name)
}

type RecordInput struct {
	Event      string
	ID         string
	Email      string
	OccurredAt time.Time
}

// Record stores the event once per event ID. Redeliveries of an already
// recorded event are ignored.
func (s *Usecase) Record(ctx context.Context, in RecordInput) error {
	ctx, span := s.startSpan(ctx, "Record")
	defer span.End()

	err := s.idemp.Exec(ctx, "audit:"+in.Event+":"+in.ID, func(ctx context.Context) error {
		rec := Record{
			Event:      in.Event,
			ID:         in.ID,
			Email:      in.Email,
			OccurredAt: in.OccurredAt,
			ReceivedAt: s.clock.Now().UTC(),
		}
		s.append(rec)

		slog.InfoContext(ctx, "audit event recorded",
			"event", rec.Event,
			"event_id", rec.ID,
			"email", rec.Email,
			"lag_ms", rec.ReceivedAt.Sub(rec.OccurredAt).Milliseconds(),
		)
		if s.consumed != nil {
			s.consumed.Add(ctx, 1, metric.WithAttributes(attribute.String("event", rec.Event)))
		}
		return nil
	})
	if errors.Is(err, idempotency.ErrAlreadyCompleted) || errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.DebugContext(ctx, "duplicate audit event ignored", "event", in.Event, "event_id", in.ID)
		return nil
	}

	return err
}

func (s *Usecase) append(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.recent) < s.retain {
		s.recent = append(s.recent, rec)
		return
	}
	s.recent[s.next] = rec
	s.next = (s.next + 1) % s.retain
}

// Recent returns the retained records, newest first.
func (s *Usecase) Recent(_ context.Context) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.recent))
	n := len(s.recent)
	for i := 1; i <= n; i++ {
		// s.next is the oldest slot once the ring is full
		out = append(out, s.recent[(s.next-i+n)%n])
	}
	return out
}
