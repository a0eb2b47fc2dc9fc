package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/melody/internal/pkg/clock"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
	uuid   uid.StringID
	clock  clock.Clocker
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, uuid uid.StringID, clk clock.Clocker) *Messaging {
	return &Messaging{client: client, ins: ins, uuid: uuid, clock: clk}
}

func (m *Messaging) PublishAccountCreated(ctx context.Context, email string) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishAccountCreated")
	defer span.End()

	body, err := json.Marshal(event.Message{
		ID:         m.uuid.Generate(),
		Email:      email,
		OccurredAt: m.clock.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, event.AccountCreatedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(email),
		Headers: map[string]string{event.HeaderCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
