package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/melody/internal/audit/usecase"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(event.HeaderCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// handler records events published to destination. Malformed payloads are
// logged and acknowledged so they are not redelivered forever.
func (h *MQHandler) handler(destination string) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx = h.ensureCorrelationID(ctx, msg)

		ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, "Consume "+destination)
		defer span.End()

		body := msg.Body()

		var payload event.Message
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.ErrorContext(ctx, "failed to parse audit message body", "event", destination, "msg_body", string(body), "error", err)
			return nil
		}
		if payload.ID == "" {
			payload.ID = msg.ID()
		}

		if err := h.uc.Record(ctx, usecase.RecordInput{
			Event:      destination,
			ID:         payload.ID,
			Email:      payload.Email,
			OccurredAt: payload.OccurredAt,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to record audit event", "event", destination, "event_id", payload.ID, "error", err)
			return err
		}

		return nil
	}
}
