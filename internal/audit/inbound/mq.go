package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/melody/internal/pkg/config"
	"github.com/shandysiswandi/melody/internal/pkg/goroutine"
	"github.com/shandysiswandi/melody/internal/pkg/instrument"
	"github.com/shandysiswandi/melody/internal/pkg/messaging"
	"github.com/shandysiswandi/melody/internal/pkg/uid"
	"github.com/shandysiswandi/melody/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.audit.consumer_names")
	concurrency := max(cfg.GetInt("modules.audit.concurrency"), 1)

	var consumers = []struct {
		name  string // consumer group / channel / subscription
		topic string // destination where publisher sent message
	}{
		{name: event.OTPIssuedConsumerAudit, topic: event.OTPIssuedDestination},
		{name: event.OTPVerifiedConsumerAudit, topic: event.OTPVerifiedDestination},
		{name: event.PasswordResetConsumerAudit, topic: event.PasswordResetDestination},
		{name: event.AccountCreatedConsumerAudit, topic: event.AccountCreatedDestination},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				h.handler(consumer.topic),
				messaging.WithGroup(consumer.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
	}
}
