// Package messaging is a broker-agnostic publish/consume layer.
//
// Publishers emit OutgoingMessage values to a destination (topic or subject);
// consumers receive Message values through a Handler. Drivers exist for Kafka,
// NATS, NSQ and Google Pub/Sub, plus an in-process Memory broker and a Noop
// driver used when eventing is disabled.
package messaging
