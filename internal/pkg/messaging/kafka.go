package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no broker address is configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
	// ClientID identifies this service to the brokers.
	ClientID string
}

// Kafka is a messaging implementation backed by kafka-go.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
	closed  bool
}

// NewKafka creates a Kafka client. Connections are opened lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: cfg.Brokers,
		dialer:  &kafka.Dialer{ClientID: cfg.ClientID, Timeout: 10 * time.Second, DualStack: true},
		writers: make(map[string]*kafka.Writer),
	}, nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	k.writers[topic] = w
	return w, nil
}

// Publish writes msg to topic and waits for broker acknowledgment.
func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if topic == "" {
		return ErrDestinationRequired
	}

	w, err := k.writer(topic)
	if err != nil {
		return err
	}

	km := kafka.Message{Key: msg.Key, Value: msg.Body, Time: time.Now()}
	for key, val := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: key, Value: []byte(val)})
	}

	if err := w.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("messaging: kafka publish %s: %w", topic, err)
	}
	return nil
}

// Consume reads topic as part of the configured consumer group. Offsets are
// committed when a message is acked; a nacked message is not committed.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if handler == nil {
		return ErrHandlerRequired
	}
	if topic == "" {
		return ErrDestinationRequired
	}

	co := newConsumeOptions(opts...)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		Dialer:   k.dialer,
		GroupID:  co.group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		_ = reader.Close()
		return ErrClosed
	}
	k.readers = append(k.readers, reader)
	k.mu.Unlock()

	jobs := make(chan kafka.Message)
	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for km := range jobs {
				_ = dispatch(ctx, DriverKafka, kafkaDelivery(ctx, reader, km), handler, co.autoAck)
			}
		}()
	}

	var err error
	for {
		km, ferr := reader.FetchMessage(ctx)
		if ferr != nil {
			if ctx.Err() == nil && !errors.Is(ferr, context.Canceled) {
				err = fmt.Errorf("messaging: kafka fetch %s: %w", topic, ferr)
			}
			break
		}
		jobs <- km
	}
	close(jobs)
	wg.Wait()

	return err
}

func kafkaDelivery(ctx context.Context, reader *kafka.Reader, km kafka.Message) *delivery {
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}

	return &delivery{
		id:      km.Topic + "/" + strconv.Itoa(km.Partition) + "/" + strconv.FormatInt(km.Offset, 10),
		body:    km.Value,
		headers: headers,
		ack: func() error {
			return reader.CommitMessages(context.WithoutCancel(ctx), km)
		},
	}
}

// Close closes all writers and readers.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var errs []error
	for _, w := range k.writers {
		errs = append(errs, w.Close())
	}
	for _, r := range k.readers {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
