package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"marlin/pkg/platform/audit"
)

// Producer publishes audit events to a Kafka topic. It satisfies the
// audit publisher's Sink interface; the event session ID is used as the
// record key so events for one session stay ordered within a partition.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type ProducerOption func(*Producer)

func WithLogger(logger *slog.Logger) ProducerOption {
	return func(p *Producer) {
		p.logger = logger
	}
}

func NewProducer(brokers []string, topic string, opts ...ProducerOption) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}

	p := &Producer{
		client: client,
		topic:  topic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Producer) Write(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SessionID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("producing audit event: %w", err)
	}

	p.logger.DebugContext(ctx, "audit event published",
		slog.String("action", event.Action),
		slog.String("session_id", event.SessionID))
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}
