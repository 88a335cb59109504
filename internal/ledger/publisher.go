package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"krishichain/internal/platform/config"
)

// Publisher streams committed ledger entries to Kafka for downstream
// consumers (analytics, long-term archival). Publication is fire-and-forget:
// the write path never waits on the broker and a publish failure is only
// visible in diagnostics.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the configured brokers. Returns nil when no
// brokers are configured; a nil Publisher is safe to call.
func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

// entryPayload is the JSON structure published to Kafka.
type entryPayload struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Seq       int64           `json:"seq"`
	Stage     string          `json:"stage"`
	ActorID   string          `json:"actor_id"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Publish emits the entry asynchronously, keyed by product so per-product
// ordering survives partitioning. Errors are logged, never returned.
func (p *Publisher) Publish(ctx context.Context, entry Entry) {
	if p == nil {
		return
	}
	payload := entryPayload{
		ID:        entry.ID.String(),
		ProductID: entry.ProductID.String(),
		Seq:       entry.Seq,
		Stage:     entry.Stage.String(),
		ActorID:   entry.ActorID.String(),
		Action:    entry.Action,
		Details:   entry.Details,
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
	}
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal ledger payload", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(entry.ProductID.String()),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("publish ledger entry",
				"error", err,
				"product_id", entry.ProductID.String(),
				"seq", entry.Seq,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.client.Flush(ctx)
	p.client.Close()
}
