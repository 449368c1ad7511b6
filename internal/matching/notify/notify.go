// Package notify publishes search completion events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// SearchCompleted is emitted once per finished search.
type SearchCompleted struct {
	SearchID    uuid.UUID `json:"search_id"`
	DonorType   string    `json:"donor_type"`
	Succeeded   bool      `json:"succeeded"`
	ResultCount int       `json:"result_count"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher delivers search events.
type Publisher interface {
	PublishSearchCompleted(ctx context.Context, event SearchCompleted) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishSearchCompleted(context.Context, SearchCompleted) error { return nil }

// Producer is the subset of the franz-go client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes events as JSON records keyed by search id.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaPublisher publishes to topic. An empty topic uses the client's
// default produce topic.
func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishSearchCompleted(ctx context.Context, event SearchCompleted) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal search event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SearchID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte("search.completed")},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish search event: %w", err)
	}
	return nil
}
