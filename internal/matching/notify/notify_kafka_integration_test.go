//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"donormatch/internal/matching/notify"
	"donormatch/internal/platform/config"
	"donormatch/internal/platform/kafka"
	"donormatch/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	kafka *containers.KafkaContainer
	cfg   config.Kafka
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.kafka = mgr.GetKafka(s.T())
	s.cfg = config.Kafka{
		Brokers:           s.kafka.Brokers,
		Topic:             "donormatch.searches." + uuid.NewString(),
		ClientID:          "donormatch-test",
		Partitions:        1,
		ReplicationFactor: 1,
	}
}

func (s *KafkaPublisherSuite) TestPublishSearchCompleted() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := kafka.New(ctx, s.cfg)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, s.cfg))
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, s.cfg), "existing topic is accepted")

	event := notify.SearchCompleted{
		SearchID:    uuid.New(),
		DonorType:   "cord",
		Succeeded:   true,
		ResultCount: 3,
		DurationMS:  12,
		CompletedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	publisher := notify.NewKafkaPublisher(producer, s.cfg.Topic)
	s.Require().NoError(publisher.PublishSearchCompleted(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.cfg.Brokers...),
		kgo.ConsumeTopics(s.cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal(event.SearchID.String(), string(records[0].Key))
	s.Equal([]kgo.RecordHeader{{Key: "event_type", Value: []byte("search.completed")}}, records[0].Headers)
	var got notify.SearchCompleted
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(event.SearchID, got.SearchID)
	s.Equal(event.ResultCount, got.ResultCount)
	s.True(event.CompletedAt.Equal(got.CompletedAt))
}
