//go:build integration

package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"cityconnect/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaPublisherSuite) TestPublishedEventIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	const topic = "cityconnect.events.test"

	s.Require().NoError(EnsureTopic(ctx, s.brokers, topic))
	s.Require().NoError(EnsureTopic(ctx, s.brokers, topic), "second call must tolerate an existing topic")

	publisher, err := NewKafkaPublisher(s.brokers, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	s.Require().NoError(publisher.Ping(ctx))

	sent := Event{
		Type:       EventBillSettled,
		ResourceID: "bill-1",
		SubjectID:  "citizen-1",
		OccurredAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Attributes: map[string]string{"amount": "4200"},
	}
	publisher.Publish(ctx, sent)
	s.Require().NoError(publisher.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	record := records[0]
	s.Equal("bill-1", string(record.Key))
	got, err := Decode(record.Value)
	s.Require().NoError(err)
	s.Equal(sent.Type, got.Type)
	s.Equal(sent.SubjectID, got.SubjectID)
	s.Equal("4200", got.Attributes["amount"])
	s.True(sent.OccurredAt.Equal(got.OccurredAt))
}
