package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-123",
		EventType:     string(EventTypeOrderStatusChanged),
		Payload:       []byte(`{"status":"shipped"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_TopicByAggregateType(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicReviewEvents {
			t.Errorf("expected topic %s, got %s", TopicReviewEvents, msg.Topic)
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var envelope struct {
			AggregateID string `json:"aggregate_id"`
			EventType   string `json:"event_type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return err
		}
		if envelope.EventType != string(EventTypeReviewCreated) {
			t.Errorf("unexpected event type in envelope: %s", envelope.EventType)
		}
		return nil
	})

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: AggregateTypeReview,
		AggregateID:   "review-1",
		EventType:     string(EventTypeReviewCreated),
		Payload:       []byte(`{"rating":5}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDLQPublisher_IgnoresAggregateRouting(t *testing.T) {
	t.Parallel()

	for _, aggregateType := range []string{AggregateTypeOrder, AggregateTypeReview, "unknown"} {
		mockProducer := mocks.NewSyncProducer(t, nil)
		mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != TopicDeadLetterQueue {
				t.Errorf("aggregate %q routed to %q, want %q", aggregateType, msg.Topic, TopicDeadLetterQueue)
			}
			return nil
		})

		producer := &Producer{
			producer: mockProducer,
			logger:   log.WithField("component", "kafka-outbox-publisher-test"),
		}
		publisher := NewDLQPublisher(producer)

		err := publisher.Publish(domain.OutboxMessage{
			ID:            "outbox-dlq-" + aggregateType,
			AggregateType: aggregateType,
			AggregateID:   "agg-1",
			EventType:     string(EventTypeOrderStatusChanged),
			Payload:       []byte(`{"status":"shipped"}`),
		})
		if err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		if err := mockProducer.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-3",
		AggregateType: "order",
		AggregateID:   "order-234",
		EventType:     string(EventTypeOrderStatusChanged),
		Payload:       []byte(`{"status":"cancelled"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-4"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}
