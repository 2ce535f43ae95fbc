package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkrylova/shopcore/internal/domain"
)

// outboxEnvelope — формат, в котором outbox-событие уходит в Kafka.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxTopicPublisher публикует outbox-сообщения в Kafka.
// В режиме маршрутизации топик выбирается по типу агрегата: заказы и
// отзывы уходят в разные топики. С фиксированным топиком маршрутизация
// выключена — все сообщения идут только в него.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	// routes == nil означает фиксированный топик без маршрутизации.
	routes map[string]string
}

// NewOutboxPublisher создаёт publisher основного потока событий.
// Тип агрегата определяет топик; defaultTopic остаётся для сообщений
// с неизвестным типом агрегата.
func NewOutboxPublisher(producer *Producer, defaultTopic string) domain.OutboxPublisher {
	if defaultTopic == "" {
		defaultTopic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    defaultTopic,
		routes: map[string]string{
			AggregateTypeOrder:  TopicOrderEvents,
			AggregateTypeReview: TopicReviewEvents,
		},
	}
}

// NewDLQPublisher создаёт publisher с фиксированным DLQ-топиком.
// Тип агрегата здесь на выбор топика не влияет: сообщение не смогло
// попасть в основной поток и должно осесть именно в DLQ, а не вернуться
// в shopcore.order.events/shopcore.review.events.
func NewDLQPublisher(producer *Producer) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    TopicDeadLetterQueue,
	}
}

// topicFor возвращает топик для сообщения с данным типом агрегата.
func (p *OutboxTopicPublisher) topicFor(aggregateType string) string {
	if mapped, ok := p.routes[aggregateType]; ok {
		return mapped
	}
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := outboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event.AggregateType), key, envelope)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
