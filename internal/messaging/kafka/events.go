package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
	EventTypeOrderDelivered     EventType = "order.delivered"

	// Review события
	EventTypeReviewCreated EventType = "review.created"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "shopcore.order.events"
	TopicReviewEvents    = "shopcore.review.events"
	TopicDeadLetterQueue = "shopcore.dlq" // Dead Letter Queue для failed messages
)

// Типы агрегатов в outbox: по ним publisher выбирает топик.
const (
	AggregateTypeOrder  = "order"
	AggregateTypeReview = "review"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	UserID    string                 `json:"user_id"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ReviewEvent представляет событие отзыва
type ReviewEvent struct {
	EventType EventType `json:"event_type"`
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Rating    int32     `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, userID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewReviewEvent создает новое событие отзыва
func NewReviewEvent(eventType EventType, reviewID, userID, productID, orderID string, rating int32) *ReviewEvent {
	return &ReviewEvent{
		EventType: eventType,
		ReviewID:  reviewID,
		UserID:    userID,
		ProductID: productID,
		OrderID:   orderID,
		Rating:    rating,
		Timestamp: time.Now(),
	}
}
