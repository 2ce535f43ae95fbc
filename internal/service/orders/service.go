package orders

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/domain"
	"github.com/mkrylova/shopcore/internal/messaging/kafka"
	"github.com/mkrylova/shopcore/internal/metrics"
)

// CreateItemInput описывает позицию создаваемого заказа.
type CreateItemInput struct {
	ProductID  string
	Name       string
	Qty        int32
	PriceMinor int64
	ImageRef   string
}

// CreateInput описывает параметры создания заказа.
// Сумма и валюта приходят от вызывающей стороны и не пересчитываются.
type CreateInput struct {
	UserID          string
	Currency        string
	TotalMinor      int64
	Items           []CreateItemInput
	ShippingAddress string
	PaymentMethod   string
	TrackingNumber  string
}

// Service реализует операции жизненного цикла заказа.
type Service struct {
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	metrics  *metrics.StoreMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	return &Service{
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewStoreMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	svc := NewService(orders, outbox, timeline, logger)
	svc.metrics = nil
	return svc
}

// Create валидирует вход, присваивает идентификаторы и сохраняет заказ
// в статусе pending. Статус от вызывающей стороны не принимается.
func (s *Service) Create(input CreateInput) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("create_order", time.Since(start))
		}
	}()

	now := time.Now().UTC()
	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          input.UserID,
		Status:          domain.OrderStatusPending,
		Currency:        input.Currency,
		TotalMinor:      input.TotalMinor,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		TrackingNumber:  input.TrackingNumber,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range input.Items {
		if item.ProductID == "" {
			return domain.Order{}, domain.ErrProductRequired
		}
		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  item.ProductID,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			ImageRef:   item.ImageRef,
			CreatedAt:  now,
		})
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}

	if err := s.orders.Create(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to create order")
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}

	s.emitEvent(&order, string(kafka.EventTypeOrderCreated), domain.TimelineEventOrderCreated, map[string]interface{}{
		"user_id":     order.UserID,
		"status":      string(order.Status),
		"total_minor": order.TotalMinor,
		"ts":          now.Format(time.RFC3339Nano),
	})

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"items":    len(order.Items),
	}).Info("order created")

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	return s.orders.Get(orderID)
}

// ListByUser возвращает заказы пользователя, самые свежие первыми.
func (s *Service) ListByUser(userID string, limit int) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.orders.ListByUser(userID, limit)
}

// Timeline возвращает события жизненного цикла заказа.
func (s *Service) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}
	if s.timeline == nil {
		return nil, nil
	}
	return s.timeline.List(orderID)
}

// StatusOption настраивает переход статуса.
type StatusOption func(*statusUpdate)

type statusUpdate struct {
	trackingNumber string
}

// WithTrackingNumber прикрепляет трек-номер доставки к переходу статуса
// (обычно вместе с переходом в shipped). Значение хранится как есть.
func WithTrackingNumber(trackingNumber string) StatusOption {
	return func(u *statusUpdate) {
		u.trackingNumber = trackingNumber
	}
}

// UpdateStatus применяет переход статуса согласно правилам жизненного цикла:
// только вперёд по цепочке pending → processing → shipped → delivered,
// cancelled допустим из любого нетерминального статуса.
//
// Если заказ не найден, операция завершается без ошибки и found=false.
// Повторная установка текущего статуса — идемпотентный no-op.
func (s *Service) UpdateStatus(orderID string, next domain.OrderStatus, options ...StatusOption) (domain.Order, bool, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("update_order_status", time.Since(start))
		}
	}()

	if orderID == "" {
		return domain.Order{}, false, domain.ErrOrderIDRequired
	}
	if !next.Valid() {
		return domain.Order{}, false, domain.ErrOrderStatusInvalid
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.WithFields(log.Fields{
				"order_id": orderID,
				"status":   string(next),
			}).Warn("status update for unknown order ignored")
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}

	if order.Status == next {
		return order, true, nil
	}

	if !order.Status.CanTransitionTo(next) {
		if s.metrics != nil {
			s.metrics.RecordStatusRejected()
		}
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"from":     string(order.Status),
			"to":       string(next),
		}).Warn("status transition rejected")
		return domain.Order{}, false, domain.ErrOrderStatusTransition
	}

	var upd statusUpdate
	for _, option := range options {
		option(&upd)
	}

	previous := order.Status
	if err := s.persistStatus(&order, next, upd.trackingNumber); err != nil {
		return domain.Order{}, false, err
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(next), next.Terminal())
	}

	eventType := kafka.EventTypeOrderStatusChanged
	timelineType := domain.TimelineEventOrderStatusChanged
	if next == domain.OrderStatusCancelled {
		eventType = kafka.EventTypeOrderCancelled
		timelineType = domain.TimelineEventOrderCancelled
	} else if next == domain.OrderStatusDelivered {
		eventType = kafka.EventTypeOrderDelivered
	}

	payload := map[string]interface{}{
		"from":       string(previous),
		"status":     string(order.Status),
		"updated_at": order.UpdatedAt.Format(time.RFC3339Nano),
		"ts":         order.UpdatedAt.Format(time.RFC3339Nano),
	}
	if order.TrackingNumber != "" {
		payload["tracking_number"] = order.TrackingNumber
	}
	s.emitEvent(&order, string(eventType), timelineType, payload)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     string(previous),
		"to":       string(order.Status),
	}).Info("order status updated")

	return order, true, nil
}

// persistStatus сохраняет новый статус (и трек-номер, если передан)
// с retry на version conflict.
func (s *Service) persistStatus(order *domain.Order, next domain.OrderStatus, trackingNumber string) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		previousStatus := order.Status
		order.Status = next
		if trackingNumber != "" {
			order.TrackingNumber = trackingNumber
		}
		order.UpdatedAt = time.Now().UTC()
		prevVersion := order.Version

		if err := s.orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := s.orders.Get(order.ID)
				if loadErr != nil {
					s.logger.WithError(loadErr).WithField("order_id", order.ID).Error("failed to reload order after conflict")
					return loadErr
				}

				// Свежая версия могла уже уйти дальше по жизненному циклу.
				if fresh.Status == next {
					*order = fresh
					return nil
				}
				if !fresh.Status.CanTransitionTo(next) {
					return domain.ErrOrderStatusTransition
				}

				*order = fresh
				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}

			order.Status = previousStatus
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt + 1,
			}).Error("failed to persist status")
			return err
		}

		order.Version = prevVersion + 1
		return nil
	}

	return domain.ErrOrderVersionConflict
}

// emitEvent пишет событие в outbox и timeline. Ошибки здесь не прерывают
// основную операцию: заказ уже сохранён.
func (s *Service) emitEvent(order *domain.Order, eventType, timelineType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID

	if s.outbox != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("marshal event failed")
			return
		}

		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := s.outbox.Enqueue(msg); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}

	if s.timeline != nil {
		occurred := order.UpdatedAt
		if occurred.IsZero() {
			occurred = time.Now().UTC()
		}
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     timelineType,
			Occurred: occurred,
		}
		if reason, ok := payload["reason"].(string); ok {
			event.Reason = reason
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    timelineType,
			}).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}
