package httpapi

import (
	"time"

	"github.com/mkrylova/shopcore/internal/domain"
)

// CreateOrderRequest — тело POST /api/v1/orders.
type CreateOrderRequest struct {
	UserID          string               `json:"user_id"`
	Currency        string               `json:"currency"`
	TotalMinor      int64                `json:"total_minor"`
	Items           []CreateOrderItemDTO `json:"items"`
	ShippingAddress string               `json:"shipping_address,omitempty"`
	PaymentMethod   string               `json:"payment_method,omitempty"`
	TrackingNumber  string               `json:"tracking_number,omitempty"`
}

// CreateOrderItemDTO — позиция создаваемого заказа.
type CreateOrderItemDTO struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
	ImageRef   string `json:"image_ref,omitempty"`
}

// UpdateOrderStatusRequest — тело PATCH /api/v1/orders/{orderID}/status.
// Трек-номер опционален и обычно сопровождает переход в shipped.
type UpdateOrderStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// OrderResponse — представление заказа в ответах API.
type OrderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	TotalMinor      int64               `json:"total_minor"`
	Items           []OrderItemResponse `json:"items"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	PaymentMethod   string              `json:"payment_method,omitempty"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	Version         int64               `json:"version"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

// OrderItemResponse — позиция заказа в ответах API.
type OrderItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
	ImageRef   string `json:"image_ref,omitempty"`
}

// TimelineEventResponse — событие жизненного цикла заказа.
type TimelineEventResponse struct {
	Type     string `json:"type"`
	Reason   string `json:"reason,omitempty"`
	Occurred string `json:"occurred"`
}

// CreateReviewRequest — тело POST /api/v1/reviews.
type CreateReviewRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id,omitempty"`
	Rating    int32  `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// ReviewResponse — представление отзыва в ответах API.
type ReviewResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	OrderID   string `json:"order_id,omitempty"`
	Rating    int32  `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	Helpful   int32  `json:"helpful"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"created_at"`
}

// EligibilityResponse — ответ GET /api/v1/reviews/eligibility.
type EligibilityResponse struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Eligible  bool   `json:"eligible"`
}

// ErrorResponse — единый формат ошибок API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(order domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			ImageRef:   item.ImageRef,
		}
	}

	return OrderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          string(order.Status),
		Currency:        order.Currency,
		TotalMinor:      order.TotalMinor,
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		TrackingNumber:  order.TrackingNumber,
		Version:         order.Version,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       order.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func mapOrdersToResponse(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrderToResponse(orders[i])
	}
	return out
}

func mapReviewToResponse(review domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        review.ID,
		UserID:    review.UserID,
		ProductID: review.ProductID,
		OrderID:   review.OrderID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Helpful:   review.Helpful,
		Verified:  review.Verified,
		CreatedAt: review.CreatedAt.Format(time.RFC3339Nano),
	}
}

func mapReviewsToResponse(reviews []domain.Review) []ReviewResponse {
	out := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		out[i] = mapReviewToResponse(reviews[i])
	}
	return out
}

func mapTimelineToResponse(events []domain.TimelineEvent) []TimelineEventResponse {
	out := make([]TimelineEventResponse, len(events))
	for i, event := range events {
		out[i] = TimelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred.Format(time.RFC3339Nano),
		}
	}
	return out
}
