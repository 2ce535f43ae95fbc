package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/domain"
	"github.com/mkrylova/shopcore/internal/service/orders"
	"github.com/mkrylova/shopcore/internal/service/reviews"
)

// Handler обслуживает HTTP API заказов и отзывов.
type Handler struct {
	orders  *orders.Service
	reviews *reviews.Service
	logger  *log.Entry
}

// NewHandler создаёт HTTP handler поверх сервисов заказов и отзывов.
func NewHandler(orderSvc *orders.Service, reviewSvc *reviews.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "httpapi")
	}
	return &Handler{
		orders:  orderSvc,
		reviews: reviewSvc,
		logger:  logger,
	}
}

// CreateOrder — POST /api/v1/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	input := orders.CreateInput{
		UserID:          req.UserID,
		Currency:        req.Currency,
		TotalMinor:      req.TotalMinor,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TrackingNumber:  req.TrackingNumber,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, orders.CreateItemInput{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			ImageRef:   item.ImageRef,
		})
	}

	order, err := h.orders.Create(input)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// GetOrder — GET /api/v1/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.orders.Get(orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// GetOrderTimeline — GET /api/v1/orders/{orderID}/timeline.
func (h *Handler) GetOrderTimeline(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	// Несуществующий заказ отличаем от заказа без событий.
	if _, err := h.orders.Get(orderID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	events, err := h.orders.Timeline(orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapTimelineToResponse(events))
}

// UpdateOrderStatus — PATCH /api/v1/orders/{orderID}/status.
//
// Обновление несуществующего заказа — это no-op: возвращаем 204,
// чтобы повторная доставка события смены статуса не падала.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	var statusOptions []orders.StatusOption
	if req.TrackingNumber != "" {
		statusOptions = append(statusOptions, orders.WithTrackingNumber(req.TrackingNumber))
	}

	order, found, err := h.orders.UpdateStatus(orderID, domain.OrderStatus(req.Status), statusOptions...)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ListUserOrders — GET /api/v1/users/{userID}/orders.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := parseLimit(r)

	userOrders, err := h.orders.ListByUser(userID, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrdersToResponse(userOrders))
}

// ListUserReviews — GET /api/v1/users/{userID}/reviews.
func (h *Handler) ListUserReviews(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := parseLimit(r)

	userReviews, err := h.reviews.ListByUser(userID, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapReviewsToResponse(userReviews))
}

// ReviewEligibility — GET /api/v1/reviews/eligibility?user_id=...&product_id=...
func (h *Handler) ReviewEligibility(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	productID := r.URL.Query().Get("product_id")

	eligible, err := h.reviews.CanReview(userID, productID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EligibilityResponse{
		UserID:    userID,
		ProductID: productID,
		Eligible:  eligible,
	})
}

// CreateReview — POST /api/v1/reviews.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	review, err := h.reviews.Add(reviews.AddInput{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapReviewToResponse(review))
}

// ListProductReviews — GET /api/v1/products/{productID}/reviews.
func (h *Handler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	limit := parseLimit(r)

	productReviews, err := h.reviews.ListByProduct(r.Context(), productID, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapReviewsToResponse(productReviews))
}

// writeDomainError транслирует доменные ошибки в HTTP статусы.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrReviewNotEligible):
		writeError(w, http.StatusUnprocessableEntity, "review_not_eligible", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderStatusTransition):
		writeError(w, http.StatusConflict, "status_transition_rejected", err.Error())
	case errors.Is(err, domain.ErrOrderVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", err.Error())
	case errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrTotalNegative),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrOrderStatusInvalid),
		errors.Is(err, domain.ErrReviewRatingInvalid):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("internal error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
