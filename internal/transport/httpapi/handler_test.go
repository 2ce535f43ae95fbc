package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mkrylova/shopcore/internal/domain"
	"github.com/mkrylova/shopcore/internal/service/orders"
	"github.com/mkrylova/shopcore/internal/service/reviews"
	"github.com/mkrylova/shopcore/internal/storage/memory"
)

type apiFixture struct {
	router http.Handler
	orders domain.OrderRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	orderRepo := memory.NewOrderRepository()
	reviewRepo := memory.NewReviewRepository()
	outboxRepo := memory.NewOutboxRepository()
	timelineRepo := memory.NewTimelineRepository()
	idemRepo := memory.NewIdempotencyRepository()

	logger := log.New().WithField("component", "httpapi-test")

	orderSvc := orders.NewServiceWithoutMetrics(orderRepo, outboxRepo, timelineRepo, logger)
	reviewSvc := reviews.NewService(reviewRepo, reviews.NewGate(orderRepo, reviewRepo), outboxRepo, logger, reviews.WithoutMetrics())

	handler := NewHandler(orderSvc, reviewSvc, logger)
	router := NewRouter(handler, RouterOptions{IdempotencyRepo: idemRepo})

	return &apiFixture{router: router, orders: orderRepo}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func validOrderRequest() CreateOrderRequest {
	return CreateOrderRequest{
		UserID:     "user-1",
		Currency:   "EUR",
		TotalMinor: 3000,
		Items: []CreateOrderItemDTO{
			{ProductID: "prod-1", Name: "Desk Lamp", Qty: 1, PriceMinor: 3000},
		},
		ShippingAddress: "Main St 1",
		PaymentMethod:   "card",
	}
}

func (f *apiFixture) createOrder(t *testing.T) OrderResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/orders", validOrderRequest(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (f *apiFixture) deliverOrder(t *testing.T, orderID string) {
	t.Helper()

	for _, status := range []string{"processing", "shipped", "delivered"} {
		rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+orderID+"/status",
			UpdateOrderStatusRequest{Status: status}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestAPI_CreateOrder(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.createOrder(t)
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "pending", resp.Status)
	require.Len(t, resp.Items, 1)
	require.Equal(t, int64(3000), resp.TotalMinor)
}

func TestAPI_CreateOrder_BadRequests(t *testing.T) {
	f := newAPIFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte("{broken")))
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	missing := validOrderRequest()
	missing.UserID = ""
	rec = f.do(t, http.MethodPost, "/api/v1/orders", missing, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "invalid_request", errResp.Error)

	empty := validOrderRequest()
	empty.Items = nil
	rec = f.do(t, http.MethodPost, "/api/v1/orders", empty, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_GetOrder(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createOrder(t)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, created.ID, resp.ID)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/missing-id", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_UpdateOrderStatus(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createOrder(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status",
		UpdateOrderStatusRequest{Status: "processing"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "processing", resp.Status)

	// Переход назад отклоняется.
	rec = f.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status",
		UpdateOrderStatusRequest{Status: "pending"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Несуществующий статус.
	rec = f.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status",
		UpdateOrderStatusRequest{Status: "archived"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Несуществующий заказ — no-op.
	rec = f.do(t, http.MethodPatch, "/api/v1/orders/missing-id/status",
		UpdateOrderStatusRequest{Status: "processing"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_UpdateOrderStatus_TrackingNumber(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createOrder(t)

	rec := f.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status",
		UpdateOrderStatusRequest{Status: "processing"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/orders/"+created.ID+"/status",
		UpdateOrderStatusRequest{Status: "shipped", TrackingNumber: "TRK-2024-0077"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "shipped", resp.Status)
	require.Equal(t, "TRK-2024-0077", resp.TrackingNumber)

	// Трек-номер виден и при последующем чтении заказа.
	rec = f.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "TRK-2024-0077", resp.TrackingNumber)
}

func TestAPI_CreateOrder_TrackingNumber(t *testing.T) {
	f := newAPIFixture(t)

	req := validOrderRequest()
	req.TrackingNumber = "TRK-PRE-9"

	rec := f.do(t, http.MethodPost, "/api/v1/orders", req, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "TRK-PRE-9", resp.TrackingNumber)
}

func TestAPI_ListUserOrders(t *testing.T) {
	f := newAPIFixture(t)
	f.createOrder(t)
	f.createOrder(t)

	rec := f.do(t, http.MethodGet, "/api/v1/users/user-1/orders", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/users/user-1/orders?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/users/user-2/orders", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp)
}

func TestAPI_OrderTimeline(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createOrder(t)
	f.deliverOrder(t, created.ID)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/"+created.ID+"/timeline", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []TimelineEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 4)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/missing-id/timeline", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ReviewFlow(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createOrder(t)

	eligibilityPath := "/api/v1/reviews/eligibility?user_id=user-1&product_id=prod-1"

	// До доставки права нет.
	rec := f.do(t, http.MethodGet, eligibilityPath, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var eligibility EligibilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eligibility))
	require.False(t, eligibility.Eligible)

	// Попытка отзыва до доставки — 422.
	reviewReq := CreateReviewRequest{UserID: "user-1", ProductID: "prod-1", OrderID: created.ID, Rating: 5, Comment: "nice"}
	rec = f.do(t, http.MethodPost, "/api/v1/reviews", reviewReq, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "review_not_eligible", errResp.Error)

	f.deliverOrder(t, created.ID)

	rec = f.do(t, http.MethodGet, eligibilityPath, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eligibility))
	require.True(t, eligibility.Eligible)

	rec = f.do(t, http.MethodPost, "/api/v1/reviews", reviewReq, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var review ReviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	require.True(t, review.Verified)
	require.Equal(t, int32(5), review.Rating)

	// Повторный отзыв той же пары — 422.
	rec = f.do(t, http.MethodPost, "/api/v1/reviews", reviewReq, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Отзыв виден в выборках.
	rec = f.do(t, http.MethodGet, "/api/v1/products/prod-1/reviews", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var productReviews []ReviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &productReviews))
	require.Len(t, productReviews, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/users/user-1/reviews", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var userReviews []ReviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &userReviews))
	require.Len(t, userReviews, 1)
}

func TestAPI_ReviewEligibility_MissingParams(t *testing.T) {
	f := newAPIFixture(t)

	// Пустые идентификаторы — не ошибка, а обычный отказ в праве на отзыв.
	for _, path := range []string{
		"/api/v1/reviews/eligibility?product_id=prod-1",
		"/api/v1/reviews/eligibility?user_id=user-1",
		"/api/v1/reviews/eligibility",
	} {
		rec := f.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var eligibility EligibilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eligibility))
		require.False(t, eligibility.Eligible, path)
	}
}

func TestAPI_ReviewRatingValidation(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createOrder(t)
	f.deliverOrder(t, created.ID)

	rec := f.do(t, http.MethodPost, "/api/v1/reviews",
		CreateReviewRequest{UserID: "user-1", ProductID: "prod-1", Rating: 6}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_IdempotentCreateOrder(t *testing.T) {
	f := newAPIFixture(t)

	headers := map[string]string{HeaderIdempotencyKey: "create-order-key-1"}

	first := f.do(t, http.MethodPost, "/api/v1/orders", validOrderRequest(), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	// Повтор с тем же ключом и телом возвращает сохранённый ответ.
	second := f.do(t, http.MethodPost, "/api/v1/orders", validOrderRequest(), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())

	userOrders, err := f.orders.ListByUser("user-1", 0)
	require.NoError(t, err)
	require.Len(t, userOrders, 1)

	// Тот же ключ с другим телом отклоняется.
	changed := validOrderRequest()
	changed.TotalMinor = 9999
	third := f.do(t, http.MethodPost, "/api/v1/orders", changed, headers)
	require.Equal(t, http.StatusUnprocessableEntity, third.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &errResp))
	require.Equal(t, "idempotency_key_reused", errResp.Error)
}

func TestAPI_IdempotencyKeysAreIndependent(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 3; i++ {
		headers := map[string]string{HeaderIdempotencyKey: fmt.Sprintf("key-%d", i)}
		rec := f.do(t, http.MethodPost, "/api/v1/orders", validOrderRequest(), headers)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	userOrders, err := f.orders.ListByUser("user-1", 0)
	require.NoError(t, err)
	require.Len(t, userOrders, 3)
}
