package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkrylova/shopcore/internal/domain"
)

// RouterOptions задаёт зависимости HTTP API.
type RouterOptions struct {
	// IdempotencyRepo включает поддержку заголовка Idempotency-Key
	// на мутирующих запросах; nil отключает её.
	IdempotencyRepo domain.IdempotencyRepository
	IdempotencyTTL  time.Duration
}

// NewRouter собирает chi-роутер со всеми маршрутами API.
func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.IdempotencyRepo != nil {
				r.Use(IdempotencyMiddleware(opts.IdempotencyRepo, opts.IdempotencyTTL, nil))
			}
			r.Post("/orders", handler.CreateOrder)
			r.Patch("/orders/{orderID}/status", handler.UpdateOrderStatus)
			r.Post("/reviews", handler.CreateReview)
		})

		r.Get("/orders/{orderID}", handler.GetOrder)
		r.Get("/orders/{orderID}/timeline", handler.GetOrderTimeline)
		r.Get("/users/{userID}/orders", handler.ListUserOrders)
		r.Get("/users/{userID}/reviews", handler.ListUserReviews)
		r.Get("/reviews/eligibility", handler.ReviewEligibility)
		r.Get("/products/{productID}/reviews", handler.ListProductReviews)
	})

	return r
}
