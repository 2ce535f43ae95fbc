package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/cache"
	"github.com/mkrylova/shopcore/internal/domain"
	"github.com/mkrylova/shopcore/internal/messaging/kafka"
	"github.com/mkrylova/shopcore/internal/metrics"
)

const (
	defaultCacheTTL    = 30 * time.Second
	cacheOpProductList = "product_reviews"
)

// Service реализует добавление отзывов и выборки с опциональным кэшем.
type Service struct {
	reviews  domain.ReviewRepository
	gate     *Gate
	outbox   domain.OutboxRepository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *log.Entry
	metrics  *metrics.StoreMetrics

	// mu сериализует проверку права и запись отзыва: между CanReview
	// и Create не должно быть окна для второго отзыва той же пары.
	mu sync.Mutex
}

// ServiceOption настраивает Service.
type ServiceOption func(*Service)

// WithCache включает кэширование списков отзывов.
func WithCache(c cache.Cache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithoutMetrics отключает метрики (для тестов).
func WithoutMetrics() ServiceOption {
	return func(s *Service) {
		s.metrics = nil
	}
}

// NewService создаёт сервис отзывов.
func NewService(
	reviews domain.ReviewRepository,
	gate *Gate,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	options ...ServiceOption,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "reviews")
	}
	svc := &Service{
		reviews:  reviews,
		gate:     gate,
		outbox:   outbox,
		cacheTTL: defaultCacheTTL,
		logger:   logger,
		metrics:  metrics.NewStoreMetrics(),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// AddInput описывает параметры добавления отзыва.
type AddInput struct {
	UserID    string
	ProductID string
	OrderID   string
	Rating    int32
	Comment   string
}

// CanReview сообщает, имеет ли пользователь право оставить отзыв о товаре.
func (s *Service) CanReview(userID, productID string) (bool, error) {
	eligible, err := s.gate.CanReview(userID, productID)
	if err == nil && s.metrics != nil {
		s.metrics.RecordEligibilityCheck(eligible)
	}
	return eligible, err
}

// Add валидирует и сохраняет отзыв. Право на отзыв перепроверяется
// под локом непосредственно перед записью: параллельные попытки одной
// пары (user_id, product_id) дают ровно один сохранённый отзыв,
// остальные завершаются ErrReviewNotEligible.
func (s *Service) Add(input AddInput) (domain.Review, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("add_review", time.Since(start))
		}
	}()

	if input.UserID == "" {
		return domain.Review{}, domain.ErrUserRequired
	}
	if input.ProductID == "" {
		return domain.Review{}, domain.ErrProductRequired
	}
	if input.Rating < domain.ReviewRatingMin || input.Rating > domain.ReviewRatingMax {
		if s.metrics != nil {
			s.metrics.RecordReviewRejected("invalid_rating")
		}
		return domain.Review{}, domain.ErrReviewRatingInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eligible, err := s.gate.CanReview(input.UserID, input.ProductID)
	if err != nil {
		return domain.Review{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordEligibilityCheck(eligible)
	}
	if !eligible {
		if s.metrics != nil {
			s.metrics.RecordReviewRejected("not_eligible")
		}
		return domain.Review{}, domain.ErrReviewNotEligible
	}

	review := domain.Review{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		ProductID: input.ProductID,
		OrderID:   input.OrderID,
		Rating:    input.Rating,
		Comment:   input.Comment,
		Helpful:   0,
		Verified:  true,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.reviews.Create(review); err != nil {
		// Гонка с другим writer той же пары: хранилище удержало
		// уникальность, для вызывающей стороны это отказ в праве.
		if errors.Is(err, domain.ErrReviewDuplicate) {
			if s.metrics != nil {
				s.metrics.RecordReviewRejected("not_eligible")
			}
			return domain.Review{}, domain.ErrReviewNotEligible
		}
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id":    input.UserID,
			"product_id": input.ProductID,
		}).Error("failed to create review")
		return domain.Review{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordReviewAccepted()
	}

	s.emitReviewCreated(review)
	s.invalidateProductCache(review.ProductID)

	s.logger.WithFields(log.Fields{
		"review_id":  review.ID,
		"user_id":    review.UserID,
		"product_id": review.ProductID,
		"rating":     review.Rating,
	}).Info("review created")

	return review, nil
}

// ListByProduct возвращает отзывы о товаре, самые свежие первыми.
// При включённом кэше полная выборка (limit == 0) обслуживается из него.
func (s *Service) ListByProduct(ctx context.Context, productID string, limit int) ([]domain.Review, error) {
	if productID == "" {
		return nil, domain.ErrProductRequired
	}

	useCache := s.cache != nil && limit == 0
	if useCache {
		if cached, ok := s.readProductCache(ctx, productID); ok {
			return cached, nil
		}
	}

	reviews, err := s.reviews.ListByProduct(productID, limit)
	if err != nil {
		return nil, err
	}

	if useCache {
		s.writeProductCache(ctx, productID, reviews)
	}
	return reviews, nil
}

// ListByUser возвращает отзывы пользователя, самые свежие первыми.
func (s *Service) ListByUser(userID string, limit int) ([]domain.Review, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.reviews.ListByUser(userID, limit)
}

func (s *Service) emitReviewCreated(review domain.Review) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"review_id":  review.ID,
		"user_id":    review.UserID,
		"product_id": review.ProductID,
		"order_id":   review.OrderID,
		"rating":     review.Rating,
		"ts":         review.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("review_id", review.ID).Error("marshal review event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "review",
		AggregateID:   review.ID,
		EventType:     string(kafka.EventTypeReviewCreated),
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("review_id", review.ID).Error("enqueue review event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) readProductCache(ctx context.Context, productID string) ([]domain.Review, bool) {
	key := s.cache.GenerateKey(cacheOpProductList, productID)
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("review cache read failed")
		return nil, false
	}
	if raw == "" {
		return nil, false
	}

	var reviews []domain.Review
	if err := json.Unmarshal([]byte(raw), &reviews); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("review cache decode failed")
		return nil, false
	}
	return reviews, true
}

func (s *Service) writeProductCache(ctx context.Context, productID string, reviews []domain.Review) {
	data, err := json.Marshal(reviews)
	if err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("review cache encode failed")
		return
	}

	key := s.cache.GenerateKey(cacheOpProductList, productID)
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("review cache write failed")
	}
}

func (s *Service) invalidateProductCache(productID string) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := s.cache.GenerateKey(cacheOpProductList, productID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("product_id", productID).Warn("review cache invalidation failed")
	}
}
