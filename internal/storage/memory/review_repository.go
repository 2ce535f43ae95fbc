package memory

import (
	"sort"
	"sync"

	"github.com/mkrylova/shopcore/internal/domain"
)

// reviewRepositoryInMemory — in-memory реализация ReviewRepository.
// Уникальность пары (user_id, product_id) обеспечивается отдельным индексом.
type reviewRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[string]domain.Review
	byPair map[string]string
}

// NewReviewRepository возвращает in-memory репозиторий отзывов.
func NewReviewRepository() domain.ReviewRepository {
	return &reviewRepositoryInMemory{
		items:  make(map[string]domain.Review),
		byPair: make(map[string]string),
	}
}

// Create сохраняет отзыв; для уже занятой пары (user_id, product_id)
// возвращает ErrReviewDuplicate.
func (r *reviewRepositoryInMemory) Create(review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(review.UserID, review.ProductID)
	if _, exists := r.byPair[key]; exists {
		return domain.ErrReviewDuplicate
	}
	if _, exists := r.items[review.ID]; exists {
		return domain.ErrReviewDuplicate
	}

	r.items[review.ID] = review
	r.byPair[key] = review.ID
	return nil
}

// ListByProduct возвращает отзывы о товаре, самые свежие первыми.
func (r *reviewRepositoryInMemory) ListByProduct(productID string, limit int) ([]domain.Review, error) {
	return r.list(func(review domain.Review) bool {
		return review.ProductID == productID
	}, limit), nil
}

// ListByUser возвращает отзывы пользователя, самые свежие первыми.
func (r *reviewRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Review, error) {
	return r.list(func(review domain.Review) bool {
		return review.UserID == userID
	}, limit), nil
}

// ExistsForUserProduct сообщает, есть ли отзыв для пары (user_id, product_id).
func (r *reviewRepositoryInMemory) ExistsForUserProduct(userID, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.byPair[pairKey(userID, productID)]
	return exists, nil
}

func (r *reviewRepositoryInMemory) list(match func(domain.Review) bool, limit int) []domain.Review {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Review, 0, len(r.items))
	for _, review := range r.items {
		if match(review) {
			result = append(result, review)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result
}

func pairKey(userID, productID string) string {
	return userID + "\x00" + productID
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
