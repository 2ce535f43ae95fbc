package reviews

import (
	"context"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mkrylova/shopcore/internal/domain"
	"github.com/mkrylova/shopcore/internal/storage/memory"
)

type reviewFixture struct {
	svc     *Service
	orders  domain.OrderRepository
	reviews domain.ReviewRepository
	outbox  domain.OutboxRepository
}

func newReviewFixture(t *testing.T, options ...ServiceOption) *reviewFixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	reviews := memory.NewReviewRepository()
	outbox := memory.NewOutboxRepository()
	logger := log.New().WithField("component", "reviews-test")

	options = append(options, WithoutMetrics())
	svc := NewService(reviews, NewGate(orders, reviews), outbox, logger, options...)

	return &reviewFixture{svc: svc, orders: orders, reviews: reviews, outbox: outbox}
}

func (f *reviewFixture) seedOrder(t *testing.T, userID, productID string, status domain.OrderStatus) {
	t.Helper()

	now := time.Now().UTC()
	err := f.orders.Create(domain.Order{
		ID:         "order-" + userID + "-" + productID + "-" + string(status),
		UserID:     userID,
		Status:     status,
		Currency:   "EUR",
		TotalMinor: 1000,
		Items: []domain.OrderItem{
			{ID: "item-" + productID, ProductID: productID, Name: "Product", Qty: 1, PriceMinor: 1000, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestService_CanReview(t *testing.T) {
	f := newReviewFixture(t)

	// Нет заказов вовсе.
	eligible, err := f.svc.CanReview("user-1", "prod-1")
	require.NoError(t, err)
	require.False(t, eligible)

	// Заказ есть, но не доставлен.
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusShipped)
	eligible, err = f.svc.CanReview("user-1", "prod-1")
	require.NoError(t, err)
	require.False(t, eligible)

	// Доставленный заказ с другим товаром не даёт права.
	f.seedOrder(t, "user-1", "prod-2", domain.OrderStatusDelivered)
	eligible, err = f.svc.CanReview("user-1", "prod-1")
	require.NoError(t, err)
	require.False(t, eligible)

	// Доставленный заказ с нужным товаром даёт право.
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)
	eligible, err = f.svc.CanReview("user-1", "prod-1")
	require.NoError(t, err)
	require.True(t, eligible)

	// После отзыва право пропадает.
	_, err = f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 5})
	require.NoError(t, err)

	eligible, err = f.svc.CanReview("user-1", "prod-1")
	require.NoError(t, err)
	require.False(t, eligible)
}

func TestService_CanReview_EmptyIDsAreNotEligible(t *testing.T) {
	f := newReviewFixture(t)

	// Проверка права тотальна: пустые идентификаторы — не ошибка,
	// а отсутствие права.
	eligible, err := f.svc.CanReview("", "prod-1")
	require.NoError(t, err)
	require.False(t, eligible)

	eligible, err = f.svc.CanReview("user-1", "")
	require.NoError(t, err)
	require.False(t, eligible)
}

func TestService_Add(t *testing.T) {
	f := newReviewFixture(t)
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)

	review, err := f.svc.Add(AddInput{
		UserID:    "user-1",
		ProductID: "prod-1",
		OrderID:   "order-1",
		Rating:    4,
		Comment:   "solid",
	})
	require.NoError(t, err)
	require.NotEmpty(t, review.ID)
	require.True(t, review.Verified)
	require.Equal(t, int32(0), review.Helpful)
	require.False(t, review.CreatedAt.IsZero())

	// Событие ушло в outbox.
	pending, err := f.outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "review.created", pending[0].EventType)
	require.Equal(t, "review", pending[0].AggregateType)
}

func TestService_Add_NotEligible(t *testing.T) {
	f := newReviewFixture(t)

	// Без доставленного заказа отзыв не принимается.
	_, err := f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 5})
	require.ErrorIs(t, err, domain.ErrReviewNotEligible)

	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusPending)
	_, err = f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 5})
	require.ErrorIs(t, err, domain.ErrReviewNotEligible)
}

func TestService_Add_DuplicateRejected(t *testing.T) {
	f := newReviewFixture(t)
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)

	_, err := f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 5})
	require.NoError(t, err)

	_, err = f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 3})
	require.ErrorIs(t, err, domain.ErrReviewNotEligible)

	reviews, err := f.svc.ListByProduct(context.Background(), "prod-1", 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, int32(5), reviews[0].Rating)
}

func TestService_Add_RatingValidation(t *testing.T) {
	f := newReviewFixture(t)
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)

	for _, rating := range []int32{0, -1, 6, 100} {
		_, err := f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: rating})
		require.ErrorIs(t, err, domain.ErrReviewRatingInvalid)
	}
}

func TestService_Add_ConcurrentSamePair(t *testing.T) {
	f := newReviewFixture(t)
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)

	const writers = 16

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, rejected int

	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 5})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case domain.IsNotEligible(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, succeeded)
	require.Equal(t, writers-1, rejected)

	reviews, err := f.svc.ListByProduct(context.Background(), "prod-1", 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
}

func TestService_ListByProduct_Cache(t *testing.T) {
	fake := newFakeCache()
	f := newReviewFixture(t, WithCache(fake, time.Minute))
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)

	_, err := f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 4})
	require.NoError(t, err)

	ctx := context.Background()

	// Первый запрос наполняет кэш.
	first, err := f.svc.ListByProduct(ctx, "prod-1", 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, fake.sets)

	// Второй обслуживается из кэша.
	second, err := f.svc.ListByProduct(ctx, "prod-1", 0)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, fake.sets)
	require.GreaterOrEqual(t, fake.hits, 1)

	// Новый отзыв другого пользователя инвалидирует кэш.
	f.seedOrder(t, "user-2", "prod-1", domain.OrderStatusDelivered)
	_, err = f.svc.Add(AddInput{UserID: "user-2", ProductID: "prod-1", Rating: 5})
	require.NoError(t, err)

	third, err := f.svc.ListByProduct(ctx, "prod-1", 0)
	require.NoError(t, err)
	require.Len(t, third, 2)
}

func TestService_ListByUser(t *testing.T) {
	f := newReviewFixture(t)
	f.seedOrder(t, "user-1", "prod-1", domain.OrderStatusDelivered)
	f.seedOrder(t, "user-1", "prod-2", domain.OrderStatusDelivered)

	_, err := f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-1", Rating: 4})
	require.NoError(t, err)
	_, err = f.svc.Add(AddInput{UserID: "user-1", ProductID: "prod-2", Rating: 5})
	require.NoError(t, err)

	reviews, err := f.svc.ListByUser("user-1", 0)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	_, err = f.svc.ListByUser("", 0)
	require.ErrorIs(t, err, domain.ErrUserRequired)
}

// fakeCache — in-memory реализация cache.Cache для тестов.
type fakeCache struct {
	mu    sync.Mutex
	data  map[string]string
	sets  int
	hits  int
	drops int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value.(string)
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	if ok {
		c.hits++
	}
	return value, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drops++
	delete(c.data, key)
	return nil
}

func (c *fakeCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}
