package reviews

import (
	"github.com/mkrylova/shopcore/internal/domain"
)

// Gate решает, имеет ли пользователь право оставить отзыв о товаре.
// Право даёт доставленный заказ с этим товаром при отсутствии уже
// существующего отзыва той же пары (user_id, product_id).
type Gate struct {
	orders  domain.OrderRepository
	reviews domain.ReviewRepository
}

// NewGate создаёт гейт проверки права на отзыв.
func NewGate(orders domain.OrderRepository, reviews domain.ReviewRepository) *Gate {
	return &Gate{orders: orders, reviews: reviews}
}

// CanReview возвращает true, если у пользователя есть доставленный заказ
// с товаром и отзыв ещё не оставлен. Функция тотальна над состоянием
// бизнес-данных: пустые идентификаторы — это просто отсутствие права,
// ошибка означает только сбой хранилища.
func (g *Gate) CanReview(userID, productID string) (bool, error) {
	if userID == "" || productID == "" {
		return false, nil
	}

	orders, err := g.orders.ListByUser(userID, 0)
	if err != nil {
		return false, err
	}

	delivered := false
	for i := range orders {
		if orders[i].Status != domain.OrderStatusDelivered {
			continue
		}
		if orders[i].ContainsProduct(productID) {
			delivered = true
			break
		}
	}
	if !delivered {
		return false, nil
	}

	exists, err := g.reviews.ExistsForUserProduct(userID, productID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
