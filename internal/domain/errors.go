package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductRequired = errors.New("product_id is required")
	// Ошибка отсутствующего идентификатора заказа в отзыве.
	ErrOrderIDRequired = errors.New("order_id is required")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderStatusInvalid — статус вне набора поддерживаемых значений.
	ErrOrderStatusInvalid = errors.New("order status is not supported")
	// ErrOrderStatusTransition — запрошенный переход нарушает state machine заказа.
	ErrOrderStatusTransition = errors.New("order status transition is not allowed")
	// ErrReviewRatingInvalid — оценка вне шкалы 1..5.
	ErrReviewRatingInvalid = errors.New("review rating must be between 1 and 5")
	// ErrReviewNotEligible — пользователь сейчас не вправе оставить отзыв о товаре.
	ErrReviewNotEligible = errors.New("user is not eligible to review this product")
	// ErrReviewDuplicate — для пары (user_id, product_id) отзыв уже существует.
	ErrReviewDuplicate = errors.New("review already exists for this user and product")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrIdempotencyKeyRequired — пустой idempotency ключ.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой hash запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — запись с таким ключом уже создана.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — запись с ключом не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with a different request")
)

// IsNotEligible проверяет, является ли ошибка отказом review gate.
func IsNotEligible(err error) bool {
	return errors.Is(err, ErrReviewNotEligible)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
