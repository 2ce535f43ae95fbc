package domain

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByUser возвращает заказы пользователя, отсортированные по CreatedAt
	// по убыванию (самые свежие первыми), с опциональным ограничением на количество.
	ListByUser(userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// ReviewRepository описывает требования к хранилищу отзывов.
type ReviewRepository interface {
	// Create сохраняет новый отзыв. Возвращает ErrReviewDuplicate, если для пары
	// (user_id, product_id) отзыв уже существует.
	Create(review Review) error
	// ListByProduct возвращает отзывы о товаре, отсортированные по CreatedAt
	// по убыванию, с опциональным ограничением на количество.
	ListByProduct(productID string, limit int) ([]Review, error)
	// ListByUser возвращает отзывы пользователя с той же сортировкой.
	ListByUser(userID string, limit int) ([]Review, error)
	// ExistsForUserProduct сообщает, есть ли отзыв для пары (user_id, product_id).
	ExistsForUserProduct(userID, productID string) (bool, error)
}
