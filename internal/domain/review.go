package domain

import "time"

const (
	// ReviewRatingMin и ReviewRatingMax ограничивают шкалу оценок.
	ReviewRatingMin = 1
	ReviewRatingMax = 5
)

// Review — отзыв покупателя о товаре, привязанный к подтверждающему покупку заказу.
type Review struct {
	ID        string
	UserID    string
	ProductID string
	// OrderID — заказ, подтверждающий факт покупки.
	OrderID string
	Rating  int32
	Comment string
	// Helpful — счётчик "полезно"; ядро его не изменяет.
	Helpful int32
	// Verified всегда true для отзывов, принятых через gate:
	// писать отзывы могут только покупатели с доставленным заказом.
	Verified  bool
	CreatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты отзыва.
func (r *Review) ValidateInvariants() []error {
	var errs []error

	if r.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if r.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if r.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if r.Rating < ReviewRatingMin || r.Rating > ReviewRatingMax {
		errs = append(errs, ErrReviewRatingInvalid)
	}

	return errs
}
