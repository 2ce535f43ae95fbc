package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в портале.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, обработка ещё не началась.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ принят в обработку.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен покупателю (терминальный статус).
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён до доставки (терминальный статус).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderStatusRank задаёт порядок прямых переходов pending → ... → delivered.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// Valid проверяет, что статус входит в набор поддерживаемых значений.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода по state machine заказа:
// строго вперёд по цепочке pending → processing → shipped → delivered,
// плюс отмена из любого нетерминального статуса.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return orderStatusRank[next] == orderStatusRank[s]+1
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	// Name — название товара на момент покупки.
	Name string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// ImageRef — ссылка на изображение товара; хранится как есть.
	ImageRef string
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID     string
	UserID string
	Status OrderStatus
	// Currency и TotalMinor приходят от вызывающей стороны;
	// сумма заказа ядром не пересчитывается.
	Currency   string
	TotalMinor int64
	Items      []OrderItem
	// ShippingAddress, PaymentMethod и TrackingNumber непрозрачны для ядра:
	// сохраняются и возвращаются дословно.
	ShippingAddress string
	PaymentMethod   string
	TrackingNumber  string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	return errs
}

// ContainsProduct сообщает, есть ли товар среди позиций заказа.
func (o *Order) ContainsProduct(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
