package domain_test

import (
	"testing"
	"time"

	"github.com/mkrylova/shopcore/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:         "order-1",
		UserID:     "user-1",
		Status:     domain.OrderStatusPending,
		Currency:   "EUR",
		TotalMinor: 500,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductID: "prod-1", Name: "Product One", Qty: 5, PriceMinor: 100, CreatedAt: now},
		},
		ShippingAddress: "Main St 1",
		PaymentMethod:   "card",
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no user",
			mut: func(o *domain.Order) {
				o.UserID = ""
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "negative total",
			mut: func(o *domain.Order) {
				o.TotalMinor = -1
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].PriceMinor = -5
			},
		},
		{
			name: "unknown status",
			mut: func(o *domain.Order) {
				o.Status = domain.OrderStatus("refunded")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessing, true},
		{domain.OrderStatusProcessing, domain.OrderStatusShipped, true},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered, true},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{domain.OrderStatusProcessing, domain.OrderStatusCancelled, true},
		{domain.OrderStatusShipped, domain.OrderStatusCancelled, true},
		// Пропуск шагов и движение назад запрещены.
		{domain.OrderStatusPending, domain.OrderStatusShipped, false},
		{domain.OrderStatusPending, domain.OrderStatusDelivered, false},
		{domain.OrderStatusShipped, domain.OrderStatusPending, false},
		{domain.OrderStatusDelivered, domain.OrderStatusPending, false},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusProcessing, false},
		{domain.OrderStatusCancelled, domain.OrderStatusDelivered, false},
		{domain.OrderStatusPending, domain.OrderStatus("refunded"), false},
		{domain.OrderStatus("unknown"), domain.OrderStatusProcessing, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	if !domain.OrderStatusDelivered.Terminal() {
		t.Error("delivered must be terminal")
	}
	if !domain.OrderStatusCancelled.Terminal() {
		t.Error("cancelled must be terminal")
	}
	if domain.OrderStatusShipped.Terminal() {
		t.Error("shipped must not be terminal")
	}
}

func TestOrder_ContainsProduct(t *testing.T) {
	order := makeOrder()
	if !order.ContainsProduct("prod-1") {
		t.Error("expected order to contain prod-1")
	}
	if order.ContainsProduct("prod-2") {
		t.Error("expected order not to contain prod-2")
	}
}
