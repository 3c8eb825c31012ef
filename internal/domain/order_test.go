// internal/domain/order_test.go
package domain

import (
	"testing"

	"github.com/juju/errors"
)

func TestOrder_RecomputeTotal(t *testing.T) {
	espresso := &MenuItem{ID: 1, Name: "Espresso", Price: 2.5}
	cappuccino := &MenuItem{ID: 2, Name: "Cappuccino", Price: 4.0}
	americano := &MenuItem{ID: 3, Name: "Iced Americano", Price: 3.75}

	tests := []struct {
		name  string
		items []OrderItem
		want  float64
	}{
		{"empty", nil, 0},
		{"two espresso one cappuccino", []OrderItem{NewOrderItem(espresso, 2), NewOrderItem(cappuccino, 1)}, 9.00},
		{"three americano", []OrderItem{NewOrderItem(americano, 3)}, 11.25},
		{"fractional prices", []OrderItem{{MenuItemID: 9, Quantity: 3, Price: 0.1}, {MenuItemID: 10, Quantity: 7, Price: 0.2}}, 1.70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Items: tt.items}
			o.RecomputeTotal()
			if Cents(o.Total) != Cents(tt.want) {
				t.Errorf("Total = %v, want %v", o.Total, tt.want)
			}
			if err := o.CheckTotals(); err != nil {
				t.Errorf("CheckTotals() unexpected error: %v", err)
			}
			var sum int64
			for _, it := range o.Items {
				if Cents(it.Subtotal) != int64(it.Quantity)*Cents(it.Price) {
					t.Errorf("subtotal %v != %d x %v", it.Subtotal, it.Quantity, it.Price)
				}
				sum += Cents(it.Subtotal)
			}
			if sum != Cents(o.Total) {
				t.Errorf("sum(subtotal) = %d cents, total = %d cents", sum, Cents(o.Total))
			}
		})
	}
}

func TestOrder_CheckTotalsDetectsMismatch(t *testing.T) {
	o := &Order{Items: []OrderItem{{MenuItemID: 1, Quantity: 2, Price: 2.5, Subtotal: 5}}, Total: 6}
	if err := o.CheckTotals(); !errors.Is(err, errors.NotValid) {
		t.Errorf("CheckTotals() error = %v, want NotValid", err)
	}
	o = &Order{Items: []OrderItem{{MenuItemID: 1, Quantity: 2, Price: 2.5, Subtotal: 4}}, Total: 4}
	if err := o.CheckTotals(); !errors.Is(err, errors.NotValid) {
		t.Errorf("CheckTotals() error = %v, want NotValid", err)
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	from := PreviousStatuses(StatusCompleted)
	if len(from) != 2 || from[0] != StatusPending || from[1] != StatusProcessing {
		t.Errorf("PreviousStatuses(completed) = %v", from)
	}
}

func TestPaymentMethod_InitialStatus(t *testing.T) {
	if PaymentCash.InitialStatus() != StatusCompleted {
		t.Errorf("cash should complete immediately")
	}
	for _, p := range []PaymentMethod{PaymentCard, PaymentDigital, PaymentQR} {
		if p.InitialStatus() != StatusPending {
			t.Errorf("%s should start pending", p)
		}
	}
	if PaymentMethod("cheque").Valid() {
		t.Errorf("cheque should not be a valid payment method")
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(Page{Page: 2, Limit: 10}, 25)
	if p.LastPage != 3 || p.CurrentPage != 2 || p.PerPage != 10 {
		t.Errorf("NewPagination() = %+v", p)
	}
	p = NewPagination(Page{}, 0)
	if p.LastPage != 0 || p.PerPage != 10 || p.CurrentPage != 1 {
		t.Errorf("NewPagination() defaults = %+v", p)
	}
}
