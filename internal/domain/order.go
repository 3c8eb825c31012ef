// internal/domain/order.go
package domain

import (
	"fmt"
	"math"

	"github.com/juju/errors"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PreviousStatuses lists every status an order may be in before moving to next.
func PreviousStatuses(next OrderStatus) []OrderStatus {
	var from []OrderStatus
	for _, s := range []OrderStatus{StatusPending, StatusProcessing} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentDigital PaymentMethod = "digital"
	PaymentQR      PaymentMethod = "qr"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentDigital, PaymentQR:
		return true
	}
	return false
}

// InitialStatus is the status a fresh order takes for this payment path.
// Cash is settled at the counter; everything else waits for confirmation.
func (p PaymentMethod) InitialStatus() OrderStatus {
	if p == PaymentCash {
		return StatusCompleted
	}
	return StatusPending
}

// Cents converts a currency amount to integer cents.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Amount converts integer cents back to a currency amount.
func Amount(cents int64) float64 {
	return float64(cents) / 100
}

func NewOrderItem(item *MenuItem, qty int) OrderItem {
	return OrderItem{
		MenuItemID: item.ID,
		Name:       item.Name,
		Quantity:   qty,
		Price:      item.Price,
		Subtotal:   Amount(int64(qty) * Cents(item.Price)),
	}
}

// RecomputeTotal sets every line subtotal and the order total from quantities and prices.
func (o *Order) RecomputeTotal() {
	var total int64
	for i := range o.Items {
		line := int64(o.Items[i].Quantity) * Cents(o.Items[i].Price)
		o.Items[i].Subtotal = Amount(line)
		total += line
	}
	o.Total = Amount(total)
}

// CheckTotals verifies subtotal == quantity * price for each line and total == sum(subtotal).
func (o *Order) CheckTotals() error {
	var sum int64
	for _, it := range o.Items {
		want := int64(it.Quantity) * Cents(it.Price)
		if Cents(it.Subtotal) != want {
			return errors.NewNotValid(nil, fmt.Sprintf("item %d subtotal %.2f does not match %d x %.2f", it.MenuItemID, it.Subtotal, it.Quantity, it.Price))
		}
		sum += want
	}
	if Cents(o.Total) != sum {
		return errors.NewNotValid(nil, fmt.Sprintf("order total %.2f does not match items sum %.2f", o.Total, Amount(sum)))
	}
	return nil
}
