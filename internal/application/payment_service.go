// internal/application/payment_service.go
package application

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

// PaymentWindow is how long a payment request stays payable.
const PaymentWindow = 15 * time.Minute

// PaymentRequest is what the counter shows the customer to pay a pending order.
type PaymentRequest struct {
	OrderID       int64                `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	GrossAmount   string               `json:"grossAmount"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	QRString      string               `json:"qrString"`
	ExpiresAt     time.Time            `json:"expiresAt"`
}

// PaymentNotification is the callback body sent by the payment gateway.
// OrderID carries the numeric order id the payment was created for.
type PaymentNotification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code" binding:"required"`
	GrossAmount       string `json:"gross_amount" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	TransactionID     string `json:"transaction_id"`
	SignatureKey      string `json:"signature_key" binding:"required"`
}

type PaymentStatus struct {
	OrderID       int64                `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	Status        domain.OrderStatus   `json:"status"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Total         float64              `json:"total"`
	Paid          bool                 `json:"paid"`
}

type PaymentService struct {
	orders    *OrderService
	serverKey string
	clock     clock.Clock
}

func NewPaymentService(orders *OrderService, serverKey string, clk clock.Clock) *PaymentService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &PaymentService{orders: orders, serverKey: serverKey, clock: clk}
}

func grossAmount(total float64) string {
	return strconv.FormatFloat(domain.Amount(domain.Cents(total)), 'f', 2, 64)
}

// Signature computes the gateway signature:
// sha512(order_id + status_code + gross_amount + server_key) in hex.
func Signature(orderID, statusCode, gross, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + gross + serverKey))
	return hex.EncodeToString(sum[:])
}

// Create issues a payment request for a pending, non-cash order.
func (s *PaymentService) Create(ctx context.Context, viewer *domain.User, orderID int64) (*PaymentRequest, error) {
	order, err := s.orders.Get(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod == domain.PaymentCash {
		return nil, errors.NewNotValid(nil, "Cash orders are settled at the counter")
	}
	if order.Status != domain.StatusPending {
		return nil, errors.NewNotValid(nil, fmt.Sprintf("Order is %s, not awaiting payment", order.Status))
	}
	gross := grossAmount(order.Total)
	return &PaymentRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		GrossAmount:   gross,
		PaymentMethod: order.PaymentMethod,
		QRString:      fmt.Sprintf("POS|%s|%s", order.OrderNumber, gross),
		ExpiresAt:     s.clock.Now().Add(PaymentWindow),
	}, nil
}

// Notify applies a gateway callback after checking its signature. Settled
// payments complete the order; denied, cancelled and expired ones cancel it.
func (s *PaymentService) Notify(ctx context.Context, n PaymentNotification) (*domain.Order, error) {
	if s.serverKey == "" {
		return nil, errors.NewNotValid(nil, "Payment gateway is not configured")
	}
	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, s.serverKey)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(n.SignatureKey)), []byte(want)) != 1 {
		return nil, errors.NewForbidden(nil, "Invalid signature")
	}

	orderID, err := strconv.ParseInt(n.OrderID, 10, 64)
	if err != nil {
		return nil, errors.NewNotValid(nil, fmt.Sprintf("Unknown order %q", n.OrderID))
	}
	order, err := s.orders.orders.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if grossAmount(order.Total) != n.GrossAmount {
		return nil, errors.NewNotValid(nil, "Gross amount does not match the order total")
	}

	var next domain.OrderStatus
	switch n.TransactionStatus {
	case "capture", "settlement":
		next = domain.StatusCompleted
	case "deny", "cancel", "expire", "failure":
		next = domain.StatusCancelled
	default:
		logger.Infof("payment for order %d is %s", order.ID, n.TransactionStatus)
		return order, nil
	}
	if order.Status == next || order.Status.Terminal() {
		// gateways retry notifications
		return order, nil
	}
	return s.orders.transition(ctx, order.ID, next)
}

func (s *PaymentService) Status(ctx context.Context, viewer *domain.User, orderID int64) (*PaymentStatus, error) {
	order, err := s.orders.Get(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatus{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Paid:          order.Status == domain.StatusCompleted,
	}, nil
}
