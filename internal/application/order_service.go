// internal/application/order_service.go
package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/cart"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
)

type OrderService struct {
	orders   ports.OrderRepository
	menu     ports.MenuRepository
	cache    ports.CachePort
	events   ports.EventPublisher
	clock    clock.Clock
	observer Observer
}

func NewOrderService(orders ports.OrderRepository, menu ports.MenuRepository, cache ports.CachePort, events ports.EventPublisher, clk clock.Clock, observer Observer) *OrderService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &OrderService{orders: orders, menu: menu, cache: cache, events: events, clock: clk, observer: observerOrNop(observer)}
}

type orderEvent struct {
	OrderID       int64                `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	CashierID     int64                `json:"cashierId"`
	Total         float64              `json:"total"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Status        domain.OrderStatus   `json:"status"`
}

func newOrderEvent(o *domain.Order) orderEvent {
	return orderEvent{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CashierID:     o.CashierID,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
	}
}

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// Create prices the request from the catalog and stores the order. Cash
// orders are completed and take stock immediately.
func (s *OrderService) Create(ctx context.Context, cashier *domain.User, req *cart.OrderRequest) (*domain.Order, error) {
	if cashier == nil {
		return nil, errors.NewUnauthorized(nil, "Not authenticated")
	}
	if req == nil || len(req.Items) == 0 {
		return nil, errors.NewNotValid(nil, "Order must contain at least one item")
	}
	if !req.PaymentMethod.Valid() {
		return nil, errors.NewNotValid(nil, fmt.Sprintf("Invalid payment method %q", req.PaymentMethod))
	}

	// merge repeated lines so stock is checked against the full quantity
	var ids []int64
	qty := make(map[int64]int)
	for _, l := range req.Items {
		if l.Quantity <= 0 {
			return nil, errors.NewNotValid(nil, "Quantity must be at least 1")
		}
		if _, seen := qty[l.MenuItemID]; !seen {
			ids = append(ids, l.MenuItemID)
		}
		qty[l.MenuItemID] += l.Quantity
	}

	catalog, err := s.menu.FindMenuItems(ctx, ids)
	if err != nil {
		return nil, errors.Trace(err)
	}
	now := s.clock.Now()
	order := &domain.Order{
		OrderNumber:   newOrderNumber(now),
		CashierID:     cashier.ID,
		CashierName:   cashier.Name,
		PaymentMethod: req.PaymentMethod,
		Status:        req.PaymentMethod.InitialStatus(),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Notes:         strings.TrimSpace(req.Notes),
	}
	for _, id := range ids {
		item, ok := catalog[id]
		if !ok {
			return nil, errors.NewNotValid(nil, fmt.Sprintf("Menu item %d not found", id))
		}
		if !item.IsAvailable {
			return nil, errors.NewNotValid(nil, fmt.Sprintf("%s is not available", item.Name))
		}
		if !item.Orderable(qty[id]) {
			return nil, errors.NewNotValid(nil, fmt.Sprintf("Insufficient stock for %s", item.Name))
		}
		order.Items = append(order.Items, domain.NewOrderItem(item, qty[id]))
	}
	order.RecomputeTotal()
	if err := order.CheckTotals(); err != nil {
		return nil, errors.Trace(err)
	}

	applyStock := order.Status == domain.StatusCompleted
	if err := s.orders.CreateOrder(ctx, order, applyStock); err != nil {
		return nil, err
	}
	if applyStock {
		cacheInvalidate(ctx, s.cache, menuCachePrefix)
	}
	logger.Infof("order %s created by cashier %d: %.2f via %s", order.OrderNumber, cashier.ID, order.Total, order.PaymentMethod)
	s.observer.OrderCreated(string(order.PaymentMethod), order.Total)
	publish(ctx, s.events, "order.created", now, newOrderEvent(order))
	return order, nil
}

// List returns orders visible to viewer; cashiers only see their own.
func (s *OrderService) List(ctx context.Context, viewer *domain.User, filter domain.OrderFilter) ([]*domain.Order, domain.Pagination, error) {
	if viewer == nil {
		return nil, domain.Pagination{}, errors.NewUnauthorized(nil, "Not authenticated")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Pagination{}, errors.NewNotValid(nil, "Invalid status")
	}
	if !viewer.IsAdmin() {
		filter.CashierID = viewer.ID
	}
	orders, total, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, errors.Trace(err)
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return orders, domain.NewPagination(filter.Page, total), nil
}

func (s *OrderService) Get(ctx context.Context, viewer *domain.User, id int64) (*domain.Order, error) {
	if viewer == nil {
		return nil, errors.NewUnauthorized(nil, "Not authenticated")
	}
	order, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsAdmin() && order.CashierID != viewer.ID {
		return nil, errAccessDenied
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, viewer *domain.User, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, errors.NewNotValid(nil, "Invalid status")
	}
	order, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, errors.NewNotValid(nil, fmt.Sprintf("Cannot change order status from %s to %s", order.Status, status))
	}
	return s.transition(ctx, id, status)
}

// transition moves an order along without any viewer check.
func (s *OrderService) transition(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	updated, err := s.orders.UpdateOrderStatus(ctx, id, domain.PreviousStatuses(status), status)
	if err != nil {
		return nil, err
	}
	if status == domain.StatusCompleted {
		cacheInvalidate(ctx, s.cache, menuCachePrefix)
	}
	logger.Infof("order %s is now %s", updated.OrderNumber, status)
	publish(ctx, s.events, "order.status."+string(status), s.clock.Now(), newOrderEvent(updated))
	return updated, nil
}

// Stats aggregates today's and all-time sales; cashiers get their own.
func (s *OrderService) Stats(ctx context.Context, viewer *domain.User) (*domain.OrderStats, error) {
	if viewer == nil {
		return nil, errors.NewUnauthorized(nil, "Not authenticated")
	}
	var cashierID int64
	if !viewer.IsAdmin() {
		cashierID = viewer.ID
	}
	return s.orders.OrderStats(ctx, cashierID, startOfDay(s.clock.Now()))
}
