// internal/cart/cart.go
package cart

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

// Cart accumulates order lines for one customer before checkout.
type Cart struct {
	lines   []domain.OrderItem
	catalog map[int64]domain.MenuItem
}

func New() *Cart {
	return &Cart{catalog: make(map[int64]domain.MenuItem)}
}

// Add puts one unit of item in the cart.
func (c *Cart) Add(item domain.MenuItem) error {
	return c.AddQuantity(item, 1)
}

func (c *Cart) AddQuantity(item domain.MenuItem, qty int) error {
	if qty <= 0 {
		return errors.NewNotValid(nil, "quantity must be positive")
	}
	current := 0
	if i := c.index(item.ID); i >= 0 {
		current = c.lines[i].Quantity
	}
	if !item.IsAvailable {
		return errors.NewNotValid(nil, fmt.Sprintf("%s is not available", item.Name))
	}
	if item.Stock < current+qty {
		return errors.NewNotValid(nil, fmt.Sprintf("only %d %s left", item.Stock, item.Name))
	}
	c.catalog[item.ID] = item
	return c.set(item, current+qty)
}

// Remove takes one unit of the item out, dropping the line at zero.
func (c *Cart) Remove(menuItemID int64) {
	i := c.index(menuItemID)
	if i < 0 {
		return
	}
	if c.lines[i].Quantity > 1 {
		_ = c.set(c.catalog[menuItemID], c.lines[i].Quantity-1)
		return
	}
	c.drop(i)
}

// SetQuantity replaces the quantity of a line already in the cart.
func (c *Cart) SetQuantity(menuItemID int64, qty int) error {
	i := c.index(menuItemID)
	if i < 0 {
		return errors.NotFoundf("menu item %d in cart", menuItemID)
	}
	if qty <= 0 {
		c.drop(i)
		return nil
	}
	item := c.catalog[menuItemID]
	if item.Stock < qty {
		return errors.NewNotValid(nil, fmt.Sprintf("only %d %s left", item.Stock, item.Name))
	}
	return c.set(item, qty)
}

func (c *Cart) set(item domain.MenuItem, qty int) error {
	line := domain.NewOrderItem(&item, qty)
	if i := c.index(item.ID); i >= 0 {
		c.lines[i] = line
		return nil
	}
	c.lines = append(c.lines, line)
	return nil
}

func (c *Cart) drop(i int) {
	delete(c.catalog, c.lines[i].MenuItemID)
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

func (c *Cart) index(menuItemID int64) int {
	for i, l := range c.lines {
		if l.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

func (c *Cart) Clear() {
	c.lines = nil
	c.catalog = make(map[int64]domain.MenuItem)
}

func (c *Cart) Items() []domain.OrderItem {
	return append([]domain.OrderItem(nil), c.lines...)
}

// Count is the number of distinct lines.
func (c *Cart) Count() int { return len(c.lines) }

func (c *Cart) Total() float64 {
	var cents int64
	for _, l := range c.lines {
		cents += domain.Cents(l.Subtotal)
	}
	return domain.Amount(cents)
}

// Checkout turns the cart into an order request. The cart is left intact so
// a failed submission can be retried.
func (c *Cart) Checkout(method domain.PaymentMethod, customerName, customerPhone, notes string) (*OrderRequest, error) {
	if len(c.lines) == 0 {
		return nil, errors.NewNotValid(nil, "Cart is empty")
	}
	if !method.Valid() {
		return nil, errors.NewNotValid(nil, fmt.Sprintf("invalid payment method %q", method))
	}
	req := &OrderRequest{
		PaymentMethod: method,
		CustomerName:  customerName,
		CustomerPhone: customerPhone,
		Notes:         notes,
	}
	for _, l := range c.lines {
		req.Items = append(req.Items, LineRequest{MenuItemID: l.MenuItemID, Quantity: l.Quantity})
	}
	return req, nil
}

type LineRequest struct {
	MenuItemID int64 `json:"menuItemId" binding:"required,gt=0"`
	Quantity   int   `json:"quantity" binding:"required,gt=0"`
}

// OrderRequest is the body of POST /api/orders.
type OrderRequest struct {
	Items         []LineRequest        `json:"items" binding:"required,min=1,dive"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required,oneof=cash card digital qr"`
	CustomerName  string               `json:"customerName,omitempty" binding:"max=100"`
	CustomerPhone string               `json:"customerPhone,omitempty" binding:"max=30"`
	Notes         string               `json:"notes,omitempty" binding:"max=500"`
}
