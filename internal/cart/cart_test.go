// internal/cart/cart_test.go
package cart

import (
	"testing"

	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

var (
	itemA = domain.MenuItem{ID: 1, Name: "Espresso", Price: 2.50, Category: "Coffee", Stock: 50, IsAvailable: true}
	itemB = domain.MenuItem{ID: 2, Name: "Cappuccino", Price: 4.00, Category: "Coffee", Stock: 45, IsAvailable: true}
)

func TestCart_TwoAOneB(t *testing.T) {
	c := New()
	for _, it := range []domain.MenuItem{itemA, itemA, itemB} {
		if err := c.Add(it); err != nil {
			t.Fatalf("Add(%s) error = %v", it.Name, err)
		}
	}
	if c.Count() != 2 {
		t.Errorf("Count() = %d, want 2", c.Count())
	}
	if domain.Cents(c.Total()) != 900 {
		t.Errorf("Total() = %v, want 9.00", c.Total())
	}
	items := c.Items()
	if items[0].Quantity != 2 || domain.Cents(items[0].Subtotal) != 500 {
		t.Errorf("line A = %+v", items[0])
	}
	if items[1].Quantity != 1 || domain.Cents(items[1].Subtotal) != 400 {
		t.Errorf("line B = %+v", items[1])
	}

	req, err := c.Checkout(domain.PaymentCash, "John Doe", "", "")
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if len(req.Items) != 2 || req.Items[0].Quantity != 2 || req.Items[1].MenuItemID != 2 {
		t.Errorf("Checkout() items = %+v", req.Items)
	}
}

func TestCart_RemoveAndSetQuantity(t *testing.T) {
	c := New()
	_ = c.Add(itemA)
	_ = c.Add(itemA)
	_ = c.Add(itemB)

	c.Remove(itemA.ID)
	if got := c.Items()[0]; got.Quantity != 1 || domain.Cents(got.Subtotal) != 250 {
		t.Errorf("after Remove line A = %+v", got)
	}
	c.Remove(itemA.ID)
	if c.Count() != 1 || c.Items()[0].MenuItemID != itemB.ID {
		t.Errorf("line A should be dropped, items = %+v", c.Items())
	}
	c.Remove(99)

	if err := c.SetQuantity(itemB.ID, 3); err != nil {
		t.Fatalf("SetQuantity() error = %v", err)
	}
	if domain.Cents(c.Total()) != 1200 {
		t.Errorf("Total() = %v, want 12.00", c.Total())
	}
	if err := c.SetQuantity(itemA.ID, 1); !errors.Is(err, errors.NotFound) {
		t.Errorf("SetQuantity() on missing line error = %v", err)
	}
	if err := c.SetQuantity(itemB.ID, 0); err != nil || c.Count() != 0 {
		t.Errorf("SetQuantity(0) should drop the line, err = %v", err)
	}
}

func TestCart_RefusesUnsellableItems(t *testing.T) {
	soldOut := domain.MenuItem{ID: 3, Name: "Chocolate Cake", Price: 5.5, Stock: 0, IsAvailable: true}
	hidden := domain.MenuItem{ID: 4, Name: "Green Tea", Price: 3, Stock: 30, IsAvailable: false}
	lastOne := domain.MenuItem{ID: 5, Name: "Croissant", Price: 3.5, Stock: 1, IsAvailable: true}

	c := New()
	if err := c.Add(soldOut); !errors.Is(err, errors.NotValid) {
		t.Errorf("Add(sold out) error = %v", err)
	}
	if err := c.Add(hidden); !errors.Is(err, errors.NotValid) {
		t.Errorf("Add(unavailable) error = %v", err)
	}
	if err := c.Add(lastOne); err != nil {
		t.Fatalf("Add(last one) error = %v", err)
	}
	if err := c.Add(lastOne); !errors.Is(err, errors.NotValid) {
		t.Errorf("Add beyond stock error = %v", err)
	}
	if err := c.AddQuantity(itemA, 0); !errors.Is(err, errors.NotValid) {
		t.Errorf("AddQuantity(0) error = %v", err)
	}
}

func TestCart_CheckoutValidation(t *testing.T) {
	c := New()
	if _, err := c.Checkout(domain.PaymentCash, "", "", ""); err == nil || err.Error() != "Cart is empty" {
		t.Errorf("Checkout() on empty cart error = %v", err)
	}
	_ = c.Add(itemA)
	if _, err := c.Checkout("cheque", "", "", ""); !errors.Is(err, errors.NotValid) {
		t.Errorf("Checkout() bad method error = %v", err)
	}
	c.Clear()
	if c.Count() != 0 || c.Total() != 0 {
		t.Errorf("Clear() left %d lines", c.Count())
	}
}
