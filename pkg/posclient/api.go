// pkg/posclient/api.go
package posclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/application"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/cart"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

const dateLayout = "2006-01-02"

// Login stores the returned token and user for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*application.LoginResult, error) {
	var res application.LoginResult
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &res); err != nil {
		return nil, err
	}
	if err := c.saveSession(res.Token, res.User); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout revokes the token server side and always forgets it locally.
func (c *Client) Logout(ctx context.Context) error {
	defer c.clearSession()
	if c.Token() == "" {
		return nil
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	return err
}

func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListUsers(ctx context.Context, f domain.UserFilter) ([]*domain.User, domain.Pagination, error) {
	q := pageQuery(f.Page)
	setIf(q, "role", string(f.Role))
	setIf(q, "search", f.Search)
	var users []*domain.User
	env, err := c.do(ctx, http.MethodGet, "/users", q, nil, &users)
	return users, pageOf(env), err
}

func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodGet, idPath("/users/%d", id), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateUser(ctx context.Context, in application.CreateUserInput) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodPost, "/users", nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, in application.UpdateUserInput) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodPut, idPath("/users/%d", id), nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser reports whether the user was deactivated instead of removed.
func (c *Client) DeleteUser(ctx context.Context, id int64) (bool, error) {
	var res struct {
		Deactivated bool `json:"deactivated"`
	}
	_, err := c.do(ctx, http.MethodDelete, idPath("/users/%d", id), nil, nil, &res)
	return res.Deactivated, err
}

func (c *Client) ToggleUserStatus(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	if _, err := c.do(ctx, http.MethodPatch, idPath("/users/%d/toggle-status", id), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListMenu(ctx context.Context, f domain.MenuFilter) ([]*domain.MenuItem, domain.Pagination, error) {
	q := pageQuery(f.Page)
	setIf(q, "category", f.Category)
	setIf(q, "search", f.Search)
	if f.AvailableOnly {
		q.Set("available", "true")
	}
	var items []*domain.MenuItem
	env, err := c.do(ctx, http.MethodGet, "/menu", q, nil, &items)
	return items, pageOf(env), err
}

func (c *Client) MenuCategories(ctx context.Context) ([]string, error) {
	var cats []string
	_, err := c.do(ctx, http.MethodGet, "/menu/categories", nil, nil, &cats)
	return cats, err
}

func (c *Client) LowStock(ctx context.Context) ([]*domain.MenuItem, error) {
	var items []*domain.MenuItem
	_, err := c.do(ctx, http.MethodGet, "/menu/low-stock", nil, nil, &items)
	return items, err
}

func (c *Client) GetMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if _, err := c.do(ctx, http.MethodGet, idPath("/menu/%d", id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) CreateMenuItem(ctx context.Context, in application.MenuItemInput) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if _, err := c.do(ctx, http.MethodPost, "/menu", nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateMenuItem(ctx context.Context, id int64, in application.MenuItemUpdate) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if _, err := c.do(ctx, http.MethodPut, idPath("/menu/%d", id), nil, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteMenuItem reports whether the item was hidden instead of removed.
func (c *Client) DeleteMenuItem(ctx context.Context, id int64) (bool, error) {
	var res struct {
		Hidden bool `json:"hidden"`
	}
	_, err := c.do(ctx, http.MethodDelete, idPath("/menu/%d", id), nil, nil, &res)
	return res.Hidden, err
}

func (c *Client) UpdateStock(ctx context.Context, id int64, op application.StockOperation, qty int) (*domain.MenuItem, error) {
	var item domain.MenuItem
	body := application.StockUpdate{Operation: op, Quantity: qty}
	if _, err := c.do(ctx, http.MethodPatch, idPath("/menu/%d/stock", id), nil, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListOrders filters by creation date when from or to are set; to is inclusive.
func (c *Client) ListOrders(ctx context.Context, f domain.OrderFilter, from, to time.Time) ([]*domain.Order, domain.Pagination, error) {
	q := pageQuery(f.Page)
	setIf(q, "status", string(f.Status))
	if !from.IsZero() {
		q.Set("from", from.Format(dateLayout))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(dateLayout))
	}
	var orders []*domain.Order
	env, err := c.do(ctx, http.MethodGet, "/orders", q, nil, &orders)
	return orders, pageOf(env), err
}

func (c *Client) CreateOrder(ctx context.Context, req *cart.OrderRequest) (*domain.Order, error) {
	var o domain.Order
	if _, err := c.do(ctx, http.MethodPost, "/orders", nil, req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if _, err := c.do(ctx, http.MethodGet, idPath("/orders/%d", id), nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	var o domain.Order
	body := map[string]domain.OrderStatus{"status": status}
	if _, err := c.do(ctx, http.MethodPatch, idPath("/orders/%d/status", id), nil, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) OrderStats(ctx context.Context) (*domain.OrderStats, error) {
	var s domain.OrderStats
	if _, err := c.do(ctx, http.MethodGet, "/orders/stats", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListShifts(ctx context.Context, f domain.ShiftFilter) ([]*domain.Shift, domain.Pagination, error) {
	q := pageQuery(f.Page)
	setIf(q, "status", string(f.Status))
	var shifts []*domain.Shift
	env, err := c.do(ctx, http.MethodGet, "/shifts", q, nil, &shifts)
	return shifts, pageOf(env), err
}

func (c *Client) CurrentShift(ctx context.Context) (*application.ShiftState, error) {
	var st application.ShiftState
	if _, err := c.do(ctx, http.MethodGet, "/shifts/current", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ClockIn(ctx context.Context) (*application.ShiftState, error) {
	var st application.ShiftState
	if _, err := c.do(ctx, http.MethodPost, "/shifts/current", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ClockOut(ctx context.Context) (*domain.Shift, error) {
	var sh domain.Shift
	if _, err := c.do(ctx, http.MethodPost, "/shifts/clock-out", nil, nil, &sh); err != nil {
		return nil, err
	}
	return &sh, nil
}

func (c *Client) ShiftStats(ctx context.Context) (*domain.ShiftStats, error) {
	var s domain.ShiftStats
	if _, err := c.do(ctx, http.MethodGet, "/shifts/stats", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) CreatePayment(ctx context.Context, orderID int64) (*application.PaymentRequest, error) {
	var p application.PaymentRequest
	body := map[string]int64{"orderId": orderID}
	if _, err := c.do(ctx, http.MethodPost, "/payment/create", nil, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) PaymentStatus(ctx context.Context, orderID int64) (*application.PaymentStatus, error) {
	var p application.PaymentStatus
	if _, err := c.do(ctx, http.MethodGet, idPath("/payment/status/%d", orderID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	var d domain.Dashboard
	if _, err := c.do(ctx, http.MethodGet, "/reports/dashboard", nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Sales(ctx context.Context, from, to time.Time) ([]domain.DailySales, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.Format(dateLayout))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(dateLayout))
	}
	var sales []domain.DailySales
	_, err := c.do(ctx, http.MethodGet, "/reports/sales", q, nil, &sales)
	return sales, err
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
