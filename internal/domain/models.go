// internal/domain/models.go
package domain

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"nama"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsCashier() bool { return u != nil && u.Role == RoleCashier }
func (u *User) IsAdmin() bool   { return u != nil && u.Role == RoleAdmin }

type MenuItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Image       string    `json:"image,omitempty"`
	Stock       int       `json:"stock"`
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// LowStockThreshold is the stock level under which an item is reported as low.
const LowStockThreshold = 10

func (m *MenuItem) LowStock() bool { return m.Stock < LowStockThreshold }

// Orderable reports whether qty units of the item can be sold right now.
func (m *MenuItem) Orderable(qty int) bool {
	return m.IsAvailable && qty > 0 && m.Stock >= qty
}

type OrderItem struct {
	ID         int64   `json:"id"`
	MenuItemID int64   `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Subtotal   float64 `json:"subtotal"`
}

type Order struct {
	ID            int64         `json:"id"`
	OrderNumber   string        `json:"orderNumber"`
	CashierID     int64         `json:"cashierId"`
	CashierName   string        `json:"cashierName,omitempty"`
	Items         []OrderItem   `json:"items"`
	Total         float64       `json:"total"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Status        OrderStatus   `json:"status"`
	CustomerName  string        `json:"customerName,omitempty"`
	CustomerPhone string        `json:"customerPhone,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	StockApplied  bool          `json:"-"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type ShiftStatus string

const (
	ShiftActive  ShiftStatus = "active"
	ShiftEnded   ShiftStatus = "ended"
	ShiftExpired ShiftStatus = "expired"
)

type Shift struct {
	ID          int64       `json:"id"`
	CashierID   int64       `json:"cashierId"`
	CashierName string      `json:"cashierName,omitempty"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	Status      ShiftStatus `json:"status"`
}

func (s *Shift) Active() bool { return s != nil && s.Status == ShiftActive }
