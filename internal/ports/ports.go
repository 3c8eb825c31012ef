// internal/ports/ports.go
package ports

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=ports

import (
	"context"
	"time"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	CountUsers(ctx context.Context, role domain.Role) (int64, error)
}

type MenuRepository interface {
	CreateMenuItem(ctx context.Context, item *domain.MenuItem) error
	FindMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error)
	FindMenuItems(ctx context.Context, ids []int64) (map[int64]*domain.MenuItem, error)
	ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]*domain.MenuItem, int64, error)
	UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error
	DeleteMenuItem(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta int) (*domain.MenuItem, error)
	SetStock(ctx context.Context, id int64, stock int) (*domain.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
	LowStockItems(ctx context.Context, threshold int) ([]*domain.MenuItem, error)
}

type OrderRepository interface {
	// CreateOrder stores the order with its items. When applyStock is set the
	// stock of every line is decremented in the same transaction.
	CreateOrder(ctx context.Context, order *domain.Order, applyStock bool) error
	FindOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int64, error)
	// UpdateOrderStatus moves the order to status only while it is in one of
	// from. Moving to completed applies stock once.
	UpdateOrderStatus(ctx context.Context, id int64, from []domain.OrderStatus, to domain.OrderStatus) (*domain.Order, error)
	OrderStats(ctx context.Context, cashierID int64, since time.Time) (*domain.OrderStats, error)
	SalesByDay(ctx context.Context, cashierID int64, from, to time.Time) ([]domain.DailySales, error)
}

type ShiftRepository interface {
	CreateShift(ctx context.Context, shift *domain.Shift) error
	ActiveShift(ctx context.Context, cashierID int64) (*domain.Shift, error)
	ActiveShifts(ctx context.Context) ([]*domain.Shift, error)
	EndShift(ctx context.Context, id int64, status domain.ShiftStatus, at time.Time) error
	ListShifts(ctx context.Context, filter domain.ShiftFilter) ([]*domain.Shift, int64, error)
	ShiftStats(ctx context.Context, since time.Time) (*domain.ShiftStats, error)
}

type CachePort interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}) error
	SetTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}

// SessionStore tracks revoked tokens and per-user forced logouts.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	RevokeUserBefore(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error
	RevokedBefore(ctx context.Context, userID int64) (time.Time, error)
}

type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
