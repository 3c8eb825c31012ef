// internal/adapters/repository/postgres_test.go
package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/juju/errors"
	_ "github.com/lib/pq"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

// setupTestRepository connects to the database named by POS_TEST_DSN and
// starts from empty tables. The tests are skipped without it.
func setupTestRepository(t *testing.T) *PostgresRepository {
	dsn := os.Getenv("POS_TEST_DSN")
	if dsn == "" {
		t.Skip("POS_TEST_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping DB: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "TRUNCATE order_items, orders, shifts, menu_items, users RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("truncating: %v", err)
	}
	return NewPostgresRepository(db)
}

func TestPostgresRepository(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	cashier := &domain.User{Name: "Cashier One", Email: "cashier1@coffee.com", PasswordHash: "x", Role: domain.RoleCashier, IsActive: true}
	if err := repo.CreateUser(ctx, cashier); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	dup := *cashier
	if err := repo.CreateUser(ctx, &dup); !errors.Is(err, errors.AlreadyExists) || err.Error() != "Email already exists" {
		t.Errorf("duplicate CreateUser() error = %v", err)
	}

	latte := &domain.MenuItem{Name: "Latte", Category: "Coffee", Price: 4.5, Stock: 3, IsAvailable: true}
	if err := repo.CreateMenuItem(ctx, latte); err != nil {
		t.Fatalf("CreateMenuItem() error = %v", err)
	}

	t.Run("Cash order takes stock", func(t *testing.T) {
		order := &domain.Order{
			OrderNumber:   "ORD-TEST-1",
			CashierID:     cashier.ID,
			Items:         []domain.OrderItem{domain.NewOrderItem(latte, 2)},
			PaymentMethod: domain.PaymentCash,
			Status:        domain.StatusCompleted,
		}
		order.RecomputeTotal()
		if err := repo.CreateOrder(ctx, order, true); err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		item, err := repo.FindMenuItem(ctx, latte.ID)
		if err != nil || item.Stock != 1 {
			t.Errorf("stock after order = %v, %v", item, err)
		}
		got, err := repo.FindOrder(ctx, order.ID)
		if err != nil || len(got.Items) != 1 || got.Total != 9 || got.CashierName != "Cashier One" {
			t.Errorf("FindOrder() = %+v, %v", got, err)
		}
	})

	t.Run("Oversold order rolls back", func(t *testing.T) {
		order := &domain.Order{
			OrderNumber:   "ORD-TEST-2",
			CashierID:     cashier.ID,
			Items:         []domain.OrderItem{domain.NewOrderItem(latte, 2)},
			PaymentMethod: domain.PaymentCash,
			Status:        domain.StatusCompleted,
		}
		order.RecomputeTotal()
		err := repo.CreateOrder(ctx, order, true)
		if !errors.Is(err, errors.NotValid) || err.Error() != "Insufficient stock for Latte" {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		if _, err := repo.FindOrder(ctx, order.ID); !errors.Is(err, errors.NotFound) {
			t.Errorf("rolled back order found: %v", err)
		}
	})

	t.Run("Card order takes stock once on completion", func(t *testing.T) {
		order := &domain.Order{
			OrderNumber:   "ORD-TEST-3",
			CashierID:     cashier.ID,
			Items:         []domain.OrderItem{domain.NewOrderItem(latte, 1)},
			PaymentMethod: domain.PaymentCard,
			Status:        domain.StatusPending,
		}
		order.RecomputeTotal()
		if err := repo.CreateOrder(ctx, order, false); err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		done, err := repo.UpdateOrderStatus(ctx, order.ID, domain.PreviousStatuses(domain.StatusCompleted), domain.StatusCompleted)
		if err != nil || done.Status != domain.StatusCompleted {
			t.Fatalf("UpdateOrderStatus() = %v, %v", done, err)
		}
		if item, _ := repo.FindMenuItem(ctx, latte.ID); item.Stock != 0 {
			t.Errorf("stock = %d, want 0", item.Stock)
		}
		_, err = repo.UpdateOrderStatus(ctx, order.ID, domain.PreviousStatuses(domain.StatusCompleted), domain.StatusCompleted)
		if !errors.Is(err, errors.NotValid) {
			t.Errorf("second completion error = %v", err)
		}
	})

	t.Run("One active shift per cashier", func(t *testing.T) {
		start := time.Now().UTC().Truncate(time.Second)
		first := &domain.Shift{CashierID: cashier.ID, StartTime: start, ExpiresAt: start.Add(8 * time.Hour)}
		if err := repo.CreateShift(ctx, first); err != nil {
			t.Fatalf("CreateShift() error = %v", err)
		}
		second := &domain.Shift{CashierID: cashier.ID, StartTime: start, ExpiresAt: start.Add(8 * time.Hour)}
		if err := repo.CreateShift(ctx, second); !errors.Is(err, errors.AlreadyExists) {
			t.Errorf("second CreateShift() error = %v", err)
		}
		if err := repo.EndShift(ctx, first.ID, domain.ShiftEnded, start.Add(time.Hour)); err != nil {
			t.Fatalf("EndShift() error = %v", err)
		}
		if _, err := repo.ActiveShift(ctx, cashier.ID); !errors.Is(err, errors.NotFound) {
			t.Errorf("ActiveShift() after end error = %v", err)
		}
	})

	t.Run("Referenced user cannot be deleted", func(t *testing.T) {
		if err := repo.DeleteUser(ctx, cashier.ID); !errors.Is(err, errors.NotValid) {
			t.Errorf("DeleteUser() error = %v", err)
		}
	})
}
