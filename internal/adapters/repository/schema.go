// internal/adapters/repository/schema.go
package repository

import (
	"context"
	"database/sql"

	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'cashier' CHECK (role IN ('admin', 'cashier')),
		avatar TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		category VARCHAR(50) NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT menu_items_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		order_number VARCHAR(40) NOT NULL,
		cashier_id BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		total NUMERIC(10,2) NOT NULL CHECK (total >= 0),
		payment_method VARCHAR(20) NOT NULL CHECK (payment_method IN ('cash', 'card', 'digital', 'qr')),
		status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'cancelled')),
		customer_name VARCHAR(100) NOT NULL DEFAULT '',
		customer_phone VARCHAR(30) NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		stock_applied BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_order_number_key UNIQUE (order_number)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_cashier_created_idx ON orders (cashier_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		menu_item_id BIGINT NOT NULL REFERENCES menu_items(id) ON DELETE RESTRICT,
		name VARCHAR(100) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price NUMERIC(10,2) NOT NULL,
		subtotal NUMERIC(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id BIGSERIAL PRIMARY KEY,
		cashier_id BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		expires_at TIMESTAMPTZ NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended', 'expired')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS shifts_one_active_per_cashier ON shifts (cashier_id) WHERE status = 'active'`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, q := range schema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return errors.Annotate(err, "failed to init DB")
		}
	}
	return nil
}

type seedUser struct {
	name, email, role string
}

type seedItem struct {
	name, description, category string
	price                       float64
	stock                       int
}

var (
	demoUsers = []seedUser{
		{"Cashier One", "cashier1@coffee.com", "cashier"},
		{"Cashier Two", "cashier2@coffee.com", "cashier"},
	}
	demoMenu = []seedItem{
		{"Espresso", "Strong black coffee", "Coffee", 2.50, 50},
		{"Cappuccino", "Espresso with steamed milk foam", "Coffee", 4.00, 45},
		{"Latte", "Espresso with steamed milk", "Coffee", 4.50, 40},
		{"Green Tea", "Fresh green tea", "Tea", 3.00, 30},
		{"Croissant", "Buttery French pastry", "Pastry", 3.50, 25},
		{"Chocolate Cake", "Rich chocolate cake slice", "Dessert", 5.50, 15},
		{"Iced Americano", "Espresso over ice with cold water", "Coffee", 3.75, 35},
		{"Fruit Smoothie", "Blend of seasonal fruits", "Beverage", 4.25, 20},
	}
)

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	// Demo adds the demo cashiers (sharing the admin password) and menu.
	Demo bool
}

// Seed inserts the admin account and, optionally, demo data. Existing rows
// are left untouched.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin@coffee.com"
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = "password123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Annotate(err, "failed to hash default user password")
	}

	users := []seedUser{{"Admin User", opts.AdminEmail, "admin"}}
	if opts.Demo {
		users = append(users, demoUsers...)
	}
	for _, u := range users {
		_, err := db.ExecContext(ctx,
			`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING`,
			u.name, u.email, string(hash), u.role)
		if err != nil {
			return errors.Annotatef(err, "failed to insert user %s", u.email)
		}
	}
	if !opts.Demo {
		return nil
	}
	for _, m := range demoMenu {
		_, err := db.ExecContext(ctx,
			`INSERT INTO menu_items (name, description, price, category, stock) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (name) DO NOTHING`,
			m.name, m.description, m.price, m.category, m.stock)
		if err != nil {
			return errors.Annotatef(err, "failed to insert menu item %s", m.name)
		}
	}
	logger.Infof("seeded %d users and %d menu items", len(users), len(demoMenu))
	return nil
}
