// internal/adapters/repository/orders.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/lib/pq"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

const orderSelect = `SELECT o.id, o.order_number, o.cashier_id, u.name, o.total, o.payment_method, o.status,
	o.customer_name, o.customer_phone, o.notes, o.stock_applied, o.created_at, o.updated_at
	FROM orders o JOIN users u ON u.id = o.cashier_id`

var errOrderNotFound = errors.NewNotFound(nil, "Order not found")

func scanOrder(s scanner) (*domain.Order, error) {
	o := &domain.Order{}
	err := s.Scan(&o.ID, &o.OrderNumber, &o.CashierID, &o.CashierName, &o.Total, &o.PaymentMethod, &o.Status,
		&o.CustomerName, &o.CustomerPhone, &o.Notes, &o.StockApplied, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOrder inserts the order and its lines in one transaction. With
// applyStock the stock of every line is taken in the same transaction.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order, applyStock bool) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO orders (order_number, cashier_id, total, payment_method, status, customer_name, customer_phone, notes, stock_applied)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`,
			order.OrderNumber, order.CashierID, order.Total, order.PaymentMethod, order.Status,
			order.CustomerName, order.CustomerPhone, order.Notes, applyStock,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		for i := range order.Items {
			it := &order.Items[i]
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, menu_item_id, name, quantity, price, subtotal)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				order.ID, it.MenuItemID, it.Name, it.Quantity, it.Price, it.Subtotal,
			).Scan(&it.ID)
			if err != nil {
				return translate(err)
			}
		}
		if applyStock {
			if err := takeStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}
		order.StockApplied = applyStock
		return nil
	})
}

// takeStock decrements stock for every line, failing when any item would go
// negative. The conditional update serializes concurrent orders on the row.
func takeStock(ctx context.Context, q querier, items []domain.OrderItem) error {
	for _, it := range items {
		res, err := q.ExecContext(ctx,
			`UPDATE menu_items SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
			it.MenuItemID, it.Quantity)
		if err != nil {
			return translate(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Trace(err)
		} else if n == 0 {
			return errors.NewNotValid(nil, fmt.Sprintf("Insufficient stock for %s", it.Name))
		}
	}
	return nil
}

func (r *PostgresRepository) FindOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return findOrder(ctx, r.db, id, false)
}

func findOrder(ctx context.Context, q querier, id int64, lock bool) (*domain.Order, error) {
	query := orderSelect + " WHERE o.id = $1"
	if lock {
		query += " FOR UPDATE OF o"
	}
	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	if err := loadItems(ctx, q, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// loadItems fills the lines of every order with one query.
func loadItems(ctx context.Context, q querier, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []domain.OrderItem{}
	}
	rows, err := q.QueryContext(ctx,
		`SELECT order_id, id, menu_item_id, name, quantity, price, subtotal
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return errors.Trace(err)
	}
	defer rows.Close()
	for rows.Next() {
		var orderID int64
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.MenuItemID, &it.Name, &it.Quantity, &it.Price, &it.Subtotal); err != nil {
			return errors.Trace(err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return errors.Trace(rows.Err())
}

func (r *PostgresRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int64, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("o.status = ?", filter.Status)
	}
	if filter.CashierID != 0 {
		w.add("o.cashier_id = ?", filter.CashierID)
	}
	if filter.From != nil {
		w.add("o.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("o.created_at < ?", *filter.To)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Trace(err)
	}
	p := filter.Page.Normalize()
	limit, args := w.page(p.Limit, p.Offset())
	rows, err := r.db.QueryContext(ctx, orderSelect+w.String()+" ORDER BY o.created_at DESC, o.id DESC"+limit, args...)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, errors.Trace(err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Trace(err)
	}
	rows.Close()
	if err := loadItems(ctx, r.db, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrderStatus moves an order to status when it currently is in one of
// from. The row is locked for the duration of the change so stock is taken
// at most once when the order completes.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, from []domain.OrderStatus, to domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		o, err := findOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !containsStatus(from, o.Status) {
			return errors.NewNotValid(nil, fmt.Sprintf("Cannot change order status from %s to %s", o.Status, to))
		}
		applyStock := to == domain.StatusCompleted && !o.StockApplied
		if applyStock {
			if err := takeStock(ctx, tx, o.Items); err != nil {
				return err
			}
		}
		err = tx.QueryRowContext(ctx,
			`UPDATE orders SET status = $2, stock_applied = stock_applied OR $3, updated_at = NOW()
			WHERE id = $1 RETURNING updated_at`, id, to, applyStock,
		).Scan(&o.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		o.Status = to
		o.StockApplied = o.StockApplied || applyStock
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func containsStatus(list []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// OrderStats aggregates completed orders. A zero cashierID covers every
// cashier; since marks the start of "today".
func (r *PostgresRepository) OrderStats(ctx context.Context, cashierID int64, since time.Time) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{ByStatus: map[string]int64{}}

	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(total) FILTER (WHERE created_at >= $2), 0),
			COUNT(*) FILTER (WHERE created_at >= $2),
			COALESCE(SUM(total), 0),
			COUNT(*),
			COALESCE(AVG(total), 0)
		FROM orders WHERE status = 'completed' AND ($1::bigint = 0 OR cashier_id = $1)`, cashierID, since,
	).Scan(&stats.TodaySales, &stats.TodayOrders, &stats.TotalSales, &stats.TotalOrders, &stats.AvgOrderValue)
	if err != nil {
		return nil, errors.Annotate(err, "order totals")
	}
	stats.AvgOrderValue = domain.Amount(domain.Cents(stats.AvgOrderValue))

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM orders WHERE ($1::bigint = 0 OR cashier_id = $1) GROUP BY status`, cashierID)
	if err != nil {
		return nil, errors.Annotate(err, "orders by status")
	}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, errors.Trace(err)
		}
		stats.ByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'completed' AND ($1::bigint = 0 OR o.cashier_id = $1)`, cashierID,
	).Scan(&stats.ItemsSold); err != nil {
		return nil, errors.Annotate(err, "items sold")
	}

	if stats.TopProducts, err = r.topProducts(ctx, cashierID); err != nil {
		return nil, err
	}
	if stats.SalesByCategory, err = r.salesByCategory(ctx, cashierID); err != nil {
		return nil, err
	}
	if stats.ByPayment, err = r.salesByPayment(ctx, cashierID); err != nil {
		return nil, err
	}
	if stats.SalesByDay, err = r.SalesByDay(ctx, cashierID, since.AddDate(0, 0, -6), since.AddDate(0, 0, 1)); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *PostgresRepository) topProducts(ctx context.Context, cashierID int64) ([]domain.ProductSales, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.menu_item_id, MAX(oi.name), SUM(oi.quantity), SUM(oi.subtotal)
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'completed' AND ($1::bigint = 0 OR o.cashier_id = $1)
		GROUP BY oi.menu_item_id ORDER BY SUM(oi.quantity) DESC, SUM(oi.subtotal) DESC LIMIT 5`, cashierID)
	if err != nil {
		return nil, errors.Annotate(err, "top products")
	}
	defer rows.Close()
	out := []domain.ProductSales{}
	for rows.Next() {
		var p domain.ProductSales
		if err := rows.Scan(&p.MenuItemID, &p.Name, &p.Quantity, &p.Revenue); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, p)
	}
	return out, errors.Trace(rows.Err())
}

func (r *PostgresRepository) salesByCategory(ctx context.Context, cashierID int64) ([]domain.CategorySales, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.category, SUM(oi.subtotal)
		FROM order_items oi JOIN orders o ON o.id = oi.order_id JOIN menu_items m ON m.id = oi.menu_item_id
		WHERE o.status = 'completed' AND ($1::bigint = 0 OR o.cashier_id = $1)
		GROUP BY m.category ORDER BY SUM(oi.subtotal) DESC`, cashierID)
	if err != nil {
		return nil, errors.Annotate(err, "sales by category")
	}
	defer rows.Close()
	out := []domain.CategorySales{}
	for rows.Next() {
		var c domain.CategorySales
		if err := rows.Scan(&c.Category, &c.Revenue); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, c)
	}
	return out, errors.Trace(rows.Err())
}

func (r *PostgresRepository) salesByPayment(ctx context.Context, cashierID int64) ([]domain.PaymentSales, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payment_method, COUNT(*), SUM(total) FROM orders
		WHERE status = 'completed' AND ($1::bigint = 0 OR cashier_id = $1)
		GROUP BY payment_method ORDER BY SUM(total) DESC`, cashierID)
	if err != nil {
		return nil, errors.Annotate(err, "sales by payment method")
	}
	defer rows.Close()
	out := []domain.PaymentSales{}
	for rows.Next() {
		var p domain.PaymentSales
		if err := rows.Scan(&p.PaymentMethod, &p.Orders, &p.Revenue); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, p)
	}
	return out, errors.Trace(rows.Err())
}

// SalesByDay returns completed sales per calendar day in [from, to).
func (r *PostgresRepository) SalesByDay(ctx context.Context, cashierID int64, from, to time.Time) ([]domain.DailySales, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD'), SUM(total), COUNT(*) FROM orders
		WHERE status = 'completed' AND ($1::bigint = 0 OR cashier_id = $1) AND created_at >= $2 AND created_at < $3
		GROUP BY DATE(created_at) ORDER BY DATE(created_at)`, cashierID, from, to)
	if err != nil {
		return nil, errors.Annotate(err, "sales by day")
	}
	defer rows.Close()
	out := []domain.DailySales{}
	for rows.Next() {
		var d domain.DailySales
		if err := rows.Scan(&d.Date, &d.Sales, &d.Orders); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, d)
	}
	return out, errors.Trace(rows.Err())
}
