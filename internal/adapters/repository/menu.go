// internal/adapters/repository/menu.go
package repository

import (
	"context"
	"database/sql"

	"github.com/juju/errors"
	"github.com/lib/pq"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

const menuColumns = `id, name, description, price, category, image, stock, is_available, created_at, updated_at`

var errMenuItemNotFound = errors.NewNotFound(nil, "Menu item not found")

func scanMenuItem(s scanner) (*domain.MenuItem, error) {
	m := &domain.MenuItem{}
	err := s.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Category, &m.Image, &m.Stock, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO menu_items (name, description, price, category, image, stock, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		item.Name, item.Description, item.Price, item.Category, item.Image, item.Stock, item.IsAvailable,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) FindMenuItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRowContext(ctx, "SELECT "+menuColumns+" FROM menu_items WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, errMenuItemNotFound
	}
	return m, translate(err)
}

// FindMenuItems loads the given items keyed by id. Unknown ids are absent
// from the result.
func (r *PostgresRepository) FindMenuItems(ctx context.Context, ids []int64) (map[int64]*domain.MenuItem, error) {
	items := make(map[int64]*domain.MenuItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+menuColumns+" FROM menu_items WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		items[m.ID] = m
	}
	return items, errors.Trace(rows.Err())
}

func (r *PostgresRepository) ListMenuItems(ctx context.Context, filter domain.MenuFilter) ([]*domain.MenuItem, int64, error) {
	w := &where{}
	if filter.Category != "" {
		w.add("category = ?", filter.Category)
	}
	if filter.Search != "" {
		w.add("(name ILIKE ? OR description ILIKE ?)", "%"+filter.Search+"%")
	}
	if filter.AvailableOnly {
		w.add("is_available = ?", true)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM menu_items"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Trace(err)
	}
	p := filter.Page.Normalize()
	limit, args := w.page(p.Limit, p.Offset())
	rows, err := r.db.QueryContext(ctx, "SELECT "+menuColumns+" FROM menu_items"+w.String()+" ORDER BY category, name"+limit, args...)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	defer rows.Close()

	var items []*domain.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, 0, errors.Trace(err)
		}
		items = append(items, m)
	}
	return items, total, errors.Trace(rows.Err())
}

func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE menu_items SET name = $2, description = $3, price = $4, category = $5, image = $6, stock = $7, is_available = $8, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		item.ID, item.Name, item.Description, item.Price, item.Category, item.Image, item.Stock, item.IsAvailable,
	).Scan(&item.UpdatedAt)
	if err == sql.ErrNoRows {
		return errMenuItemNotFound
	}
	return translate(err)
}

func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM menu_items WHERE id = $1", id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, errMenuItemNotFound)
}

// AdjustStock adds delta to the stock of an item, refusing to go below zero.
func (r *PostgresRepository) AdjustStock(ctx context.Context, id int64, delta int) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRowContext(ctx,
		`UPDATE menu_items SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0 RETURNING `+menuColumns, id, delta))
	if err == sql.ErrNoRows {
		if _, findErr := r.FindMenuItem(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, errors.NewNotValid(nil, "Insufficient stock")
	}
	return m, translate(err)
}

func (r *PostgresRepository) SetStock(ctx context.Context, id int64, stock int) (*domain.MenuItem, error) {
	m, err := scanMenuItem(r.db.QueryRowContext(ctx,
		`UPDATE menu_items SET stock = $2, updated_at = NOW() WHERE id = $1 RETURNING `+menuColumns, id, stock))
	if err == sql.ErrNoRows {
		return nil, errMenuItemNotFound
	}
	return m, translate(err)
}

func (r *PostgresRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT category FROM menu_items ORDER BY category")
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, c)
	}
	return out, errors.Trace(rows.Err())
}

func (r *PostgresRepository) LowStockItems(ctx context.Context, threshold int) ([]*domain.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+menuColumns+" FROM menu_items WHERE stock < $1 ORDER BY stock, name", threshold)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var items []*domain.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		items = append(items, m)
	}
	return items, errors.Trace(rows.Err())
}
