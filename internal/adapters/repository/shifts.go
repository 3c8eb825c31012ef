// internal/adapters/repository/shifts.go
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

const shiftSelect = `SELECT s.id, s.cashier_id, u.name, s.start_time, s.end_time, s.expires_at, s.status
	FROM shifts s JOIN users u ON u.id = s.cashier_id`

var errNoActiveShift = errors.NewNotFound(nil, "No active shift")

func scanShift(s scanner) (*domain.Shift, error) {
	sh := &domain.Shift{}
	var end sql.NullTime
	if err := s.Scan(&sh.ID, &sh.CashierID, &sh.CashierName, &sh.StartTime, &end, &sh.ExpiresAt, &sh.Status); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		sh.EndTime = &t
	}
	return sh, nil
}

// CreateShift stores a new active shift. A second active shift for the same
// cashier is rejected by the partial unique index.
func (r *PostgresRepository) CreateShift(ctx context.Context, shift *domain.Shift) error {
	if shift.Status == "" {
		shift.Status = domain.ShiftActive
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO shifts (cashier_id, start_time, expires_at, status) VALUES ($1, $2, $3, $4) RETURNING id`,
		shift.CashierID, shift.StartTime, shift.ExpiresAt, shift.Status,
	).Scan(&shift.ID)
	return translate(err)
}

func (r *PostgresRepository) ActiveShift(ctx context.Context, cashierID int64) (*domain.Shift, error) {
	sh, err := scanShift(r.db.QueryRowContext(ctx, shiftSelect+" WHERE s.cashier_id = $1 AND s.status = 'active'", cashierID))
	if err == sql.ErrNoRows {
		return nil, errNoActiveShift
	}
	return sh, translate(err)
}

func (r *PostgresRepository) ActiveShifts(ctx context.Context) ([]*domain.Shift, error) {
	rows, err := r.db.QueryContext(ctx, shiftSelect+" WHERE s.status = 'active' ORDER BY s.start_time")
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	var out []*domain.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, sh)
	}
	return out, errors.Trace(rows.Err())
}

// EndShift closes an active shift with status ended or expired.
func (r *PostgresRepository) EndShift(ctx context.Context, id int64, status domain.ShiftStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET status = $2, end_time = $3 WHERE id = $1 AND status = 'active'`, id, status, at)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, errNoActiveShift)
}

func (r *PostgresRepository) ListShifts(ctx context.Context, filter domain.ShiftFilter) ([]*domain.Shift, int64, error) {
	w := &where{}
	if filter.Status != "" {
		w.add("s.status = ?", filter.Status)
	}
	if filter.CashierID != 0 {
		w.add("s.cashier_id = ?", filter.CashierID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shifts s"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Trace(err)
	}
	p := filter.Page.Normalize()
	limit, args := w.page(p.Limit, p.Offset())
	rows, err := r.db.QueryContext(ctx, shiftSelect+w.String()+" ORDER BY s.start_time DESC, s.id DESC"+limit, args...)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	defer rows.Close()

	var out []*domain.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, 0, errors.Trace(err)
		}
		out = append(out, sh)
	}
	return out, total, errors.Trace(rows.Err())
}

// ShiftStats summarises shifts; since marks the start of "today".
func (r *PostgresRepository) ShiftStats(ctx context.Context, since time.Time) (*domain.ShiftStats, error) {
	stats := &domain.ShiftStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE start_time >= $1),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time))) FILTER (WHERE end_time IS NOT NULL), 0) / 3600
		FROM shifts`, since,
	).Scan(&stats.ActiveShifts, &stats.TodayShifts, &stats.ExpiredCount, &stats.TotalHours)
	if err != nil {
		return nil, errors.Annotate(err, "shift totals")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT s.cashier_id, MAX(u.name), COUNT(*),
			COALESCE(SUM(EXTRACT(EPOCH FROM (s.end_time - s.start_time))) FILTER (WHERE s.end_time IS NOT NULL), 0) / 3600
		FROM shifts s JOIN users u ON u.id = s.cashier_id
		GROUP BY s.cashier_id ORDER BY COUNT(*) DESC, s.cashier_id`)
	if err != nil {
		return nil, errors.Annotate(err, "shifts by cashier")
	}
	defer rows.Close()
	stats.ByCashier = []domain.CashierShiftStats{}
	for rows.Next() {
		var c domain.CashierShiftStats
		if err := rows.Scan(&c.CashierID, &c.CashierName, &c.Shifts, &c.Hours); err != nil {
			return nil, errors.Trace(err)
		}
		stats.ByCashier = append(stats.ByCashier, c)
	}
	return stats, errors.Trace(rows.Err())
}
