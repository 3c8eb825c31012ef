// internal/adapters/repository/users.go
package repository

import (
	"context"
	"database/sql"

	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, avatar, is_active, created_at, updated_at`

var errUserNotFound = errors.NewNotFound(nil, "User not found")

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Avatar, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, avatar, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		user.Name, user.Email, user.PasswordHash, user.Role, user.Avatar, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, errUserNotFound
	}
	return u, translate(err)
}

func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER($1)", email))
	if err == sql.ErrNoRows {
		return nil, errUserNotFound
	}
	return u, translate(err)
}

func (r *PostgresRepository) ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	w := &where{}
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.Search != "" {
		w.add("(name ILIKE ? OR email ILIKE ?)", "%"+filter.Search+"%")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, errors.Trace(err)
	}
	p := filter.Page.Normalize()
	limit, args := w.page(p.Limit, p.Offset())
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users"+w.String()+" ORDER BY created_at DESC, id DESC"+limit, args...)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, errors.Trace(err)
		}
		users = append(users, u)
	}
	return users, total, errors.Trace(rows.Err())
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5, avatar = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Avatar, user.IsActive,
	).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return errUserNotFound
	}
	return translate(err)
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, errUserNotFound)
}

func (r *PostgresRepository) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1", id, active)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, errUserNotFound)
}

func (r *PostgresRepository) CountUsers(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE ($1::text = '' OR role = $1)", string(role)).Scan(&n)
	return n, errors.Trace(err)
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
