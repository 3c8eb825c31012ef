// internal/adapters/repository/postgres.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/lib/pq"
)

var logger = loggo.GetLogger("pos.repository")

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// uniqueFields names the column behind each unique constraint of the schema.
var uniqueFields = map[string]string{
	"users_email_key":               "email",
	"menu_items_name_key":           "name",
	"orders_order_number_key":       "orderNumber",
	"shifts_one_active_per_cashier": "active shift",
}

// PostgresRepository implements every repository port on one *sql.DB.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, rolling back when it fails.
func (r *PostgresRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warningf("rollback failed: %v", rbErr)
		}
		return err
	}
	return errors.Trace(tx.Commit())
}

// translate maps driver errors onto juju error types.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return errors.Trace(err)
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		field, ok := uniqueFields[pqErr.Constraint]
		if !ok {
			field = strings.TrimSuffix(pqErr.Constraint, "_key")
		}
		return errors.NewAlreadyExists(nil, capitalize(field)+" already exists")
	case codeForeignKeyViolation:
		return errors.NewNotValid(nil, fmt.Sprintf("record is still referenced (%s)", pqErr.Constraint))
	}
	return errors.Trace(err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// where accumulates filter clauses and their positional arguments.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page appends LIMIT/OFFSET placeholders for the given arguments.
func (w *where) page(limit, offset int64) (string, []interface{}) {
	args := append(append([]interface{}(nil), w.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}
