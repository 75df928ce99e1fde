package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pgxpool.Pool subset the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores orders in the table shared with the automatic
// ordering job.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) HasOrder(ctx context.Context, studentID int64, isoDate string) (bool, error) {
	const query = `SELECT 1 FROM orders WHERE student_id = $1 AND order_date = $2 LIMIT 1`
	var one int
	err := r.pool.QueryRow(ctx, query, studentID, isoDate).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("orders: select order: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) IsCancelled(ctx context.Context, studentID int64, isoDate string) (bool, error) {
	const query = `
		SELECT 1 FROM orders
		WHERE student_id = $1 AND order_date = $2
		  AND (motivo ILIKE '%cancelamento%' OR motivo ILIKE '%cancelado%')
		LIMIT 1
	`
	var one int
	err := r.pool.QueryRow(ctx, query, studentID, isoDate).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("orders: select cancellation: %w", err)
	}
	return true, nil
}

// RecordCancellation updates the existing row in place and only inserts when
// the date has no row, so retries can never duplicate a (student, date).
func (r *PostgresRepository) RecordCancellation(ctx context.Context, studentID int64, isoDate, motivo string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET motivo = $3 WHERE student_id = $1 AND order_date = $2`,
		studentID, isoDate, motivo)
	if err != nil {
		return fmt.Errorf("orders: update motivo: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO orders (student_id, order_date, motivo) VALUES ($1, $2, $3)`,
		studentID, isoDate, motivo); err != nil {
		return fmt.Errorf("orders: insert cancellation: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LastOrder(ctx context.Context, studentID int64) (*Order, error) {
	const query = `
		SELECT order_date::text, motivo FROM orders
		WHERE student_id = $1
		  AND motivo NOT ILIKE '%anteriormente%' AND motivo NOT LIKE '%Final%'
		ORDER BY order_date DESC, id DESC
		LIMIT 1
	`
	var o Order
	o.StudentID = studentID
	err := r.pool.QueryRow(ctx, query, studentID).Scan(&o.Date, &o.Motivo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orders: select last order: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) RecentOrders(ctx context.Context, studentID int64, fromISO string) ([]Order, error) {
	const query = `
		SELECT order_date::text, motivo FROM orders
		WHERE student_id = $1 AND order_date >= $2
		  AND motivo NOT ILIKE '%anteriormente%' AND motivo NOT LIKE '%Final%'
		ORDER BY order_date DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, studentID, fromISO)
	if err != nil {
		return nil, fmt.Errorf("orders: select recent orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o := Order{StudentID: studentID}
		if err := rows.Scan(&o.Date, &o.Motivo); err != nil {
			return nil, fmt.Errorf("orders: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpcomingDish(ctx context.Context) (*Dish, error) {
	const query = `SELECT dish_date::text, dish_name FROM upcoming_dishes ORDER BY updated_at DESC LIMIT 1`
	var d Dish
	err := r.pool.QueryRow(ctx, query).Scan(&d.Date, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orders: select upcoming dish: %w", err)
	}
	return &d, nil
}
