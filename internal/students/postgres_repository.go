package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores students in the relational database shared with
// the automatic ordering job.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("students: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const studentColumns = `s.id, s.registration, s.name, s.active`

// FindByChatID resolves a chat identifier with the tolerant ladder: exact
// digit match, country-prefix variants, then a last-9-digits suffix match.
// Stored numbers are normalized in SQL because older rows carry formatting.
func (r *PostgresRepository) FindByChatID(ctx context.Context, chatID string) (*Student, error) {
	key := PhoneKeyFromChatID(chatID)
	if key == "" {
		return nil, ErrStudentNotFound
	}

	const byExactPhone = `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN contacts c ON c.student_id = s.id
		WHERE regexp_replace(c.phone, '\D', '', 'g') = $1
		LIMIT 1
	`
	for _, candidate := range lookupCandidates(key) {
		s, err := r.scanStudent(r.pool.QueryRow(ctx, byExactPhone, candidate))
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrStudentNotFound) {
			return nil, err
		}
	}

	suffix := suffixKey(key)
	if suffix == "" {
		return nil, ErrStudentNotFound
	}
	const bySuffix = `
		SELECT ` + studentColumns + `
		FROM students s
		JOIN contacts c ON c.student_id = s.id
		WHERE regexp_replace(c.phone, '\D', '', 'g') LIKE '%' || $1
		LIMIT 1
	`
	return r.scanStudent(r.pool.QueryRow(ctx, bySuffix, suffix))
}

func (r *PostgresRepository) FindByRegistration(ctx context.Context, registration string) (*Student, error) {
	const query = `
		SELECT ` + studentColumns + `
		FROM students s
		WHERE s.registration = $1
		LIMIT 1
	`
	return r.scanStudent(r.pool.QueryRow(ctx, query, registration))
}

func (r *PostgresRepository) LinkContact(ctx context.Context, registration, chatID string) (*Student, error) {
	phone := PhoneKeyFromChatID(chatID)

	student, err := r.FindByRegistration(ctx, registration)
	if err != nil {
		return nil, err
	}

	// Reject when the phone already belongs to someone else.
	other, err := r.FindByChatID(ctx, phone)
	if err != nil && !errors.Is(err, ErrStudentNotFound) {
		return nil, err
	}
	if other != nil && other.ID != student.ID {
		return nil, ErrLinkConflict
	}

	const existing = `SELECT id, phone FROM contacts WHERE student_id = $1 LIMIT 1`
	var contactID int64
	var stored string
	err = r.pool.QueryRow(ctx, existing, student.ID).Scan(&contactID, &stored)
	switch {
	case err == nil:
		if !SamePhone(stored, phone) {
			return nil, ErrLinkConflict
		}
		// Same underlying phone: refresh to the transport's format.
		if _, err := r.pool.Exec(ctx, `UPDATE contacts SET phone = $1 WHERE id = $2`, phone, contactID); err != nil {
			return nil, fmt.Errorf("students: update contact: %w", err)
		}
		return student, nil
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := r.pool.Exec(ctx, `INSERT INTO contacts (student_id, phone) VALUES ($1, $2)`, student.ID, phone); err != nil {
			return nil, fmt.Errorf("students: insert contact: %w", err)
		}
		return student, nil
	default:
		return nil, fmt.Errorf("students: select contact: %w", err)
	}
}

// ReplaceWeekdays rewrites the whole preference set. Re-running the same
// replace is a no-op state-wise.
func (r *PostgresRepository) ReplaceWeekdays(ctx context.Context, studentID int64, days []int) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM weekday_preferences WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("students: clear weekdays: %w", err)
	}
	for _, d := range days {
		if d < 1 || d > 5 {
			continue
		}
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO weekday_preferences (student_id, weekday) VALUES ($1, $2)`, studentID, d); err != nil {
			return fmt.Errorf("students: insert weekday: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Weekdays(ctx context.Context, studentID int64) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT weekday FROM weekday_preferences WHERE student_id = $1 ORDER BY weekday`, studentID)
	if err != nil {
		return nil, fmt.Errorf("students: select weekdays: %w", err)
	}
	defer rows.Close()

	var days []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("students: scan weekday: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *PostgresRepository) AddBlockedDishes(ctx context.Context, studentID int64, names []string) error {
	const insert = `
		INSERT INTO blocked_dishes (student_id, name)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM blocked_dishes
			WHERE student_id = $1 AND lower(name) = lower($2)
		)
	`
	for _, name := range trimNonEmpty(names) {
		if _, err := r.pool.Exec(ctx, insert, studentID, name); err != nil {
			return fmt.Errorf("students: insert blocked dish: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) RemoveBlockedDishes(ctx context.Context, studentID int64, names []string) error {
	for _, name := range trimNonEmpty(names) {
		if _, err := r.pool.Exec(ctx,
			`DELETE FROM blocked_dishes WHERE student_id = $1 AND lower(name) = lower($2)`, studentID, name); err != nil {
			return fmt.Errorf("students: delete blocked dish: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) ClearBlockedDishes(ctx context.Context, studentID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM blocked_dishes WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("students: clear blocked dishes: %w", err)
	}
	return nil
}

func (r *PostgresRepository) BlockedDishes(ctx context.Context, studentID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name FROM blocked_dishes WHERE student_id = $1 ORDER BY name`, studentID)
	if err != nil {
		return nil, fmt.Errorf("students: select blocked dishes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("students: scan blocked dish: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *PostgresRepository) SetActive(ctx context.Context, studentID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE students SET active = $2 WHERE id = $1`, studentID, active)
	if err != nil {
		return fmt.Errorf("students: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func (r *PostgresRepository) scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	if err := row.Scan(&s.ID, &s.Registration, &s.Name, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("students: select student: %w", err)
	}
	return &s, nil
}

func trimNonEmpty(names []string) []string {
	var out []string
	for _, n := range names {
		if t := strings.TrimSpace(n); t != "" {
			out = append(out, t)
		}
	}
	return out
}
