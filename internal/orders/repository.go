package orders

import (
	"context"
	"sort"
	"sync"
)

// Repository reads and writes order rows. At most one row may exist per
// (student, date); RecordCancellation must stay idempotent under retry.
type Repository interface {
	// HasOrder reports whether any row exists for (student, date).
	HasOrder(ctx context.Context, studentID int64, isoDate string) (bool, error)

	// IsCancelled reports whether the row for (student, date) already
	// carries a cancellation motivo.
	IsCancelled(ctx context.Context, studentID int64, isoDate string) (bool, error)

	// RecordCancellation overwrites the motivo of the existing row, or
	// inserts one when the date has no row yet.
	RecordCancellation(ctx context.Context, studentID int64, isoDate, motivo string) error

	// LastOrder returns the most recent non-noise row, or nil when none.
	LastOrder(ctx context.Context, studentID int64) (*Order, error)

	// RecentOrders returns non-noise rows on/after fromISO, newest first.
	RecentOrders(ctx context.Context, studentID int64, fromISO string) ([]Order, error)

	// UpcomingDish returns the latest published menu entry, or nil.
	UpcomingDish(ctx context.Context) (*Dish, error)
}

// InMemoryRepository backs tests and local runs.
type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[int64]map[string]string // studentID -> isoDate -> motivo
	dish *Dish
}

// NewInMemoryRepository creates an empty in-memory order store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[int64]map[string]string)}
}

// SeedOrder inserts a row the way the ordering job would.
func (r *InMemoryRepository) SeedOrder(studentID int64, isoDate, motivo string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(studentID, isoDate, motivo)
}

// SetUpcomingDish publishes the menu entry returned by UpcomingDish.
func (r *InMemoryRepository) SetUpcomingDish(isoDate, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dish = &Dish{Date: isoDate, Name: name}
}

// OrderCount reports the number of rows stored for a student.
func (r *InMemoryRepository) OrderCount(studentID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows[studentID])
}

// Motivo returns the stored motivo for (student, date), or "".
func (r *InMemoryRepository) Motivo(studentID int64, isoDate string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rows[studentID][isoDate]
}

func (r *InMemoryRepository) put(studentID int64, isoDate, motivo string) {
	if r.rows[studentID] == nil {
		r.rows[studentID] = make(map[string]string)
	}
	r.rows[studentID][isoDate] = motivo
}

func (r *InMemoryRepository) HasOrder(ctx context.Context, studentID int64, isoDate string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rows[studentID][isoDate]
	return ok, nil
}

func (r *InMemoryRepository) IsCancelled(ctx context.Context, studentID int64, isoDate string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	motivo, ok := r.rows[studentID][isoDate]
	return ok && IsCancellationMotivo(motivo), nil
}

func (r *InMemoryRepository) RecordCancellation(ctx context.Context, studentID int64, isoDate, motivo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(studentID, isoDate, motivo)
	return nil
}

func (r *InMemoryRepository) LastOrder(ctx context.Context, studentID int64) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Order
	for date, motivo := range r.rows[studentID] {
		if isNoiseMotivo(motivo) {
			continue
		}
		if latest == nil || date > latest.Date {
			latest = &Order{StudentID: studentID, Date: date, Motivo: motivo}
		}
	}
	return latest, nil
}

func (r *InMemoryRepository) RecentOrders(ctx context.Context, studentID int64, fromISO string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Order
	for date, motivo := range r.rows[studentID] {
		if date < fromISO || isNoiseMotivo(motivo) {
			continue
		}
		out = append(out, Order{StudentID: studentID, Date: date, Motivo: motivo})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r *InMemoryRepository) UpcomingDish(ctx context.Context) (*Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.dish == nil {
		return nil, nil
	}
	cp := *r.dish
	return &cp, nil
}
