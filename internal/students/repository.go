package students

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Repository exposes student, contact, weekday-preference and blocked-dish
// access. Implementations must keep each write idempotent under retry.
type Repository interface {
	// FindByChatID resolves an inbound chat identifier to a student using
	// tolerant phone matching. Returns ErrStudentNotFound when no contact
	// matches.
	FindByChatID(ctx context.Context, chatID string) (*Student, error)

	// FindByRegistration looks a student up by registration number.
	FindByRegistration(ctx context.Context, registration string) (*Student, error)

	// LinkContact ties a registration to a chat identifier. A link to an
	// equivalent phone refreshes the stored format; a conflicting link
	// (either side already taken) fails with ErrLinkConflict.
	LinkContact(ctx context.Context, registration, chatID string) (*Student, error)

	// ReplaceWeekdays swaps the full preference set (delete then insert).
	ReplaceWeekdays(ctx context.Context, studentID int64, days []int) error
	Weekdays(ctx context.Context, studentID int64) ([]int, error)

	// AddBlockedDishes inserts names, deduplicating case-insensitively.
	AddBlockedDishes(ctx context.Context, studentID int64, names []string) error
	RemoveBlockedDishes(ctx context.Context, studentID int64, names []string) error
	ClearBlockedDishes(ctx context.Context, studentID int64) error
	BlockedDishes(ctx context.Context, studentID int64) ([]string, error)

	SetActive(ctx context.Context, studentID int64, active bool) error
}

// InMemoryRepository keeps everything in maps. Used by tests and as the
// reference implementation of the linking rules.
type InMemoryRepository struct {
	mu        sync.RWMutex
	nextID    int64
	students  map[int64]*Student
	contacts  []Contact
	weekdays  map[int64][]int
	blocked   map[int64][]string
	contactID int64
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID:   1,
		students: make(map[int64]*Student),
		weekdays: make(map[int64][]int),
		blocked:  make(map[int64][]string),
	}
}

// SeedStudent registers a student record and returns its ID.
func (r *InMemoryRepository) SeedStudent(registration, name string, active bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.students[id] = &Student{ID: id, Registration: registration, Name: name, Active: active}
	return id
}

// SeedContact attaches a phone to an existing student.
func (r *InMemoryRepository) SeedContact(studentID int64, phone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contactID++
	r.contacts = append(r.contacts, Contact{ID: r.contactID, StudentID: studentID, Phone: phone})
}

func (r *InMemoryRepository) FindByChatID(ctx context.Context, chatID string) (*Student, error) {
	key := PhoneKeyFromChatID(chatID)
	if key == "" {
		return nil, ErrStudentNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, candidate := range lookupCandidates(key) {
		for _, c := range r.contacts {
			if DigitsOnly(c.Phone) == candidate {
				return r.copyStudent(c.StudentID)
			}
		}
	}

	if suffix := suffixKey(key); suffix != "" {
		for _, c := range r.contacts {
			if strings.HasSuffix(DigitsOnly(c.Phone), suffix) {
				return r.copyStudent(c.StudentID)
			}
		}
	}

	return nil, ErrStudentNotFound
}

func (r *InMemoryRepository) FindByRegistration(ctx context.Context, registration string) (*Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findByRegistrationLocked(registration)
}

func (r *InMemoryRepository) findByRegistrationLocked(registration string) (*Student, error) {
	for id, s := range r.students {
		if s.Registration == registration {
			return r.copyStudent(id)
		}
	}
	return nil, ErrStudentNotFound
}

func (r *InMemoryRepository) LinkContact(ctx context.Context, registration, chatID string) (*Student, error) {
	phone := PhoneKeyFromChatID(chatID)

	r.mu.Lock()
	defer r.mu.Unlock()

	student, err := r.findByRegistrationLocked(registration)
	if err != nil {
		return nil, err
	}

	// The phone may not already belong to a different student.
	for _, c := range r.contacts {
		if c.StudentID != student.ID && SamePhone(c.Phone, phone) {
			return nil, ErrLinkConflict
		}
	}

	for i, c := range r.contacts {
		if c.StudentID != student.ID {
			continue
		}
		if SamePhone(c.Phone, phone) {
			// Same underlying phone: refresh to the transport's format.
			r.contacts[i].Phone = phone
			return student, nil
		}
		return nil, ErrLinkConflict
	}

	r.contactID++
	r.contacts = append(r.contacts, Contact{ID: r.contactID, StudentID: student.ID, Phone: phone})
	return student, nil
}

func (r *InMemoryRepository) ReplaceWeekdays(ctx context.Context, studentID int64, days []int) error {
	dedup := make(map[int]struct{})
	var clean []int
	for _, d := range days {
		if d < 1 || d > 5 {
			continue
		}
		if _, ok := dedup[d]; ok {
			continue
		}
		dedup[d] = struct{}{}
		clean = append(clean, d)
	}
	sort.Ints(clean)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.weekdays[studentID] = clean
	return nil
}

func (r *InMemoryRepository) Weekdays(ctx context.Context, studentID int64) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]int(nil), r.weekdays[studentID]...), nil
}

func (r *InMemoryRepository) AddBlockedDishes(ctx context.Context, studentID int64, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		exists := false
		for _, b := range r.blocked[studentID] {
			if strings.EqualFold(b, name) {
				exists = true
				break
			}
		}
		if !exists {
			r.blocked[studentID] = append(r.blocked[studentID], name)
		}
	}
	sort.Strings(r.blocked[studentID])
	return nil
}

func (r *InMemoryRepository) RemoveBlockedDishes(ctx context.Context, studentID int64, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []string
	for _, b := range r.blocked[studentID] {
		remove := false
		for _, name := range names {
			if strings.EqualFold(b, strings.TrimSpace(name)) {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, b)
		}
	}
	r.blocked[studentID] = kept
	return nil
}

func (r *InMemoryRepository) ClearBlockedDishes(ctx context.Context, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocked, studentID)
	return nil
}

func (r *InMemoryRepository) BlockedDishes(ctx context.Context, studentID int64) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.blocked[studentID]...), nil
}

func (r *InMemoryRepository) SetActive(ctx context.Context, studentID int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[studentID]
	if !ok {
		return ErrStudentNotFound
	}
	s.Active = active
	return nil
}

func (r *InMemoryRepository) copyStudent(id int64) (*Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	cp := *s
	return &cp, nil
}
