package assistant

import (
	"sync"
	"time"
)

// UsageLimiter caps assistant calls per user and in total for the current
// day. Counters reset lazily when the date changes.
type UsageLimiter struct {
	mu          sync.Mutex
	userLimit   int
	globalLimit int
	day         string
	perUser     map[string]int
	global      int
	now         func() time.Time
}

// NewUsageLimiter creates a limiter with the given daily caps. A nil now
// func defaults to time.Now.
func NewUsageLimiter(userLimit, globalLimit int, now func() time.Time) *UsageLimiter {
	if now == nil {
		now = time.Now
	}
	return &UsageLimiter{
		userLimit:   userLimit,
		globalLimit: globalLimit,
		perUser:     make(map[string]int),
		now:         now,
	}
}

// Allow reports whether chatID may make one more assistant call today and
// consumes one unit of both budgets when it may.
func (l *UsageLimiter) Allow(chatID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.now().Format("2006-01-02")
	if today != l.day {
		l.day = today
		l.perUser = make(map[string]int)
		l.global = 0
	}

	if l.global >= l.globalLimit || l.perUser[chatID] >= l.userLimit {
		return false
	}
	l.global++
	l.perUser[chatID]++
	return true
}
