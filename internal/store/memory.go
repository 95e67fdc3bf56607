package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no invocation matches a query.
	ErrNotFound = errors.New("no invocations recorded for range")
)

// Invocation is one recorded tool call. It is kept for operators only and
// never consulted to answer a call.
type Invocation struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Location   string    `json:"location"`
	Unit       string    `json:"unit"`
	StartedAt  time.Time `json:"startedAt"` // always UTC
	DurationMs int64     `json:"durationMs"`
	Outcome    string    `json:"outcome"` // "ok" or the error kind
	Error      string    `json:"error,omitempty"`
}

// MemoryStore is a concurrency-safe in-memory invocation history.
type MemoryStore struct {
	mu sync.RWMutex

	// ordered by StartedAt ascending
	entries []Invocation

	// retention configuration
	maxEntries int           // max number of invocations kept
	maxAge     time.Duration // optional max age of invocations

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save appends an invocation and enforces retention.
func (s *MemoryStore) Save(inv Invocation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep ordering when calls finish out of order.
	i := len(s.entries)
	for i > 0 && s.entries[i-1].StartedAt.After(inv.StartedAt) {
		i--
	}
	s.entries = append(s.entries, Invocation{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = inv

	// Enforce retention by count.
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		over := len(s.entries) - s.maxEntries
		s.entries = append([]Invocation(nil), s.entries[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.entries); i++ {
			if !s.entries[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.entries = append([]Invocation(nil), s.entries[i:]...)
		}
	}
}

// Recent returns up to limit invocations, newest first.
func (s *MemoryStore) Recent(limit int) []Invocation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	result := make([]Invocation, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.entries[i])
	}
	return result
}

// Range returns all invocations started between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]Invocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Invocation
	for _, inv := range s.entries {
		if !inv.StartedAt.Before(from) && !inv.StartedAt.After(to) {
			result = append(result, inv)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
