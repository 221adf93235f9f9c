// Package memory provides an in-memory journal.Store.
package memory

import (
	"context"
	"sync"

	"github.com/jmcleod/vaultsession/journal"
)

// DefaultCapacity is the number of entries kept when none is given.
const DefaultCapacity = 1000

// Store keeps the most recent entries in memory. Older entries are dropped
// once the capacity is reached.
type Store struct {
	mu       sync.RWMutex
	entries  []journal.Entry
	capacity int
}

var _ journal.Store = (*Store)(nil)

// NewStore returns a Store holding at most capacity entries, or
// DefaultCapacity when capacity is not positive.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

func (s *Store) Append(_ context.Context, e journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = append(s.entries[:0:0], s.entries[over:]...)
	}
	return nil
}

func (s *Store) List(_ context.Context, limit int) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]journal.Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
