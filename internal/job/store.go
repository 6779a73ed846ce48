package job

import (
	"sync"

	"github.com/google/uuid"
)

// StatusStore maps job identifiers to their current record.
// Records are stored by value, so every Put is an atomic replace and readers
// never see a partially written record. It is safe for concurrent use.
type StatusStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewStatusStore creates an empty StatusStore
func NewStatusStore() *StatusStore {
	return &StatusStore{
		records: make(map[uuid.UUID]Record),
	}
}

// Put stores rec under id, replacing any existing record
func (s *StatusStore) Put(id uuid.UUID, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

// Insert stores rec under id only if id is not already present.
// It reports whether the record was stored.
func (s *StatusStore) Insert(id uuid.UUID, rec Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; exists {
		return false
	}
	s.records[id] = rec
	return true
}

// Get returns the current record for id and whether it exists
func (s *StatusStore) Get(id uuid.UUID) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	return rec, ok
}

// Counts returns the number of records in each status
func (s *StatusStore) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[Status]int{
		StatusPending:    0,
		StatusProcessing: 0,
		StatusCompleted:  0,
		StatusFailed:     0,
	}
	for _, rec := range s.records {
		counts[rec.Status]++
	}
	return counts
}

// Len returns the number of records held
func (s *StatusStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
