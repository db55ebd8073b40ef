// Package memory provides an in-process incident store, used for local
// development, tests, and as the sink for Kafka ingest when no database is
// configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/urbansafe/risk-engine/internal/domain"
)

// Store is a thread-safe in-memory incident collection.
type Store struct {
	mu        sync.RWMutex
	incidents []domain.Incident
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// FindAll returns a copy of the collection sorted by timestamp descending.
func (s *Store) FindAll(_ context.Context) ([]domain.Incident, error) {
	s.mu.RLock()
	out := make([]domain.Incident, len(s.incidents))
	copy(out, s.incidents)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Insert appends an incident to the collection.
func (s *Store) Insert(_ context.Context, incident domain.Incident) error {
	s.mu.Lock()
	s.incidents = append(s.incidents, incident)
	s.mu.Unlock()
	return nil
}

// CheckReadiness always succeeds; an in-memory store has no dependencies.
func (s *Store) CheckReadiness(_ context.Context) error {
	return nil
}
