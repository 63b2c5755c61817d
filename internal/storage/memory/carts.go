// Package memory provides an in-memory cart persistence adapter for tests
// and local development.
package memory

import (
	"context"
	"sync"

	"github.com/verdora/storefront/internal/domain/cart"
)

// CartStore implements cart.Persistence with a process-local map. Records are
// copied on the way in and out so callers never share backing slices.
type CartStore struct {
	mu   sync.RWMutex
	recs map[string]cart.Record
}

var _ cart.Persistence = (*CartStore)(nil)

// NewCartStore creates an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{recs: make(map[string]cart.Record)}
}

// Load returns the saved record for the client, or an empty record when none
// exists.
func (s *CartStore) Load(_ context.Context, clientID string) (cart.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[clientID]
	if !ok {
		return cart.EmptyRecord(), nil
	}
	return copyRecord(rec), nil
}

// Save stores the full record for the client.
func (s *CartStore) Save(_ context.Context, clientID string, rec cart.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[clientID] = copyRecord(rec)
	return nil
}

func copyRecord(rec cart.Record) cart.Record {
	out := rec
	out.Lines = make([]cart.RecordLine, len(rec.Lines))
	copy(out.Lines, rec.Lines)
	return out
}
