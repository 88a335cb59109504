package ledger

import (
	"context"
	"sync"

	"krishichain/pkg/domain"
)

// InMemoryStore keeps ledger entries in process memory, per product, in
// append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.ProductID][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.ProductID][]Entry)}
}

// Append assigns the next per-product sequence number and stores the entry.
func (s *InMemoryStore) Append(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Seq = int64(len(s.entries[entry.ProductID]) + 1)
	s.entries[entry.ProductID] = append(s.entries[entry.ProductID], *entry)
	return nil
}

// ListByProduct returns the product's entries in sequence order.
func (s *InMemoryStore) ListByProduct(_ context.Context, productID domain.ProductID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[productID]...), nil
}

// CountByProduct returns the number of entries for a product.
func (s *InMemoryStore) CountByProduct(_ context.Context, productID domain.ProductID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries[productID])), nil
}
