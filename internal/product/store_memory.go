package product

import (
	"context"
	"sync"
	"time"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
)

// InMemoryStore keeps products in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[domain.ProductID]*Product
	byQRCode map[string]domain.ProductID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[domain.ProductID]*Product),
		byQRCode: make(map[string]domain.ProductID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byQRCode[p.QRCode]; taken {
		return sentinel.ErrDuplicate
	}
	cp := *p
	s.products[p.ID] = &cp
	s.byQRCode[p.QRCode] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ProductID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindByQRCode(_ context.Context, qrCode string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byQRCode[qrCode]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.products[id]
	return &cp, nil
}

// AdvanceStage moves a product from one stage to the next with
// compare-and-swap semantics: it fails with sentinel.ErrStaleStage when the
// stored stage no longer matches from, so racing advancers cannot both win.
func (s *InMemoryStore) AdvanceStage(_ context.Context, id domain.ProductID, from, to domain.Stage, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.CurrentStage != from {
		return sentinel.ErrStaleStage
	}
	p.CurrentStage = to
	p.UpdatedAt = now
	return nil
}
