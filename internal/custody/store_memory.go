package custody

import (
	"context"
	"sync"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps stage records in process memory, one map per
// stage, enforcing the at-most-one-record-per-(product, stage) invariant.
type InMemoryRecordStore struct {
	mu           sync.RWMutex
	farmers      map[domain.ProductID]*FarmerRecord
	distributors map[domain.ProductID]*DistributorRecord
	retailers    map[domain.ProductID]*RetailerRecord
	customers    map[domain.ProductID]*CustomerRecord
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{
		farmers:      make(map[domain.ProductID]*FarmerRecord),
		distributors: make(map[domain.ProductID]*DistributorRecord),
		retailers:    make(map[domain.ProductID]*RetailerRecord),
		customers:    make(map[domain.ProductID]*CustomerRecord),
	}
}

func (s *InMemoryRecordStore) CreateFarmerRecord(_ context.Context, r *FarmerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.farmers[r.ProductID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *r
	s.farmers[r.ProductID] = &cp
	return nil
}

func (s *InMemoryRecordStore) FarmerRecordByProduct(_ context.Context, productID domain.ProductID) (*FarmerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.farmers[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryRecordStore) ListFarmerRecordsByFarmer(_ context.Context, farmerID domain.ParticipantID) ([]FarmerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []FarmerRecord
	for _, r := range s.farmers {
		if r.FarmerID == farmerID {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (s *InMemoryRecordStore) CreateDistributorRecord(_ context.Context, r *DistributorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.distributors[r.ProductID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *r
	s.distributors[r.ProductID] = &cp
	return nil
}

func (s *InMemoryRecordStore) DistributorRecordByProduct(_ context.Context, productID domain.ProductID) (*DistributorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.distributors[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryRecordStore) ListDistributorRecordsByDistributor(_ context.Context, distributorID domain.ParticipantID) ([]DistributorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []DistributorRecord
	for _, r := range s.distributors {
		if r.DistributorID == distributorID {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (s *InMemoryRecordStore) CreateRetailerRecord(_ context.Context, r *RetailerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.retailers[r.ProductID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *r
	s.retailers[r.ProductID] = &cp
	return nil
}

func (s *InMemoryRecordStore) RetailerRecordByProduct(_ context.Context, productID domain.ProductID) (*RetailerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.retailers[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryRecordStore) ListRetailerRecordsByRetailer(_ context.Context, retailerID domain.ParticipantID) ([]RetailerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []RetailerRecord
	for _, r := range s.retailers {
		if r.RetailerID == retailerID {
			records = append(records, *r)
		}
	}
	return records, nil
}

func (s *InMemoryRecordStore) CreateCustomerRecord(_ context.Context, r *CustomerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.customers[r.ProductID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *r
	s.customers[r.ProductID] = &cp
	return nil
}

func (s *InMemoryRecordStore) CustomerRecordByProduct(_ context.Context, productID domain.ProductID) (*CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.customers[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}
