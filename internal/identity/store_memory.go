package identity

import (
	"context"
	"strings"
	"sync"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
)

// InMemoryStore keeps participants in process memory. Used by unit tests and
// local development without Postgres.
type InMemoryStore struct {
	mu           sync.RWMutex
	participants map[domain.ParticipantID]*Participant
	byUsername   map[string]domain.ParticipantID
	byEmail      map[string]domain.ParticipantID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		participants: make(map[domain.ParticipantID]*Participant),
		byUsername:   make(map[string]domain.ParticipantID),
		byEmail:      make(map[string]domain.ParticipantID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	username := strings.ToLower(p.Username)
	email := strings.ToLower(p.Email)
	if _, taken := s.byUsername[username]; taken {
		return sentinel.ErrDuplicate
	}
	if _, taken := s.byEmail[email]; taken {
		return sentinel.ErrDuplicate
	}
	cp := *p
	s.participants[p.ID] = &cp
	s.byUsername[username] = p.ID
	s.byEmail[email] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ParticipantID) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.participants[id]
	return &cp, nil
}
