package verify

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"krishichain/pkg/domain"
)

// VerificationEvent records that a customer looked up a product. It is an
// append-only side log, deliberately outside the custody ledger: a lookup is
// not a custody event.
type VerificationEvent struct {
	ProductID  domain.ProductID
	CustomerID domain.ParticipantID
	VerifiedAt time.Time
}

// EventStore persists verification events.
type EventStore interface {
	Append(ctx context.Context, event VerificationEvent) error
}

// InMemoryEventStore keeps verification events in process memory.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []VerificationEvent
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) Append(_ context.Context, event VerificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far. Test helper.
func (s *InMemoryEventStore) Events() []VerificationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]VerificationEvent{}, s.events...)
}

// PostgresEventStore persists verification events in the
// verification_events table.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Append(ctx context.Context, event VerificationEvent) error {
	query := `
		INSERT INTO verification_events (id, product_id, customer_id, verified_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.ProductID),
		uuid.UUID(event.CustomerID),
		event.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification event: %w", err)
	}
	return nil
}
