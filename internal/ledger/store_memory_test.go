package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"krishichain/pkg/domain"
)

type LedgerStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func (s *LedgerStoreSuite) append(productID domain.ProductID, action string) Entry {
	entry := Entry{
		ID:        uuid.New(),
		ProductID: productID,
		Stage:     domain.StageFarmer,
		ActorID:   domain.NewParticipantID(),
		Action:    action,
		Timestamp: time.Now(),
	}
	s.Require().NoError(s.store.Append(context.Background(), &entry))
	return entry
}

func (s *LedgerStoreSuite) TestSequenceIsDensePerProduct() {
	ctx := context.Background()
	productA := domain.NewProductID()
	productB := domain.NewProductID()

	first := s.append(productA, ActionProductRegistered)
	second := s.append(productA, ActionDistributorRecordAdded)
	other := s.append(productB, ActionProductRegistered)

	s.Equal(int64(1), first.Seq)
	s.Equal(int64(2), second.Seq)
	s.Equal(int64(1), other.Seq, "sequence numbering is per product")

	entries, err := s.store.ListByProduct(ctx, productA)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(ActionProductRegistered, entries[0].Action)
	s.Equal(ActionDistributorRecordAdded, entries[1].Action)

	count, err := s.store.CountByProduct(ctx, productA)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

func (s *LedgerStoreSuite) TestListUnknownProductIsEmpty() {
	entries, err := s.store.ListByProduct(context.Background(), domain.NewProductID())
	s.Require().NoError(err)
	s.Empty(entries)
}
