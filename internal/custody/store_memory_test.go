package custody

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
)

type RecordStoreSuite struct {
	suite.Suite
	store *InMemoryRecordStore
}

func TestRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(RecordStoreSuite))
}

func (s *RecordStoreSuite) SetupTest() {
	s.store = NewInMemoryRecordStore()
}

func (s *RecordStoreSuite) TestOneRecordPerProductAndStage() {
	ctx := context.Background()
	productID := domain.NewProductID()
	farmerID := domain.NewParticipantID()

	record := &FarmerRecord{
		ProductID:        productID,
		FarmerID:         farmerID,
		FarmerAttributes: FarmerAttributes{Quantity: 100, Unit: "kg", FarmerPrice: 80, FarmLocation: "Punjab", HarvestDate: "2025-09-15"},
		CreatedAt:        time.Now(),
	}
	s.Require().NoError(s.store.CreateFarmerRecord(ctx, record))

	s.Run("second record for the same product is a duplicate", func() {
		err := s.store.CreateFarmerRecord(ctx, record)
		s.Require().ErrorIs(err, sentinel.ErrDuplicate)
	})

	s.Run("lookup by product returns the record", func() {
		found, err := s.store.FarmerRecordByProduct(ctx, productID)
		s.Require().NoError(err)
		s.Equal(farmerID, found.FarmerID)
	})

	s.Run("unreached stages return ErrNotFound", func() {
		_, err := s.store.DistributorRecordByProduct(ctx, productID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.RetailerRecordByProduct(ctx, productID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.CustomerRecordByProduct(ctx, productID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RecordStoreSuite) TestListByActor() {
	ctx := context.Background()
	farmerID := domain.NewParticipantID()
	otherFarmer := domain.NewParticipantID()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.CreateFarmerRecord(ctx, &FarmerRecord{
			ProductID:        domain.NewProductID(),
			FarmerID:         farmerID,
			FarmerAttributes: FarmerAttributes{Quantity: 10, Unit: "kg", FarmerPrice: 5, FarmLocation: "Punjab", HarvestDate: "2025-09-10"},
			CreatedAt:        time.Now(),
		}))
	}
	s.Require().NoError(s.store.CreateFarmerRecord(ctx, &FarmerRecord{
		ProductID:        domain.NewProductID(),
		FarmerID:         otherFarmer,
		FarmerAttributes: FarmerAttributes{Quantity: 10, Unit: "kg", FarmerPrice: 5, FarmLocation: "Haryana", HarvestDate: "2025-09-10"},
		CreatedAt:        time.Now(),
	}))

	records, err := s.store.ListFarmerRecordsByFarmer(ctx, farmerID)
	s.Require().NoError(err)
	s.Len(records, 3)

	records, err = s.store.ListFarmerRecordsByFarmer(ctx, domain.NewParticipantID())
	s.Require().NoError(err)
	s.Empty(records)
}
