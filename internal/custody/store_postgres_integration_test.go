//go:build integration

package custody_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"krishichain/internal/custody"
	"krishichain/internal/identity"
	"krishichain/internal/ledger"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
	"krishichain/pkg/testutil/containers"
)

// Postgres-backed semantics the memory stores cannot vouch for: unique
// violations mapping to ErrDuplicate, the CAS update on products, and dense
// per-product ledger sequencing under the real schema.
type PostgresStoresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer

	participants *identity.PostgresStore
	products     *product.PostgresStore
	records      *custody.PostgresRecordStore
	entries      *ledger.PostgresStore

	farmerID domain.ParticipantID
}

func TestPostgresStoresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoresSuite))
}

func (s *PostgresStoresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.participants = identity.NewPostgres(s.postgres.DB)
	s.products = product.NewPostgres(s.postgres.DB)
	s.records = custody.NewPostgresRecordStore(s.postgres.DB)
	s.entries = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoresSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"verification_events", "ledger_entries", "customer_records",
		"retailer_records", "distributor_records", "farmer_records",
		"products", "participants",
	)
	s.Require().NoError(err)

	farmer := &identity.Participant{
		ID:           domain.NewParticipantID(),
		Username:     "farmer1",
		Email:        "farmer1@krishichain.com",
		PasswordHash: "x",
		Role:         domain.RoleFarmer,
		FullName:     "Rajesh Kumar",
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.participants.Create(ctx, farmer))
	s.farmerID = farmer.ID
}

func (s *PostgresStoresSuite) createProduct(qrCode string) *product.Product {
	now := time.Now()
	p := &product.Product{
		ID:           domain.NewProductID(),
		QRCode:       qrCode,
		Name:         "Basmati Rice",
		Category:     "Grains",
		CurrentStage: domain.StageFarmer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.products.Create(context.Background(), p))
	return p
}

func (s *PostgresStoresSuite) TestParticipantUniqueness() {
	ctx := context.Background()
	dup := &identity.Participant{
		ID:           domain.NewParticipantID(),
		Username:     "FARMER1",
		Email:        "elsewhere@krishichain.com",
		PasswordHash: "x",
		Role:         domain.RoleFarmer,
		FullName:     "Impostor",
		CreatedAt:    time.Now(),
	}
	s.Require().ErrorIs(s.participants.Create(ctx, dup), sentinel.ErrDuplicate)
}

func (s *PostgresStoresSuite) TestProductAdvanceStageCAS() {
	ctx := context.Background()
	p := s.createProduct("QR-AAAA11112222")

	s.Require().NoError(s.products.AdvanceStage(ctx, p.ID, domain.StageFarmer, domain.StageDistributor, time.Now()))

	err := s.products.AdvanceStage(ctx, p.ID, domain.StageFarmer, domain.StageDistributor, time.Now())
	s.Require().ErrorIs(err, sentinel.ErrStaleStage)

	stored, err := s.products.FindByQRCode(ctx, p.QRCode)
	s.Require().NoError(err)
	s.Equal(domain.StageDistributor, stored.CurrentStage)
}

func (s *PostgresStoresSuite) TestStageRecordUniqueness() {
	ctx := context.Background()
	p := s.createProduct("QR-BBBB33334444")

	record := &custody.FarmerRecord{
		ProductID: p.ID,
		FarmerID:  s.farmerID,
		FarmerAttributes: custody.FarmerAttributes{
			Quantity: 100, Unit: "kg", FarmerPrice: 80,
			FarmLocation: "Punjab", HarvestDate: "2025-09-15",
		},
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.records.CreateFarmerRecord(ctx, record))
	s.Require().ErrorIs(s.records.CreateFarmerRecord(ctx, record), sentinel.ErrDuplicate)

	found, err := s.records.FarmerRecordByProduct(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(float64(100), found.Quantity)

	_, err = s.records.DistributorRecordByProduct(ctx, p.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoresSuite) TestLedgerSequencing() {
	ctx := context.Background()
	p := s.createProduct("QR-CCCC55556666")
	other := s.createProduct("QR-DDDD77778888")

	for i := 0; i < 3; i++ {
		entry := ledger.Entry{
			ID:        uuid.New(),
			ProductID: p.ID,
			Stage:     domain.StageFarmer,
			ActorID:   s.farmerID,
			Action:    ledger.ActionProductRegistered,
			Timestamp: time.Now(),
		}
		s.Require().NoError(s.entries.Append(ctx, &entry))
		s.Equal(int64(i+1), entry.Seq)
	}

	entry := ledger.Entry{
		ID:        uuid.New(),
		ProductID: other.ID,
		Stage:     domain.StageFarmer,
		ActorID:   s.farmerID,
		Action:    ledger.ActionProductRegistered,
		Timestamp: time.Now(),
	}
	s.Require().NoError(s.entries.Append(ctx, &entry))
	s.Equal(int64(1), entry.Seq, "sequence numbering is per product")

	entries, err := s.entries.ListByProduct(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for i, e := range entries {
		s.Equal(int64(i+1), e.Seq)
	}
}
