package custody

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"krishichain/internal/ledger"
	"krishichain/internal/platform/metrics"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
	"krishichain/pkg/qrtoken"
	"krishichain/pkg/requestcontext"
)

// The engine owns the only write path through the custody chain, so the
// transition table, atomicity and rejection semantics are all pinned here.
type EngineSuite struct {
	suite.Suite
	products *product.InMemoryStore
	records  *InMemoryRecordStore
	entries  *ledger.InMemoryStore
	stores   Stores
	engine   *Engine

	farmer      requestcontext.Participant
	distributor requestcontext.Participant
	retailer    requestcontext.Participant
	customer    requestcontext.Participant
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.products = product.NewInMemoryStore()
	s.records = NewInMemoryRecordStore()
	s.entries = ledger.NewInMemoryStore()
	s.stores = Stores{Products: s.products, Records: s.records, Ledger: s.entries}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.engine = NewEngine(NewShardedTx(s.stores), log, metrics.NewWith(prometheus.NewRegistry()))

	s.farmer = requestcontext.Participant{ID: domain.NewParticipantID(), Username: "farmer1", Role: domain.RoleFarmer}
	s.distributor = requestcontext.Participant{ID: domain.NewParticipantID(), Username: "distributor1", Role: domain.RoleDistributor}
	s.retailer = requestcontext.Participant{ID: domain.NewParticipantID(), Username: "retailer1", Role: domain.RoleRetailer}
	s.customer = requestcontext.Participant{ID: domain.NewParticipantID(), Username: "customer1", Role: domain.RoleCustomer}
}

func (s *EngineSuite) as(p requestcontext.Participant) context.Context {
	return requestcontext.WithParticipant(context.Background(), p)
}

func validFarmerAttrs() FarmerAttributes {
	return FarmerAttributes{
		Quantity:     100,
		Unit:         "kg",
		FarmerPrice:  80,
		FarmLocation: "Village Khetpura, Punjab",
		HarvestDate:  "2025-09-15",
	}
}

func validDistributorAttrs() DistributorAttributes {
	return DistributorAttributes{
		DistributorName: "Punjab Grains Ltd",
		StorageLocation: "Delhi Warehouse",
		TransportDate:   "2025-09-17",
	}
}

func validRetailerAttrs() RetailerAttributes {
	return RetailerAttributes{
		ShopName:       "Fresh Mart",
		FinalPrice:     120,
		RetailLocation: "Mumbai Central",
	}
}

func (s *EngineSuite) register() *product.Product {
	p, err := s.engine.RegisterProduct(s.as(s.farmer), RegisterProductInput{
		Name:       "Basmati Rice",
		Category:   "Grains",
		Attributes: validFarmerAttrs(),
	})
	s.Require().NoError(err)
	return p
}

func (s *EngineSuite) ledgerCount(id domain.ProductID) int64 {
	count, err := s.entries.CountByProduct(context.Background(), id)
	s.Require().NoError(err)
	return count
}

func (s *EngineSuite) TestRegisterProduct() {
	s.Run("creates product at the farmer stage with a ledger entry", func() {
		p := s.register()

		s.Equal(domain.StageFarmer, p.CurrentStage)
		s.True(qrtoken.Valid(p.QRCode), "qr code %q should match the token format", p.QRCode)

		record, err := s.records.FarmerRecordByProduct(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Equal(s.farmer.ID, record.FarmerID)
		s.Equal("kg", record.Unit)

		entries, err := s.entries.ListByProduct(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(int64(1), entries[0].Seq)
		s.Equal(ledger.ActionProductRegistered, entries[0].Action)
		s.Equal(s.farmer.ID, entries[0].ActorID)
	})

	s.Run("defaults the unit when omitted", func() {
		attrs := validFarmerAttrs()
		attrs.Unit = ""
		p, err := s.engine.RegisterProduct(s.as(s.farmer), RegisterProductInput{
			Name:       "Wheat",
			Attributes: attrs,
		})
		s.Require().NoError(err)

		record, err := s.records.FarmerRecordByProduct(context.Background(), p.ID)
		s.Require().NoError(err)
		s.Equal("kg", record.Unit)
	})

	s.Run("rejects an unauthenticated caller", func() {
		_, err := s.engine.RegisterProduct(context.Background(), RegisterProductInput{
			Name:       "Wheat",
			Attributes: validFarmerAttrs(),
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects a non-farmer caller", func() {
		_, err := s.engine.RegisterProduct(s.as(s.distributor), RegisterProductInput{
			Name:       "Wheat",
			Attributes: validFarmerAttrs(),
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects missing name and attributes", func() {
		_, err := s.engine.RegisterProduct(s.as(s.farmer), RegisterProductInput{
			Attributes: validFarmerAttrs(),
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.engine.RegisterProduct(s.as(s.farmer), RegisterProductInput{
			Name:       "Wheat",
			Attributes: FarmerAttributes{},
		})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EngineSuite) TestAdvanceStageWalksTheChain() {
	p := s.register()

	updated, err := s.engine.AdvanceStage(s.as(s.distributor), p.QRCode, domain.StageDistributor, validDistributorAttrs())
	s.Require().NoError(err)
	s.Equal(domain.StageDistributor, updated.CurrentStage)

	updated, err = s.engine.AdvanceStage(s.as(s.retailer), p.QRCode, domain.StageRetailer, validRetailerAttrs())
	s.Require().NoError(err)
	s.Equal(domain.StageRetailer, updated.CurrentStage)

	updated, err = s.engine.AdvanceStage(s.as(s.customer), p.QRCode, domain.StageCustomer, CustomerAttributes{PurchaseLocation: "Mumbai Central"})
	s.Require().NoError(err)
	s.Equal(domain.StageCustomer, updated.CurrentStage)

	// One ledger entry per accepted write, densely numbered.
	entries, err := s.entries.ListByProduct(context.Background(), p.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	actions := []string{
		ledger.ActionProductRegistered,
		ledger.ActionDistributorRecordAdded,
		ledger.ActionRetailerRecordAdded,
		ledger.ActionCustomerVerified,
	}
	for i, entry := range entries {
		s.Equal(int64(i+1), entry.Seq)
		s.Equal(actions[i], entry.Action)
	}

	// The chain is terminal: nothing advances past the customer stage.
	_, err = s.engine.AdvanceStage(s.as(s.customer), p.QRCode, domain.StageCustomer, CustomerAttributes{})
	s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *EngineSuite) TestAdvanceStageRejections() {
	s.Run("skipping a stage leaves everything unchanged", func() {
		p := s.register()

		_, err := s.engine.AdvanceStage(s.as(s.retailer), p.QRCode, domain.StageRetailer, validRetailerAttrs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		stored, findErr := s.products.FindByQRCode(context.Background(), p.QRCode)
		s.Require().NoError(findErr)
		s.Equal(domain.StageFarmer, stored.CurrentStage)
		s.Equal(int64(1), s.ledgerCount(p.ID))

		_, recErr := s.records.RetailerRecordByProduct(context.Background(), p.ID)
		s.Require().Error(recErr, "no retailer record may exist after a rejected advance")
	})

	s.Run("role must match the target stage", func() {
		p := s.register()

		_, err := s.engine.AdvanceStage(s.as(s.retailer), p.QRCode, domain.StageDistributor, validDistributorAttrs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(int64(1), s.ledgerCount(p.ID))
	})

	s.Run("unknown qr code is not found", func() {
		_, err := s.engine.AdvanceStage(s.as(s.distributor), "QR-000000000000", domain.StageDistributor, validDistributorAttrs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("attributes must match the target stage", func() {
		p := s.register()

		_, err := s.engine.AdvanceStage(s.as(s.distributor), p.QRCode, domain.StageDistributor, validRetailerAttrs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("farmer stage is never a target", func() {
		p := s.register()

		_, err := s.engine.AdvanceStage(s.as(s.farmer), p.QRCode, domain.StageFarmer, validFarmerAttrs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("an already recorded stage is rejected, not overwritten", func() {
		p := s.register()

		// Pre-existing distributor record with the product still at the
		// farmer stage, as left behind by a partially recovered migration.
		err := s.records.CreateDistributorRecord(context.Background(), &DistributorRecord{
			ProductID:             p.ID,
			DistributorID:         s.distributor.ID,
			DistributorAttributes: validDistributorAttrs(),
			CreatedAt:             time.Now(),
		})
		s.Require().NoError(err)

		_, err = s.engine.AdvanceStage(s.as(s.distributor), p.QRCode, domain.StageDistributor, validDistributorAttrs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		stored, findErr := s.products.FindByQRCode(context.Background(), p.QRCode)
		s.Require().NoError(findErr)
		s.Equal(domain.StageFarmer, stored.CurrentStage)
		s.Equal(int64(1), s.ledgerCount(p.ID))
	})
}

func (s *EngineSuite) TestConcurrentAdvanceHasOneWinner() {
	p := s.register()

	const contenders = 16
	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = s.engine.AdvanceStage(s.as(s.distributor), p.QRCode, domain.StageDistributor, validDistributorAttrs())
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		rejected := dErrors.HasCode(err, dErrors.CodeInvalidTransition) ||
			dErrors.HasCode(err, dErrors.CodeConflict)
		s.Require().True(rejected, "loser must fail with invalid_transition or conflict, got %v", err)
	}
	s.Equal(1, wins, "exactly one contender may win the advance")

	stored, err := s.products.FindByQRCode(context.Background(), p.QRCode)
	s.Require().NoError(err)
	s.Equal(domain.StageDistributor, stored.CurrentStage)
	s.Equal(int64(2), s.ledgerCount(p.ID))
}
