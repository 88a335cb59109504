package custody

import (
	"context"
	"time"

	"krishichain/internal/ledger"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
)

// ProductStore is the product registry as the engine sees it. AdvanceStage
// has compare-and-swap semantics: it fails with sentinel.ErrStaleStage when
// the stored stage no longer matches from.
type ProductStore interface {
	Create(ctx context.Context, p *product.Product) error
	FindByID(ctx context.Context, id domain.ProductID) (*product.Product, error)
	FindByQRCode(ctx context.Context, qrCode string) (*product.Product, error)
	AdvanceStage(ctx context.Context, id domain.ProductID, from, to domain.Stage, now time.Time) error
}

// RecordStore persists the per-stage records. Creates fail with
// sentinel.ErrDuplicate when a record already exists for the (product, stage)
// pair; finds fail with sentinel.ErrNotFound when the stage has not been
// reached. The ListBy methods back the per-role dashboards.
type RecordStore interface {
	CreateFarmerRecord(ctx context.Context, r *FarmerRecord) error
	FarmerRecordByProduct(ctx context.Context, productID domain.ProductID) (*FarmerRecord, error)
	ListFarmerRecordsByFarmer(ctx context.Context, farmerID domain.ParticipantID) ([]FarmerRecord, error)

	CreateDistributorRecord(ctx context.Context, r *DistributorRecord) error
	DistributorRecordByProduct(ctx context.Context, productID domain.ProductID) (*DistributorRecord, error)
	ListDistributorRecordsByDistributor(ctx context.Context, distributorID domain.ParticipantID) ([]DistributorRecord, error)

	CreateRetailerRecord(ctx context.Context, r *RetailerRecord) error
	RetailerRecordByProduct(ctx context.Context, productID domain.ProductID) (*RetailerRecord, error)
	ListRetailerRecordsByRetailer(ctx context.Context, retailerID domain.ParticipantID) ([]RetailerRecord, error)

	CreateCustomerRecord(ctx context.Context, r *CustomerRecord) error
	CustomerRecordByProduct(ctx context.Context, productID domain.ProductID) (*CustomerRecord, error)
}

// LedgerStore is the append-only tracking log as the engine sees it.
type LedgerStore interface {
	Append(ctx context.Context, entry *ledger.Entry) error
	ListByProduct(ctx context.Context, productID domain.ProductID) ([]ledger.Entry, error)
}

// Stores bundles the three stores the engine mutates together. A Tx
// implementation hands the engine a Stores view whose writes commit or roll
// back as one unit.
type Stores struct {
	Products ProductStore
	Records  RecordStore
	Ledger   LedgerStore
}
