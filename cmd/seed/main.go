// Command seed populates a database with demo participants and walks two
// products through the supply chain, so a fresh install has something to show.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"krishichain/internal/custody"
	"krishichain/internal/identity"
	"krishichain/internal/ledger"
	"krishichain/internal/platform/config"
	"krishichain/internal/platform/logger"
	"krishichain/internal/platform/metrics"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
	txcontext "krishichain/pkg/platform/tx"
	"krishichain/pkg/requestcontext"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

var participants = []identity.RegisterInput{
	{Username: "farmer1", Email: "farmer1@krishichain.com", Password: "password123", Role: "farmer", FullName: "Rajesh Kumar", Phone: "9876543210", Address: "Village Khetpura, Punjab"},
	{Username: "distributor1", Email: "dist1@krishichain.com", Password: "password123", Role: "distributor", FullName: "Sunil Gupta", Phone: "9876543211", Address: "Delhi Warehouse, Delhi"},
	{Username: "retailer1", Email: "retail1@krishichain.com", Password: "password123", Role: "retailer", FullName: "Priya Sharma", Phone: "9876543212", Address: "Fresh Mart, Mumbai"},
	{Username: "customer1", Email: "customer1@krishichain.com", Password: "password123", Role: "customer", FullName: "Amit Verma", Phone: "9876543213", Address: "Andheri, Mumbai"},
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	if cfg.DatabaseURL == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "DATABASE_URL is required for seeding")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	identitySvc := identity.NewService(identity.NewPostgres(db))
	stores := custody.Stores{
		Products: product.NewPostgres(db),
		Records:  custody.NewPostgresRecordStore(db),
		Ledger:   ledger.NewPostgres(db),
	}
	engine := custody.NewEngine(newSeedTx(db, stores), log, metrics.New())

	byRole := map[domain.Role]*identity.Participant{}
	for _, in := range participants {
		p, err := identitySvc.Register(ctx, in)
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			log.Info("participant already exists", "username", in.Username)
			if p, err = identitySvc.Authenticate(ctx, in.Username, in.Password); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		byRole[p.Role] = p
	}

	// Basmati Rice travels the full chain; Wheat stops at the retailer.
	rice, err := engine.RegisterProduct(asActor(ctx, byRole[domain.RoleFarmer]), custody.RegisterProductInput{
		Name:     "Basmati Rice",
		Category: "Grains",
		Attributes: custody.FarmerAttributes{
			Quantity: 100, Unit: "kg", FarmerPrice: 80,
			FarmLocation: "Village Khetpura, Punjab", HarvestDate: "2025-09-15", FarmingMethod: "Organic",
		},
	})
	if err != nil {
		return err
	}
	if _, err := engine.AdvanceStage(asActor(ctx, byRole[domain.RoleDistributor]), rice.QRCode, domain.StageDistributor, custody.DistributorAttributes{
		DistributorName: "Punjab Grains Ltd", StorageLocation: "Delhi Warehouse",
		DistributorMargin: 15, TransportDate: "2025-09-17",
	}); err != nil {
		return err
	}
	if _, err := engine.AdvanceStage(asActor(ctx, byRole[domain.RoleRetailer]), rice.QRCode, domain.StageRetailer, custody.RetailerAttributes{
		ShopName: "Fresh Mart", FinalPrice: 120, RetailLocation: "Mumbai Central",
	}); err != nil {
		return err
	}
	if _, err := engine.AdvanceStage(asActor(ctx, byRole[domain.RoleCustomer]), rice.QRCode, domain.StageCustomer, custody.CustomerAttributes{
		PurchaseLocation: "Mumbai Central",
	}); err != nil {
		return err
	}

	wheat, err := engine.RegisterProduct(asActor(ctx, byRole[domain.RoleFarmer]), custody.RegisterProductInput{
		Name:     "Wheat",
		Category: "Grains",
		Attributes: custody.FarmerAttributes{
			Quantity: 200, Unit: "kg", FarmerPrice: 25,
			FarmLocation: "Village Khetpura, Punjab", HarvestDate: "2025-09-10", FarmingMethod: "Traditional",
		},
	})
	if err != nil {
		return err
	}
	if _, err := engine.AdvanceStage(asActor(ctx, byRole[domain.RoleDistributor]), wheat.QRCode, domain.StageDistributor, custody.DistributorAttributes{
		DistributorName: "Haryana Distributors", StorageLocation: "Gurgaon Hub",
		DistributorMargin: 8, TransportDate: "2025-09-12",
	}); err != nil {
		return err
	}

	log.Info("seed complete",
		"rice_qr", rice.QRCode,
		"wheat_qr", wheat.QRCode,
	)
	return nil
}

func asActor(ctx context.Context, p *identity.Participant) context.Context {
	return requestcontext.WithParticipant(ctx, requestcontext.Participant{
		ID:       p.ID,
		Username: p.Username,
		Role:     p.Role,
	})
}

// seedTx mirrors the server's transaction runner; the seeder has no reason to
// relax atomicity.
type seedTx struct {
	db     *sql.DB
	stores custody.Stores
}

func newSeedTx(db *sql.DB, stores custody.Stores) *seedTx {
	return &seedTx{db: db, stores: stores}
}

func (t *seedTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, stores custody.Stores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return err
	}
	return tx.Commit()
}
