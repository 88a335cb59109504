package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
	txcontext "krishichain/pkg/platform/tx"
)

// PostgresRecordStore persists stage records across four stage-scoped tables.
// Primary keys on product_id enforce the one-record-per-stage invariant at
// the schema level.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresRecordStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func mapInsertErr(err error, stage string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return sentinel.ErrDuplicate
	}
	return fmt.Errorf("insert %s record: %w", stage, err)
}

func (s *PostgresRecordStore) CreateFarmerRecord(ctx context.Context, r *FarmerRecord) error {
	query := `
		INSERT INTO farmer_records (product_id, farmer_id, quantity, unit, farmer_price, farm_location, harvest_date, farming_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ProductID), uuid.UUID(r.FarmerID),
		r.Quantity, r.Unit, r.FarmerPrice, r.FarmLocation, r.HarvestDate, r.FarmingMethod,
		r.CreatedAt,
	)
	if err != nil {
		return mapInsertErr(err, "farmer")
	}
	return nil
}

func (s *PostgresRecordStore) FarmerRecordByProduct(ctx context.Context, productID domain.ProductID) (*FarmerRecord, error) {
	query := `
		SELECT product_id, farmer_id, quantity, unit, farmer_price, farm_location, harvest_date, farming_method, created_at
		FROM farmer_records WHERE product_id = $1
	`
	r, err := scanFarmerRecord(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID)))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PostgresRecordStore) ListFarmerRecordsByFarmer(ctx context.Context, farmerID domain.ParticipantID) ([]FarmerRecord, error) {
	query := `
		SELECT product_id, farmer_id, quantity, unit, farmer_price, farm_location, harvest_date, farming_method, created_at
		FROM farmer_records WHERE farmer_id = $1 ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(farmerID))
	if err != nil {
		return nil, fmt.Errorf("query farmer records: %w", err)
	}
	defer rows.Close()

	var records []FarmerRecord
	for rows.Next() {
		r, err := scanFarmerRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFarmerRecord(row rowScanner) (*FarmerRecord, error) {
	var (
		r        FarmerRecord
		pid, fid uuid.UUID
	)
	err := row.Scan(&pid, &fid, &r.Quantity, &r.Unit, &r.FarmerPrice, &r.FarmLocation, &r.HarvestDate, &r.FarmingMethod, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan farmer record: %w", err)
	}
	r.ProductID = domain.ProductID(pid)
	r.FarmerID = domain.ParticipantID(fid)
	return &r, nil
}

func (s *PostgresRecordStore) CreateDistributorRecord(ctx context.Context, r *DistributorRecord) error {
	query := `
		INSERT INTO distributor_records (product_id, distributor_id, distributor_name, storage_location, distributor_margin, transport_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ProductID), uuid.UUID(r.DistributorID),
		r.DistributorName, r.StorageLocation, r.DistributorMargin, r.TransportDate,
		r.CreatedAt,
	)
	if err != nil {
		return mapInsertErr(err, "distributor")
	}
	return nil
}

func (s *PostgresRecordStore) DistributorRecordByProduct(ctx context.Context, productID domain.ProductID) (*DistributorRecord, error) {
	query := `
		SELECT product_id, distributor_id, distributor_name, storage_location, distributor_margin, transport_date, created_at
		FROM distributor_records WHERE product_id = $1
	`
	return scanDistributorRecord(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID)))
}

func (s *PostgresRecordStore) ListDistributorRecordsByDistributor(ctx context.Context, distributorID domain.ParticipantID) ([]DistributorRecord, error) {
	query := `
		SELECT product_id, distributor_id, distributor_name, storage_location, distributor_margin, transport_date, created_at
		FROM distributor_records WHERE distributor_id = $1 ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(distributorID))
	if err != nil {
		return nil, fmt.Errorf("query distributor records: %w", err)
	}
	defer rows.Close()

	var records []DistributorRecord
	for rows.Next() {
		r, err := scanDistributorRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func scanDistributorRecord(row rowScanner) (*DistributorRecord, error) {
	var (
		r        DistributorRecord
		pid, did uuid.UUID
	)
	err := row.Scan(&pid, &did, &r.DistributorName, &r.StorageLocation, &r.DistributorMargin, &r.TransportDate, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan distributor record: %w", err)
	}
	r.ProductID = domain.ProductID(pid)
	r.DistributorID = domain.ParticipantID(did)
	return &r, nil
}

func (s *PostgresRecordStore) CreateRetailerRecord(ctx context.Context, r *RetailerRecord) error {
	query := `
		INSERT INTO retailer_records (product_id, retailer_id, shop_name, final_price, retail_location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ProductID), uuid.UUID(r.RetailerID),
		r.ShopName, r.FinalPrice, r.RetailLocation,
		r.CreatedAt,
	)
	if err != nil {
		return mapInsertErr(err, "retailer")
	}
	return nil
}

func (s *PostgresRecordStore) RetailerRecordByProduct(ctx context.Context, productID domain.ProductID) (*RetailerRecord, error) {
	query := `
		SELECT product_id, retailer_id, shop_name, final_price, retail_location, created_at
		FROM retailer_records WHERE product_id = $1
	`
	return scanRetailerRecord(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID)))
}

func (s *PostgresRecordStore) ListRetailerRecordsByRetailer(ctx context.Context, retailerID domain.ParticipantID) ([]RetailerRecord, error) {
	query := `
		SELECT product_id, retailer_id, shop_name, final_price, retail_location, created_at
		FROM retailer_records WHERE retailer_id = $1 ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(retailerID))
	if err != nil {
		return nil, fmt.Errorf("query retailer records: %w", err)
	}
	defer rows.Close()

	var records []RetailerRecord
	for rows.Next() {
		r, err := scanRetailerRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func scanRetailerRecord(row rowScanner) (*RetailerRecord, error) {
	var (
		r        RetailerRecord
		pid, rid uuid.UUID
	)
	err := row.Scan(&pid, &rid, &r.ShopName, &r.FinalPrice, &r.RetailLocation, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan retailer record: %w", err)
	}
	r.ProductID = domain.ProductID(pid)
	r.RetailerID = domain.ParticipantID(rid)
	return &r, nil
}

func (s *PostgresRecordStore) CreateCustomerRecord(ctx context.Context, r *CustomerRecord) error {
	query := `
		INSERT INTO customer_records (product_id, customer_id, purchase_location, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ProductID), uuid.UUID(r.CustomerID),
		r.PurchaseLocation, r.Note,
		r.CreatedAt,
	)
	if err != nil {
		return mapInsertErr(err, "customer")
	}
	return nil
}

func (s *PostgresRecordStore) CustomerRecordByProduct(ctx context.Context, productID domain.ProductID) (*CustomerRecord, error) {
	query := `
		SELECT product_id, customer_id, purchase_location, note, created_at
		FROM customer_records WHERE product_id = $1
	`
	var (
		r        CustomerRecord
		pid, cid uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(productID)).Scan(&pid, &cid, &r.PurchaseLocation, &r.Note, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer record: %w", err)
	}
	r.ProductID = domain.ProductID(pid)
	r.CustomerID = domain.ParticipantID(cid)
	return &r, nil
}
