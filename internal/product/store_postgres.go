package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
	txcontext "krishichain/pkg/platform/tx"
)

// PostgresStore persists products. Writes honor a transaction carried in
// context so the engine can commit product, stage record and ledger entry
// together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, qr_code, name, category, current_stage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.QRCode,
		p.Name,
		p.Category,
		string(p.CurrentStage),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ProductID) (*Product, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(id))
}

func (s *PostgresStore) FindByQRCode(ctx context.Context, qrCode string) (*Product, error) {
	return s.findOne(ctx, `WHERE qr_code = $1`, qrCode)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Product, error) {
	query := `
		SELECT id, qr_code, name, category, current_stage, created_at, updated_at
		FROM products ` + where

	var (
		p     Product
		id    uuid.UUID
		stage string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, arg).Scan(
		&id, &p.QRCode, &p.Name, &p.Category, &stage, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	p.ID = domain.ProductID(id)
	p.CurrentStage = domain.Stage(stage)
	return &p, nil
}

// AdvanceStage moves a product forward with compare-and-swap semantics: the
// UPDATE is guarded on the expected current stage, and zero affected rows
// means another writer got there first (or the product vanished).
func (s *PostgresStore) AdvanceStage(ctx context.Context, id domain.ProductID, from, to domain.Stage, now time.Time) error {
	query := `
		UPDATE products
		SET current_stage = $1, updated_at = $2
		WHERE id = $3 AND current_stage = $4
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, string(to), now, uuid.UUID(id), string(from))
	if err != nil {
		return fmt.Errorf("advance product stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance product stage: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, id); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStaleStage
	}
	return nil
}
