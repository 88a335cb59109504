package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"krishichain/pkg/domain"
	txcontext "krishichain/pkg/platform/tx"
)

// PostgresStore persists ledger entries in the ledger_entries table. The
// table is insert-only; there are no update or delete paths.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts the entry with the next per-product sequence number. The
// engine serializes writers per product, so the MAX(seq)+1 subquery cannot
// race against another append for the same product.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO ledger_entries (id, product_id, seq, stage, actor_id, action, details, created_at)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6, $7
		FROM ledger_entries
		WHERE product_id = $2
		RETURNING seq
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.ProductID),
		string(entry.Stage),
		uuid.UUID(entry.ActorID),
		entry.Action,
		[]byte(entry.Details),
		entry.Timestamp,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// ListByProduct returns the product's entries in sequence order.
func (s *PostgresStore) ListByProduct(ctx context.Context, productID domain.ProductID) ([]Entry, error) {
	query := `
		SELECT id, product_id, seq, stage, actor_id, action, details, created_at
		FROM ledger_entries
		WHERE product_id = $1
		ORDER BY seq ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(productID))
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			pid     uuid.UUID
			aid     uuid.UUID
			stage   string
			details []byte
		)
		if err := rows.Scan(&e.ID, &pid, &e.Seq, &stage, &aid, &e.Action, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.ProductID = domain.ProductID(pid)
		e.ActorID = domain.ParticipantID(aid)
		e.Stage = domain.Stage(stage)
		e.Details = details
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// CountByProduct returns the number of entries for a product.
func (s *PostgresStore) CountByProduct(ctx context.Context, productID domain.ProductID) (int64, error) {
	var count int64
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE product_id = $1`,
		uuid.UUID(productID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return count, nil
}
