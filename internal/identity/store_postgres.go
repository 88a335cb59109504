package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"krishichain/pkg/domain"
	"krishichain/pkg/platform/sentinel"
)

// PostgresStore persists participants in the participants table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, p *Participant) error {
	query := `
		INSERT INTO participants (id, username, email, password_hash, role, full_name, phone, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID),
		p.Username,
		p.Email,
		p.PasswordHash,
		string(p.Role),
		p.FullName,
		p.Phone,
		p.Address,
		p.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ParticipantID) (*Participant, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(id))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*Participant, error) {
	return s.findOne(ctx, `WHERE lower(username) = lower($1)`, username)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Participant, error) {
	query := `
		SELECT id, username, email, password_hash, role, full_name, phone, address, created_at
		FROM participants ` + where

	var (
		p   Participant
		id  uuid.UUID
		rol string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&id, &p.Username, &p.Email, &p.PasswordHash, &rol,
		&p.FullName, &p.Phone, &p.Address, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query participant: %w", err)
	}
	p.ID = domain.ParticipantID(id)
	p.Role = domain.Role(rol)
	return &p, nil
}
