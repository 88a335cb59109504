package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
	"krishichain/pkg/platform/sentinel"
	"krishichain/pkg/requestcontext"
)

// Store persists participants. Username and email are unique; Create returns
// sentinel.ErrDuplicate when either is taken.
type Store interface {
	Create(ctx context.Context, p *Participant) error
	FindByID(ctx context.Context, id domain.ParticipantID) (*Participant, error)
	FindByUsername(ctx context.Context, username string) (*Participant, error)
}

// Service registers and authenticates participants. It keeps password
// handling out of handlers and stores.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register validates input, hashes the password and persists the participant.
// Errors: CodeValidation on missing fields, CodeInvalidInput on an unknown
// role, CodeConflict when the username or email is taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Participant, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" || in.FullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username, email, password and full_name are required")
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	p := &Participant{
		ID:           domain.NewParticipantID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     in.FullName,
		Phone:        in.Phone,
		Address:      in.Address,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "participant already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create participant")
	}
	return p, nil
}

// Authenticate resolves a username/password pair to a participant.
// Errors: CodeUnauthorized for unknown usernames and wrong passwords alike,
// so callers cannot probe which usernames exist.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Participant, error) {
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	p, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find participant")
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return p, nil
}

// FindByID resolves a participant by id.
// Errors: CodeNotFound when the id is unknown.
func (s *Service) FindByID(ctx context.Context, id domain.ParticipantID) (*Participant, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "participant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find participant")
	}
	return p, nil
}
