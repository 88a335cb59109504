// Package domain holds the primitive types of the provenance model: typed
// identifiers, participant roles and the supply-chain stage state machine.
// Construct values via the Parse functions at trust boundaries; direct casting
// bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "krishichain/pkg/domain-errors"
)

// ParticipantID identifies a registered participant.
type ParticipantID uuid.UUID

// ProductID identifies a tracked product.
type ProductID uuid.UUID

func (id ParticipantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ParticipantID) String() string { return uuid.UUID(id).String() }

func (id ProductID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) String() string { return uuid.UUID(id).String() }

// NewParticipantID returns a fresh random participant identifier.
func NewParticipantID() ParticipantID { return ParticipantID(uuid.New()) }

// NewProductID returns a fresh random product identifier.
func NewProductID() ProductID { return ProductID(uuid.New()) }

// ParseParticipantID constructs a ParticipantID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed or nil.
func ParseParticipantID(s string) (ParticipantID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ParticipantID{}, err
	}
	return ParticipantID(u), nil
}

// ParseProductID constructs a ProductID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed or nil.
func ParseProductID(s string) (ProductID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ProductID{}, err
	}
	return ProductID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return u, nil
}
