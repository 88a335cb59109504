// Package identity holds registered participants and their single, immutable
// role. From the custody engine's perspective this package is a collaborator:
// the engine only ever asks who the caller is and whether their role matches.
package identity

import (
	"time"

	"krishichain/pkg/domain"
)

// Participant is a registered actor with exactly one role.
type Participant struct {
	ID           domain.ParticipantID
	Username     string
	Email        string
	PasswordHash string
	Role         domain.Role
	FullName     string
	Phone        string
	Address      string
	CreatedAt    time.Time
}

// RegisterInput carries the fields required to register a participant.
// Phone and Address are optional.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
	FullName string
	Phone    string
	Address  string
}
