package testutil

import (
	"net/http"

	"krishichain/pkg/domain"
	"krishichain/pkg/requestcontext"
)

// WithParticipant attaches an authenticated participant to the request
// context, simulating what the auth middleware does after token validation.
func WithParticipant(req *http.Request, id domain.ParticipantID, username string, role domain.Role) *http.Request {
	ctx := requestcontext.WithParticipant(req.Context(), requestcontext.Participant{
		ID:       id,
		Username: username,
		Role:     role,
	})
	return req.WithContext(ctx)
}
