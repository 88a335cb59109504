package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"krishichain/internal/jwttoken"
	"krishichain/pkg/domain"
	"krishichain/pkg/requestcontext"
)

// TokenValidator validates bearer tokens and returns their claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated participant into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			participant, ok := participantFromHeader(r, validator)
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized request",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			ctx := requestcontext.WithParticipant(r.Context(), participant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the participant when a valid token is present and
// passes the request through anonymously otherwise. The verify endpoint uses
// this: anyone may verify, but authenticated customers get their lookup
// recorded.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if participant, ok := participantFromHeader(r, validator); ok {
				r = r.WithContext(requestcontext.WithParticipant(r.Context(), participant))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func participantFromHeader(r *http.Request, validator TokenValidator) (requestcontext.Participant, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok || token == "" {
		return requestcontext.Participant{}, false
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return requestcontext.Participant{}, false
	}
	id, err := domain.ParseParticipantID(claims.ParticipantID)
	if err != nil {
		return requestcontext.Participant{}, false
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.Participant{}, false
	}
	return requestcontext.Participant{ID: id, Username: claims.Username, Role: role}, true
}
