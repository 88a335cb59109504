package httptransport

import (
	"net/http"

	"krishichain/internal/identity"
	dErrors "krishichain/pkg/domain-errors"
	"krishichain/pkg/requestcontext"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type participantResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.identity.Register(r.Context(), identity.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "registration rejected",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "participant registered successfully",
		"participant": toParticipantResponse(p),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.identity.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(p.ID, p.Username, p.Role)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue access token",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "failed to issue token"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "login successful",
		"access_token": token,
		"participant":  toParticipantResponse(p),
	})
}

// handleLogout is stateless: tokens simply expire. The endpoint exists so
// clients have an explicit end-of-session call.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

func toParticipantResponse(p *identity.Participant) participantResponse {
	return participantResponse{
		ID:       p.ID.String(),
		Username: p.Username,
		Email:    p.Email,
		Role:     p.Role.String(),
		FullName: p.FullName,
	}
}
