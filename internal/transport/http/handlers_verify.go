package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	qrCode := chi.URLParam(r, "qrCode")

	report, err := h.verifier.Verify(r.Context(), qrCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
