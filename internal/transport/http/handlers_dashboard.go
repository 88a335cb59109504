package httptransport

import "net/http"

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboards.ForCaller(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
