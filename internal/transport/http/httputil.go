package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "krishichain/pkg/domain-errors"
)

// errorEnvelope is the JSON error shape every endpoint returns.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError centralizes domain error translation to HTTP responses.
// Keeping it here ensures consistent JSON error envelopes.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	message := err.Error()
	if code == dErrors.CodeInternal {
		// Internal details stay in logs, not responses.
		message = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:   string(code),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decode parses a JSON request body, mapping failures to a bad request error.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
