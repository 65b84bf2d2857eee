package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain error kinds onto status codes. Internal failures are
// logged and surfaced generically so storage details never leak to clients.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case apperr.KindConflict:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		if logger != nil {
			logger.Error("internal error", "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
