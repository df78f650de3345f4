package api

import (
	"encoding/json"
	"net/http"

	"plexgif/internal/logging"
	"plexgif/internal/services"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

// writeError answers with the status implied by err's marker. Server-side
// failures are logged; caller mistakes are not.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	hint := services.Hint(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "caller received an error response"),
		)
	}
	s.writeJSON(w, status, ErrorResponse{Error: logging.RedactText(err.Error()), Hint: hint})
}
