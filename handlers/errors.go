package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/you/subway-path/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: code})
}

// writeError maps a domain error to its status code. Anything that is not
// a *models.Error is an internal failure.
func writeError(w http.ResponseWriter, err error, fallback string) {
	var domainErr *models.Error
	if !errors.As(err, &domainErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: fallback,
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Kind {
	case models.KindValidation:
		status = http.StatusBadRequest
	case models.KindNotFound:
		status = http.StatusNotFound
	case models.KindConflict:
		status = http.StatusConflict
	}
	writeJSON(w, status, ErrorResponse{Error: domainErr.Message, Code: domainErr.Code})
}
