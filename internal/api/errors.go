package api

import (
	"encoding/json"
	"net/http"

	"github.com/theLastOfCats/storefront/internal/logger"
)

// Machine-readable error codes carried next to the human message.
const (
	CodeSessionExpired  = "session_expired"
	CodeInvalidInput    = "invalid_input"
	CodeInvalidPassword = "invalid_password"
	CodeInvalidLogin    = "invalid_credentials"
	CodeEmailTaken      = "email_taken"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// JSONError writes a JSON error response
func JSONError(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Message: message, Code: code})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger.Error().Err(err).Msg("Error encoding response")
	}
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	JSONError(w, "Internal server error", CodeInternal, http.StatusInternalServerError)
}
