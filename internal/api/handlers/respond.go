package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/isdelr/feed-api/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the error envelope returned for every failed request.
type ErrorResponse struct {
	Message string              `json:"message"`
	Data    []models.FieldError `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError maps err to its status and envelope. Internal errors are logged
// in full and answered with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := models.AsAppError(err)
	status := appErr.StatusCode()

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	writeJSON(w, status, ErrorResponse{Message: appErr.Message, Data: appErr.Data})
}
