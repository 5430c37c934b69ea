package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
)

// errorResponse is the wire shape of every failed request.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondError maps err to its status code and wire shape. Internal causes
// are logged here and never serialized to the client.
func respondError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	status := apperror.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}

	respondJSON(w, status, errorResponse{
		Code:    string(apperror.KindOf(err)),
		Message: apperror.MessageOf(err),
	})
}
