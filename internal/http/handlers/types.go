// Package handlers provides HTTP API handlers for vodarr.
package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/streaming"
)

// humaError maps streaming sentinel errors onto API status codes.
func humaError(err error) error {
	switch {
	case errors.Is(err, streaming.ErrNotFound),
		errors.Is(err, streaming.ErrNoMediaFile),
		errors.Is(err, streaming.ErrSessionNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, streaming.ErrInvalidResolution),
		errors.Is(err, streaming.ErrInvalidStrategy):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, streaming.ErrUnauthorized):
		return huma.Error401Unauthorized(err.Error())
	case errors.Is(err, streaming.ErrSourceFileMissing):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, streaming.ErrPlaylistNotReady):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError("internal error", err)
	}
}

// statusCode maps streaming sentinel errors onto status codes for raw
// (non-huma) media routes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, streaming.ErrNotFound),
		errors.Is(err, streaming.ErrNoMediaFile),
		errors.Is(err, streaming.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, streaming.ErrInvalidResolution),
		errors.Is(err, streaming.ErrInvalidStrategy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, streaming.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, streaming.ErrSourceFileMissing):
		return http.StatusConflict
	case errors.Is(err, streaming.ErrPlaylistNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a plain-text error for raw media routes.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusCode(err))
}
