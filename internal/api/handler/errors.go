package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/featureflags"
	"github.com/simplereader/simplereader/internal/publication"
)

// writeAdminError maps an admin service error to a Problem response.
// Anything unrecognised is logged and reported as a 500.
func writeAdminError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var validationErr *admin.ValidationError

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "validation error", validationErr.Errors)
	case errors.Is(err, admin.ErrNotFound), errors.Is(err, publication.ErrPublicationNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, publication.ErrPublicationExists):
		response.Conflict(w, r, "a publication with this identifier already exists")
	case errors.Is(err, featureflags.ErrUnknownFlag):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("admin request failed")
		response.InternalError(w, r, "request failed")
	}
}
