package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/auth"
	"github.com/simplereader/simplereader/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r))
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	var errs []models.FieldError
	if len(req.Updates) == 0 {
		errs = append(errs, models.FieldError{Field: "updates", Message: "must not be empty", Code: "REQUIRED"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		errs = append(errs, models.FieldError{Field: "reason", Message: "is required", Code: "REQUIRED"})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	flags := make([]*featureflags.Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		writeAdminError(w, r, h.logger, err)
		return
	}

	for _, f := range flags {
		h.logger.Info().
			Str("flag", f.Key).
			Interface("value", f.Value).
			Str("reason", req.Reason).
			Str("admin", auth.AdminFromContext(r.Context())).
			Msg("feature flag updated")
	}

	response.JSON(w, r, http.StatusOK, h.list(r))
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}

func (h *FeatureFlagsHandler) list(r *http.Request) featureflags.FlagList {
	all := h.service.GetAllFlags(r.Context())

	list := featureflags.FlagList{Items: make([]featureflags.Flag, 0, len(all))}
	for _, f := range all {
		list.Items = append(list.Items, *f)
	}
	sort.Slice(list.Items, func(i, j int) bool { return list.Items[i].Key < list.Items[j].Key })
	return list
}
