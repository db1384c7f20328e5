package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/api/response"
	"github.com/simplereader/simplereader/internal/auth"
)

// AuthHandler handles admin authentication.
type AuthHandler struct {
	authService *auth.Service
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /v1/admin/login - exchange admin credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !response.Decode(w, r, &req, false) {
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	tokenResp, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Info().Str("username", req.Username).Msg("admin login rejected")
			response.Unauthorized(w, r, "invalid username or password")
			return
		}

		h.logger.Error().Err(err).Msg("admin login failed")
		response.InternalError(w, r, "login failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

