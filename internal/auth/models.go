// Package auth authenticates administrators: bcrypt password hashes checked
// at login, HS256 bearer tokens afterwards.
package auth

import (
	"strings"
	"time"

	"github.com/simplereader/simplereader/internal/api/models"
)

// Admin is an administrator account.
type Admin struct {
	Username     string    `json:"username"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LoginRequest represents the request body for an admin login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the login request.
func (r *LoginRequest) Validate() []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, models.FieldError{Field: "username", Message: "is required", Code: "REQUIRED"})
	}
	if r.Password == "" {
		errs = append(errs, models.FieldError{Field: "password", Message: "is required", Code: "REQUIRED"})
	}

	return errs
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`
	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64  `json:"expiresIn"`
	Admin     *Admin `json:"admin"`
}
