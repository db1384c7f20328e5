package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong
// password; callers cannot tell which.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHash is compared against when the username is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("simplereader"), bcrypt.DefaultCost)

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
	Admins     AdminRepository
	Logger     zerolog.Logger
}

// Service provides admin authentication.
type Service struct {
	jwtService *JWTService
	admins     AdminRepository
	logger     zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwtService: cfg.JWTService,
		admins:     cfg.Admins,
		logger:     cfg.Logger,
	}
}

// Login checks the admin's password and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.logger.Info().Str("username", username).Msg("login for unknown admin")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)); err != nil {
		s.logger.Info().Str("username", username).Msg("login with wrong password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(admin.Username)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		Admin:       admin,
	}, nil
}

// ValidateAccessToken validates a JWT and returns the admin's username.
func (s *Service) ValidateAccessToken(tokenString string) (string, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// EnsureAdmin creates the admin or resets its password. It is used to seed
// the initial account from configuration.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("admin username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	err = s.admins.Upsert(ctx, &Admin{
		Username:     username,
		Name:         username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("storing admin: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("admin account ensured")
	return nil
}
