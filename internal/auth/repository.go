package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrAdminNotFound is returned when no admin has the given username.
var ErrAdminNotFound = errors.New("admin not found")

// AdminRepository stores admin accounts.
type AdminRepository interface {
	// FindByUsername finds an admin by username.
	FindByUsername(ctx context.Context, username string) (*Admin, error)

	// Upsert creates the admin or replaces its name, email and password hash.
	Upsert(ctx context.Context, admin *Admin) error
}

// InMemoryAdminRepository is an in-memory implementation of AdminRepository.
type InMemoryAdminRepository struct {
	mu     sync.RWMutex
	admins map[string]*Admin
}

// NewInMemoryAdminRepository creates a new in-memory admin repository.
func NewInMemoryAdminRepository() *InMemoryAdminRepository {
	return &InMemoryAdminRepository{admins: make(map[string]*Admin)}
}

// FindByUsername finds an admin by username.
func (r *InMemoryAdminRepository) FindByUsername(_ context.Context, username string) (*Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	admin, ok := r.admins[username]
	if !ok {
		return nil, ErrAdminNotFound
	}

	adminCopy := *admin
	return &adminCopy, nil
}

// Upsert creates or replaces an admin.
func (r *InMemoryAdminRepository) Upsert(_ context.Context, admin *Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	adminCopy := *admin
	if existing, ok := r.admins[admin.Username]; ok {
		adminCopy.CreatedAt = existing.CreatedAt
	}
	r.admins[admin.Username] = &adminCopy
	return nil
}

// Ensure InMemoryAdminRepository implements AdminRepository interface.
var _ AdminRepository = (*InMemoryAdminRepository)(nil)
