package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAdminRepository is a PostgreSQL implementation of AdminRepository.
type PostgresAdminRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAdminRepository creates a new PostgreSQL admin repository.
func NewPostgresAdminRepository(pool *pgxpool.Pool) *PostgresAdminRepository {
	return &PostgresAdminRepository{pool: pool}
}

// FindByUsername finds an admin by username.
func (r *PostgresAdminRepository) FindByUsername(ctx context.Context, username string) (*Admin, error) {
	query := `
		SELECT username, name, email, password_hash, created_at
		FROM admins
		WHERE username = $1
	`

	var admin Admin
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&admin.Username,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}

	return &admin, nil
}

// Upsert creates or replaces an admin.
func (r *PostgresAdminRepository) Upsert(ctx context.Context, admin *Admin) error {
	query := `
		INSERT INTO admins (username, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash
	`

	_, err := r.pool.Exec(ctx, query,
		admin.Username,
		admin.Name,
		admin.Email,
		admin.PasswordHash,
		admin.CreatedAt,
	)
	return err
}

// Ensure PostgresAdminRepository implements AdminRepository interface.
var _ AdminRepository = (*PostgresAdminRepository)(nil)
