package device

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deviceColumns = `id, name, email, push_token, tier, last_message, screenshots, created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a device by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`

	return scanDevice(r.pool.QueryRow(ctx, query, id))
}

// List retrieves all devices ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return devices, nil
}

// Register creates a device in tier new or updates an existing one in place.
func (r *PostgresRepository) Register(ctx context.Context, input RegisterInput, now time.Time) (*Device, bool, error) {
	query := `
		INSERT INTO devices (id, name, email, push_token, tier, last_message, screenshots, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'new', '', 0, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			push_token = EXCLUDED.push_token,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + deviceColumns + `, (xmax = 0) AS inserted
	`

	var (
		device   Device
		inserted bool
	)
	err := r.pool.QueryRow(ctx, query,
		input.ID,
		input.Name,
		input.Email,
		input.PushToken,
		now,
	).Scan(
		&device.ID,
		&device.Name,
		&device.Email,
		&device.PushToken,
		&device.Tier,
		&device.LastMessage,
		&device.Screenshots,
		&device.CreatedAt,
		&device.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, err
	}

	return &device, inserted, nil
}

// Update locks the device row, applies mutate and writes the result back.
func (r *PostgresRepository) Update(ctx context.Context, id string, mutate MutateFunc) (*Device, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	device, err := r.mutateInTx(ctx, tx, id, mutate)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return device, nil
}

// RecordScreenshot appends a screenshot report and updates the device in the same transaction.
func (r *PostgresRepository) RecordScreenshot(ctx context.Context, id string, takenAt time.Time, mutate MutateFunc) (*Device, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback error is not critical

	device, err := r.mutateInTx(ctx, tx, id, func(d *Device) error {
		d.Screenshots++
		return mutate(d)
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO screenshots (device_id, taken_at) VALUES ($1, $2)`, id, takenAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return device, nil
}

// Delete deletes a device. Screenshot rows cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

func (r *PostgresRepository) mutateInTx(ctx context.Context, tx pgx.Tx, id string, mutate MutateFunc) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1 FOR UPDATE`

	device, err := scanDevice(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := mutate(device); err != nil {
		return nil, err
	}

	update := `
		UPDATE devices SET
			name = $2,
			email = $3,
			push_token = $4,
			tier = $5,
			last_message = $6,
			screenshots = $7,
			updated_at = $8
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		device.ID,
		device.Name,
		device.Email,
		device.PushToken,
		device.Tier,
		device.LastMessage,
		device.Screenshots,
		device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return device, nil
}

// scanDevice scans a single device row.
func scanDevice(row pgx.Row) (*Device, error) {
	var device Device

	err := row.Scan(
		&device.ID,
		&device.Name,
		&device.Email,
		&device.PushToken,
		&device.Tier,
		&device.LastMessage,
		&device.Screenshots,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return &device, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
