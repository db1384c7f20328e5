package publication

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const publicationColumns = `id, title, short_description, preview_url, pdf_url, release_date, file_size, category`

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL publication repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a publication by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE id = $1`

	return scanPublication(r.pool.QueryRow(ctx, query, id))
}

// List retrieves all publications, most recent release first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications ORDER BY release_date DESC, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Create stores a new publication.
func (r *PostgresRepository) Create(ctx context.Context, p *Publication) error {
	query := `
		INSERT INTO publications (` + publicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.ShortDescription,
		p.PreviewURL,
		p.PDFURL,
		p.ReleaseDate,
		p.FileSize,
		p.Category,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrPublicationExists
		}
		return err
	}
	return nil
}

// Update updates an existing publication.
func (r *PostgresRepository) Update(ctx context.Context, p *Publication) error {
	query := `
		UPDATE publications SET
			title = $2,
			short_description = $3,
			preview_url = $4,
			pdf_url = $5,
			release_date = $6,
			file_size = $7,
			category = $8
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Title,
		p.ShortDescription,
		p.PreviewURL,
		p.PDFURL,
		p.ReleaseDate,
		p.FileSize,
		p.Category,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrPublicationNotFound
	}
	return nil
}

// Delete deletes a publication.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM publications WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrPublicationNotFound
	}
	return nil
}

func scanPublication(row pgx.Row) (*Publication, error) {
	var p Publication

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.ShortDescription,
		&p.PreviewURL,
		&p.PDFURL,
		&p.ReleaseDate,
		&p.FileSize,
		&p.Category,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPublicationNotFound
		}
		return nil, err
	}

	return &p, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
