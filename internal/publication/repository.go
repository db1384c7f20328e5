package publication

import "context"

// Repository defines the interface for publication persistence.
type Repository interface {
	// Get retrieves a publication by ID.
	Get(ctx context.Context, id string) (*Publication, error)

	// List retrieves all publications, most recent release first.
	List(ctx context.Context) ([]*Publication, error)

	// Create stores a new publication. Returns ErrPublicationExists if the ID is taken.
	Create(ctx context.Context, p *Publication) error

	// Update updates an existing publication.
	Update(ctx context.Context, p *Publication) error

	// Delete deletes a publication.
	Delete(ctx context.Context, id string) error
}
