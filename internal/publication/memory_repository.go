package publication

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for testing.
type InMemoryRepository struct {
	mu           sync.RWMutex
	publications map[string]*Publication
}

// NewInMemoryRepository creates a new in-memory publication repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		publications: make(map[string]*Publication),
	}
}

// Get retrieves a publication by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.publications[id]
	if !ok {
		return nil, ErrPublicationNotFound
	}
	return copyPublication(p), nil
}

// List retrieves all publications, most recent release first.
func (r *InMemoryRepository) List(_ context.Context) ([]*Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Publication, 0, len(r.publications))
	for _, p := range r.publications {
		items = append(items, copyPublication(p))
	}
	SortByRelease(items)
	return items, nil
}

// Create stores a new publication.
func (r *InMemoryRepository) Create(_ context.Context, p *Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.publications[p.ID]; ok {
		return ErrPublicationExists
	}
	r.publications[p.ID] = copyPublication(p)
	return nil
}

// Update updates an existing publication.
func (r *InMemoryRepository) Update(_ context.Context, p *Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.publications[p.ID]; !ok {
		return ErrPublicationNotFound
	}
	r.publications[p.ID] = copyPublication(p)
	return nil
}

// Delete deletes a publication.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.publications[id]; !ok {
		return ErrPublicationNotFound
	}
	delete(r.publications, id)
	return nil
}

// SortByRelease orders publications by release date, newest first.
// Ties are broken by ID so the order is stable.
func SortByRelease(items []*Publication) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ReleaseDate.Equal(items[j].ReleaseDate) {
			return items[i].ID < items[j].ID
		}
		return items[i].ReleaseDate.After(items[j].ReleaseDate)
	})
}

func copyPublication(p *Publication) *Publication {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
