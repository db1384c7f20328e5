package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/simplereader/simplereader/internal/tier"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu          sync.RWMutex
	devices     map[string]*Device
	screenshots map[string][]time.Time
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices:     make(map[string]*Device),
		screenshots: make(map[string][]time.Time),
	}
}

// Get retrieves a device by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	return copyDevice(device), nil
}

// List retrieves all devices ordered by name.
func (r *InMemoryRepository) List(_ context.Context) ([]*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Device, 0, len(r.devices))
	for _, device := range r.devices {
		items = append(items, copyDevice(device))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name == items[j].Name {
			return items[i].ID < items[j].ID
		}
		return items[i].Name < items[j].Name
	})

	return items, nil
}

// Register creates or updates a device.
func (r *InMemoryRepository) Register(_ context.Context, input RegisterInput, now time.Time) (*Device, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[input.ID]; ok {
		existing.Name = input.Name
		existing.Email = input.Email
		existing.PushToken = input.PushToken
		existing.UpdatedAt = now
		return copyDevice(existing), false, nil
	}

	device := &Device{
		ID:        input.ID,
		Name:      input.Name,
		Email:     input.Email,
		PushToken: input.PushToken,
		Tier:      tier.New,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.devices[input.ID] = device
	return copyDevice(device), true, nil
}

// Update applies mutate to a copy of the device and stores it on success.
func (r *InMemoryRepository) Update(_ context.Context, id string, mutate MutateFunc) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updateLocked(id, mutate)
}

// RecordScreenshot appends a screenshot report and applies mutate.
func (r *InMemoryRepository) RecordScreenshot(_ context.Context, id string, takenAt time.Time, mutate MutateFunc) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, err := r.updateLocked(id, func(d *Device) error {
		d.Screenshots++
		return mutate(d)
	})
	if err != nil {
		return nil, err
	}

	r.screenshots[id] = append(r.screenshots[id], takenAt)
	return device, nil
}

// Screenshots returns the recorded report timestamps for a device.
func (r *InMemoryRepository) Screenshots(id string) []time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]time.Time, len(r.screenshots[id]))
	copy(out, r.screenshots[id])
	return out
}

// Delete deletes a device and its screenshot reports.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return ErrDeviceNotFound
	}

	delete(r.devices, id)
	delete(r.screenshots, id)
	return nil
}

func (r *InMemoryRepository) updateLocked(id string, mutate MutateFunc) (*Device, error) {
	existing, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	working := copyDevice(existing)
	if err := mutate(working); err != nil {
		return nil, err
	}

	r.devices[id] = working
	return copyDevice(working), nil
}

// copyDevice creates a copy of a device.
func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}

	deviceCopy := *d
	return &deviceCopy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
