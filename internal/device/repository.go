package device

import (
	"context"
	"time"
)

// MutateFunc changes a device inside a single-record transaction.
// Returning an error aborts the update.
type MutateFunc func(d *Device) error

// Repository defines the interface for device persistence.
type Repository interface {
	// Get retrieves a device by ID.
	Get(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]*Device, error)

	// Register creates a device in tier new, or updates the contact fields
	// and push token of an existing one. Returns true if it was created.
	Register(ctx context.Context, input RegisterInput, now time.Time) (*Device, bool, error)

	// Update reads, mutates and writes back one device atomically.
	Update(ctx context.Context, id string, mutate MutateFunc) (*Device, error)

	// RecordScreenshot appends a screenshot report, increments the usage
	// counter and applies mutate, all in one transaction.
	RecordScreenshot(ctx context.Context, id string, takenAt time.Time, mutate MutateFunc) (*Device, error)

	// Delete deletes a device.
	Delete(ctx context.Context, id string) error
}
