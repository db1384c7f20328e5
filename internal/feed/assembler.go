package feed

import (
	"context"
	"fmt"

	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/tier"
)

// DeviceSource looks up devices. A nil device with a nil error means unknown.
type DeviceSource interface {
	Lookup(ctx context.Context, id string) (*device.Device, error)
}

// PublicationSource lists publications, newest release first.
type PublicationSource interface {
	List(ctx context.Context) ([]*publication.Publication, error)
}

// Assembler builds feed responses.
type Assembler struct {
	devices      DeviceSource
	publications PublicationSource
	policy       tier.Policy
}

// NewAssembler creates a new feed assembler.
func NewAssembler(devices DeviceSource, publications PublicationSource, policy tier.Policy) *Assembler {
	return &Assembler{
		devices:      devices,
		publications: publications,
		policy:       policy,
	}
}

// Assemble returns the feed for deviceID. A nil deviceID returns every
// publication; it is only reachable from the admin API.
func (a *Assembler) Assemble(ctx context.Context, deviceID *string) (*Response, error) {
	if deviceID == nil {
		pubs, err := a.listPublications(ctx)
		if err != nil {
			return nil, err
		}
		return &Response{SchemaVersion: SchemaVersion, Status: "all", Publications: pubs}, nil
	}

	d, err := a.devices.Lookup(ctx, *deviceID)
	if err != nil {
		return nil, fmt.Errorf("look up device: %w", err)
	}
	if d == nil {
		return &Response{Status: tier.Unknown}, nil
	}

	return a.ForDevice(ctx, d)
}

// ForDevice returns the feed for a device that is already loaded.
func (a *Assembler) ForDevice(ctx context.Context, d *device.Device) (*Response, error) {
	record := NewDeviceV1(d)
	resp := &Response{
		SchemaVersion: SchemaVersion,
		Status:        record.Status,
		Message:       &record.Message,
	}

	if !a.policy.Admits(d.Tier) {
		return resp, nil
	}

	pubs, err := a.listPublications(ctx)
	if err != nil {
		return nil, err
	}
	resp.Publications = pubs
	return resp, nil
}

func (a *Assembler) listPublications(ctx context.Context) ([]PublicationV1, error) {
	items, err := a.publications.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}

	// Repositories already sort; re-sorting a copy keeps the order a property of the feed.
	sorted := make([]*publication.Publication, len(items))
	copy(sorted, items)
	publication.SortByRelease(sorted)

	out := make([]PublicationV1, 0, len(sorted)) // non-nil: admitted devices always see the key
	for _, p := range sorted {
		out = append(out, NewPublicationV1(p))
	}
	return out, nil
}
