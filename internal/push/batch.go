package push

import (
	"time"

	"github.com/simplereader/simplereader/internal/device"
)

// Delivery priorities, as understood by APNs.
const (
	PriorityLow  = 5
	PriorityHigh = 10
)

// Entry is one addressed notification.
type Entry struct {
	DeviceID   string
	Token      string
	Payload    *Payload
	Priority   int
	Expiration time.Time
}

// Target pairs a device with its crafted payload.
type Target struct {
	Device  *device.Device
	Payload *Payload
}

// BatchOptions controls the delivery attributes stamped on every entry.
type BatchOptions struct {
	Priority int
	// TTL is how long the provider may hold an undeliverable notification.
	// Zero means the provider's default.
	TTL time.Duration
	Now time.Time
}

// Batch is an immutable set of entries sent in one transmission.
type Batch struct {
	entries []Entry
}

// BuildBatch turns crafted targets into a batch. It has no side effects.
func BuildBatch(targets []Target, opts BatchOptions) Batch {
	priority := opts.Priority
	if priority == 0 {
		priority = PriorityHigh
	}

	var expiration time.Time
	if opts.TTL > 0 {
		expiration = opts.Now.Add(opts.TTL)
	}

	entries := make([]Entry, 0, len(targets))
	for _, t := range targets {
		entries = append(entries, Entry{
			DeviceID:   t.Device.ID,
			Token:      t.Device.PushToken,
			Payload:    t.Payload,
			Priority:   priority,
			Expiration: expiration,
		})
	}

	return Batch{entries: entries}
}

// Len returns the number of entries.
func (b Batch) Len() int {
	return len(b.entries)
}

// Entries returns a copy of the entries.
func (b Batch) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}
