// Package events publishes audit events for admin-visible state changes.
// Events are informational: a failed publish never undoes the change.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind names an event type.
type Kind string

// Event kinds.
const (
	KindTierChanged          Kind = "device.tier_changed"
	KindDeviceDeleted        Kind = "device.deleted"
	KindPublicationPublished Kind = "publication.published"
	KindPublicationUpdated   Kind = "publication.updated"
	KindPublicationDeleted   Kind = "publication.deleted"
	KindBroadcastSent        Kind = "broadcast.sent"
)

// Event is one audit record.
type Event struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	OccurredAt    time.Time `json:"occurredAt"`
	Actor         string    `json:"actor,omitempty"`
	DeviceID      string    `json:"deviceId,omitempty"`
	PublicationID string    `json:"publicationId,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Sent          int       `json:"sent,omitempty"`
	Skipped       int       `json:"skipped,omitempty"`
}

// New creates an event of the given kind with a fresh ID and timestamp.
func New(kind Kind) Event {
	return Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the log. It is used when no topic is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that only logs.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs e.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event_id", e.ID).
		Str("kind", string(e.Kind)).
		Str("device_id", e.DeviceID).
		Str("publication_id", e.PublicationID).
		Msg("audit event")
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records e.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events in publish order.
func (r *Recorder) Kinds() []Kind {
	events := r.Events()
	kinds := make([]Kind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*Recorder)(nil)
	_ Publisher = (*PubSubPublisher)(nil)
)
