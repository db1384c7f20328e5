// Package push crafts per-device notification payloads and dispatches them
// to the push provider, singly or as one batch.
package push

import (
	"github.com/sideshow/apns2/payload"

	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/tier"
)

// DefaultSound is the alert sound for every notification.
const DefaultSound = "default"

// Payload is the provider-neutral content of one notification.
type Payload struct {
	Alert   string
	Sound   string
	Status  tier.Tier
	Message string
	// Publication is set only when the device's tier admits gated content.
	Publication *feed.PublicationV1
}

// APNs renders the payload in the APNs wire format. Custom data sits next
// to the aps dictionary.
func (p *Payload) APNs() *payload.Payload {
	pl := payload.NewPayload().
		Alert(p.Alert).
		Sound(p.Sound).
		Custom("status", string(p.Status)).
		Custom("message", p.Message)

	if p.Publication != nil {
		pl.Custom("publication", p.Publication)
	}
	return pl
}

// Crafter builds payloads. It is the only place that decides whether a
// device can be notified and what it may see.
type Crafter struct {
	policy tier.Policy
}

// NewCrafter creates a payload crafter for the given tier policy.
func NewCrafter(policy tier.Policy) *Crafter {
	return &Crafter{policy: policy}
}

// Craft returns the payload for d, or nil when d has no valid push token.
func (c *Crafter) Craft(message string, d *device.Device, pub *publication.Publication) *Payload {
	if d == nil || !d.Notifiable() {
		return nil
	}

	p := &Payload{
		Alert:   message,
		Sound:   DefaultSound,
		Status:  d.Tier,
		Message: d.LastMessage,
	}

	if pub != nil && c.policy.Admits(d.Tier) {
		record := feed.NewPublicationV1(pub)
		p.Publication = &record
	}

	return p
}
