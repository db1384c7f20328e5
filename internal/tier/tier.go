// Package tier implements the device trust-tier policy: which tier a device
// moves to on an admin decision or a usage report, and which tiers may see
// gated publication content.
package tier

import (
	"errors"
	"fmt"
)

// ErrInvalidTarget is returned when an admin tries to set a tier that cannot
// be assigned manually.
var ErrInvalidTarget = errors.New("invalid target tier")

// Tier is a device's trust level.
type Tier string

const (
	New    Tier = "new"
	Yellow Tier = "yellow"
	Green  Tier = "green"
	Red    Tier = "red"
)

// Unknown is not a tier; it is the status reported for unregistered devices.
const Unknown = "unknown"

// ReportDowngradeMessage is recorded as the device's last message when a
// usage report moves it to a stricter tier.
const ReportDowngradeMessage = "Ein Screenshot wurde gemeldet. Dein Gerät wurde herabgestuft."

// Assignable reports whether an admin may set a device to t.
func (t Tier) Assignable() bool {
	return t == Green || t == Yellow || t == Red
}

// Event is something that may move a device between tiers.
type Event interface {
	event()
}

// AdminSet is a manual override carrying the admin's reason, which becomes
// the device's last message.
type AdminSet struct {
	Target Tier
	Reason string
}

// Report is a usage (screenshot) report from the device itself.
type Report struct{}

func (AdminSet) event() {}
func (Report) event()   {}

// Policy holds the configuration the tier rules depend on.
type Policy struct {
	// AllowNewDevices lets unapproved devices see gated content and lets a
	// report escalate them to yellow.
	AllowNewDevices bool
}

// NewPolicy creates a Policy.
func NewPolicy(allowNewDevices bool) Policy {
	return Policy{AllowNewDevices: allowNewDevices}
}

// Next computes the tier that follows current after ev, together with the
// message to show the device. An empty message means the last message must
// be left as it is.
func (p Policy) Next(current Tier, ev Event) (Tier, string, error) {
	switch e := ev.(type) {
	case AdminSet:
		if !e.Target.Assignable() {
			return current, "", fmt.Errorf("%w: %q", ErrInvalidTarget, e.Target)
		}
		return e.Target, e.Reason, nil
	case Report:
		next := p.afterReport(current)
		if next == current {
			return current, "", nil
		}
		return next, ReportDowngradeMessage, nil
	default:
		return current, "", fmt.Errorf("unsupported tier event %T", ev)
	}
}

func (p Policy) afterReport(current Tier) Tier {
	switch current {
	case Green:
		return Yellow
	case Yellow:
		return Red
	case New:
		if p.AllowNewDevices {
			return Yellow
		}
	}
	return current
}

// Admits reports whether a device in tier t may see gated content.
func (p Policy) Admits(t Tier) bool {
	switch t {
	case Green, Yellow:
		return true
	case New:
		return p.AllowNewDevices
	}
	return false
}
