// Package device provides the device registry: registration, trust tiers,
// usage reports and the last message shown to each device.
package device

import (
	"errors"
	"time"

	"github.com/simplereader/simplereader/internal/tier"
)

// Repository errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
)

// PushTokenLength is the length of a valid APNs device token (hex encoded).
const PushTokenLength = 64

// Device represents a registered client device.
type Device struct {
	ID          string
	Name        string
	Email       string
	PushToken   string
	Tier        tier.Tier
	LastMessage string
	Screenshots int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Notifiable reports whether the device has a token push can be addressed to.
// Tokens are not validated beyond their length.
func (d *Device) Notifiable() bool {
	return len(d.PushToken) == PushTokenLength
}

// TokenLast4 returns the last 4 characters of the token for display purposes.
func (d *Device) TokenLast4() string {
	if len(d.PushToken) < 4 {
		return d.PushToken
	}
	return d.PushToken[len(d.PushToken)-4:]
}

// RegisterInput holds the client-supplied registration fields.
type RegisterInput struct {
	ID        string
	Name      string
	Email     string
	PushToken string
}
