// Package featureflags provides runtime switches that operators can flip
// without a redeploy.
package featureflags

import (
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisablePushSending stops every push transmission. Payloads are
	// still crafted so the recipient partition can be reported.
	FlagDisablePushSending = "disable_push_sending"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	case string:
		return v == "true" || v == "1"
	default:
		return defaultValue
	}
}

// DefaultFlags returns the default feature flags for the application.
func DefaultFlags() map[string]*Flag {
	return map[string]*Flag{
		FlagDisablePushSending: {
			Key:       FlagDisablePushSending,
			Value:     false,
			UpdatedAt: time.Now(),
		},
	}
}
