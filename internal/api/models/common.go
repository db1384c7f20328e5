// Package models provides the request and response models of the SimpleReader
// HTTP API.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// ErrTimestampOutOfRange is returned for Unix timestamps that do not fit in an int64.
var ErrTimestampOutOfRange = errors.New("timestamp out of range")

// Timestamp is a time.Time encoded as RFC 3339. It also decodes Unix seconds,
// which older reader app builds send.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] != '"' {
		seconds, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		if math.IsNaN(seconds) || seconds < math.MinInt64 || seconds >= math.MaxInt64 {
			return ErrTimestampOutOfRange
		}
		whole := int64(seconds)
		*t = Timestamp(time.Unix(whole, int64((seconds-float64(whole))*1e9)).UTC())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
