// Package feed assembles the tier-dependent view of content a device sees
// when it polls, and defines the versioned wire schema for it.
package feed

import (
	"encoding/json"
	"time"

	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/publication"
)

// SchemaVersion is the version of the records below. Any field change bumps it.
const SchemaVersion = 1

// PublicationV1 is the client-facing record of a publication.
type PublicationV1 struct {
	ID               string `json:"uid"`
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
	PreviewURL       string `json:"previewUrl"`
	PDFURL           string `json:"pdfUrl"`
	ReleaseDate      string `json:"releaseDate"`
	FileSize         string `json:"filesize"`
	Category         string `json:"category"`
}

// DeviceV1 is the client-facing record of a device's standing.
type DeviceV1 struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewPublicationV1 copies the allowed fields of p.
func NewPublicationV1(p *publication.Publication) PublicationV1 {
	return PublicationV1{
		ID:               p.ID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		PreviewURL:       p.PreviewURL,
		PDFURL:           p.PDFURL,
		ReleaseDate:      p.ReleaseDate.Format(time.RFC3339),
		FileSize:         p.FileSize,
		Category:         p.Category,
	}
}

// NewDeviceV1 copies the allowed fields of d.
func NewDeviceV1(d *device.Device) DeviceV1 {
	return DeviceV1{
		Status:  string(d.Tier),
		Message: d.LastMessage,
	}
}

// Response is the feed returned to a device. A nil Message or Publications
// means the field does not apply and is left out of the encoding; an
// admitted device with no publications still gets an empty list.
type Response struct {
	SchemaVersion int
	Status        string
	Message       *string
	Publications  []PublicationV1
}

// MarshalJSON writes the allow-listed fields that apply to r.
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]any{"status": r.Status}
	if r.SchemaVersion != 0 {
		out["schemaVersion"] = r.SchemaVersion
	}
	if r.Message != nil {
		out["message"] = *r.Message
	}
	if r.Publications != nil {
		out["publications"] = r.Publications
	}
	return json.Marshal(out)
}
