// Package publication manages the PDF publications distributed to devices.
package publication

import (
	"errors"
	"fmt"
	"time"
)

// Repository errors.
var (
	ErrPublicationNotFound = errors.New("publication not found")
	ErrPublicationExists   = errors.New("publication already exists")
)

// Publication is one released issue.
type Publication struct {
	ID               string
	Title            string
	ShortDescription string
	PreviewURL       string
	PDFURL           string
	ReleaseDate      time.Time
	FileSize         string
	Category         string
}

// CreateInput holds the admin-supplied fields for a new publication.
// Asset URLs point at files that were already uploaded.
type CreateInput struct {
	Title            string
	ShortDescription string
	Category         string
	PreviewURL       string
	PDFURL           string
	// SizeBytes is the PDF size; rendered as FileSize.
	SizeBytes int64
	// ReleaseDate defaults to now when zero.
	ReleaseDate time.Time
}

// UpdateInput holds the editable fields of a publication.
type UpdateInput struct {
	Title            *string
	ShortDescription *string
	PreviewURL       *string
	PDFURL           *string
	ReleaseDate      *time.Time
	FileSize         *string
	Category         *string
}

// FormatSize renders a byte count the way it is shown to readers ("22.6 MB").
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.1f MB", float64(bytes)/1000.0/1000.0)
}
