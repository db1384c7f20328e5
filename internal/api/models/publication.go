package models

// Publication is the admin view of a publication.
type Publication struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"shortDescription"`
	PreviewURL       string    `json:"previewUrl"`
	PDFURL           string    `json:"pdfUrl"`
	ReleaseDate      Timestamp `json:"releaseDate"`
	FileSize         string    `json:"filesize"`
	Category         string    `json:"category"`
}

// PublicationList is the response of GET /v1/admin/publications.
type PublicationList struct {
	Items []Publication `json:"items"`
}

// PublishRequest is the body of POST /v1/admin/publications. The assets are
// uploaded beforehand; only their URLs are sent.
type PublishRequest struct {
	Title            string     `json:"title"`
	ShortDescription string     `json:"shortDescription"`
	Category         string     `json:"category"`
	PreviewURL       string     `json:"previewUrl"`
	PDFURL           string     `json:"pdfUrl"`
	SizeBytes        int64      `json:"sizeBytes"`
	ReleaseDate      *Timestamp `json:"releaseDate,omitempty"`
	// Notify broadcasts the new publication to all devices.
	Notify bool `json:"notify"`
	// Message is the alert text; defaults to the title.
	Message string `json:"message,omitempty"`
}

// UpdatePublicationRequest is the body of PUT /v1/admin/publications/{publicationId}.
// Absent fields are left unchanged.
type UpdatePublicationRequest struct {
	Title            *string    `json:"title,omitempty"`
	ShortDescription *string    `json:"shortDescription,omitempty"`
	PreviewURL       *string    `json:"previewUrl,omitempty"`
	PDFURL           *string    `json:"pdfUrl,omitempty"`
	ReleaseDate      *Timestamp `json:"releaseDate,omitempty"`
	FileSize         *string    `json:"filesize,omitempty"`
	Category         *string    `json:"category,omitempty"`
}

// BroadcastRequest is the body of POST /v1/admin/broadcast.
type BroadcastRequest struct {
	Message       string  `json:"message"`
	PublicationID *string `json:"publicationId,omitempty"`
}
