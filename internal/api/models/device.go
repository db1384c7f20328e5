package models

// RegisterRequest is the body of POST /v1/register.
type RegisterRequest struct {
	DeviceID  string `json:"deviceId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	PushToken string `json:"pushToken"`
}

// FeedRequest is the body of POST /v1/feed. The unfiltered list is only
// served on the admin API, so the device ID is required here.
type FeedRequest struct {
	DeviceID *string `json:"deviceId"`
}

// Validate validates the feed request.
func (r *FeedRequest) Validate() []FieldError {
	if r.DeviceID == nil || *r.DeviceID == "" {
		return []FieldError{{Field: "deviceId", Message: "is required", Code: "REQUIRED"}}
	}
	return nil
}

// ReportRequest is the body of POST /v1/report.
type ReportRequest struct {
	DeviceID  string     `json:"deviceId"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

// Validate validates the report request.
func (r *ReportRequest) Validate() []FieldError {
	if r.DeviceID == "" {
		return []FieldError{{Field: "deviceId", Message: "is required", Code: "REQUIRED"}}
	}
	return nil
}

// Device is the admin view of a registered device.
type Device struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Tier        string    `json:"tier"`
	LastMessage string    `json:"lastMessage"`
	Screenshots int       `json:"screenshots"`
	TokenLast4  *string   `json:"tokenLast4,omitempty"`
	Notifiable  bool      `json:"notifiable"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

// DeviceList is the response of GET /v1/admin/devices.
type DeviceList struct {
	Items []Device `json:"items"`
}

// SetTierRequest is the body of PUT /v1/admin/devices/{deviceId}/tier.
type SetTierRequest struct {
	Tier   string `json:"tier"`
	Reason string `json:"reason"`
}

// MessageRequest is the body of POST /v1/admin/devices/{deviceId}/message.
type MessageRequest struct {
	Message string `json:"message"`
}
