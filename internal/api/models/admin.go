package models

// Notice is an advisory message shown to the admin after an action.
type Notice struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// DispatchSummary lists the device names a broadcast reached and skipped.
type DispatchSummary struct {
	Sent    []string `json:"sent"`
	Skipped []string `json:"skipped"`
}

// ActionResponse is returned by every admin action.
type ActionResponse struct {
	Device      *Device          `json:"device,omitempty"`
	Publication *Publication     `json:"publication,omitempty"`
	Delivered   *bool            `json:"delivered,omitempty"`
	Dispatch    *DispatchSummary `json:"dispatch,omitempty"`
	Notices     []Notice         `json:"notices"`
}
