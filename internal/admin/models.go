// Package admin implements the administrator's actions. Every action persists
// its state change first and then notifies devices; notification problems
// are reported as notices and never undo the change.
package admin

import (
	"errors"
	"fmt"

	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/push"
	"github.com/simplereader/simplereader/internal/tier"
)

// ErrNotFound wraps the not-found errors of devices and publications.
var ErrNotFound = errors.New("not found")

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// NoticeLevel grades a notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is an advisory message for the admin.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// Outcome is the result of an admin action.
type Outcome struct {
	Device      *device.Device
	Publication *publication.Publication
	// Delivered is set by single-device actions.
	Delivered bool
	// Result is set by broadcasts.
	Result  *push.BatchResult
	Notices []Notice
}

func (o *Outcome) info(format string, args ...any) {
	o.Notices = append(o.Notices, Notice{Level: NoticeInfo, Text: fmt.Sprintf(format, args...)})
}

func (o *Outcome) warn(format string, args ...any) {
	o.Notices = append(o.Notices, Notice{Level: NoticeWarning, Text: fmt.Sprintf(format, args...)})
}

// tierLabel is the German display name of a tier.
func tierLabel(t tier.Tier) string {
	switch t {
	case tier.Green:
		return "Grün"
	case tier.Yellow:
		return "Gelb"
	case tier.Red:
		return "Rot"
	case tier.New:
		return "Neu"
	}
	return string(t)
}

// translate maps package errors onto the admin error set.
func translate(err error) error {
	var deviceValidation *device.ValidationError
	var publicationValidation *publication.ValidationError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &deviceValidation):
		return &ValidationError{Errors: deviceValidation.Errors}
	case errors.As(err, &publicationValidation):
		return &ValidationError{Errors: publicationValidation.Errors}
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, publication.ErrPublicationNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
