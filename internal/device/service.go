package device

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/tier"
)

// Validation constants.
const (
	MaxIDLength    = 64
	MaxNameLength  = 64
	MaxEmailLength = 120
)

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Transition describes a tier change applied to a device.
type Transition struct {
	Device  *Device
	From    tier.Tier
	To      tier.Tier
	Changed bool
}

// Service provides device operations. Every tier change goes through the policy.
type Service struct {
	repo   Repository
	policy tier.Policy
}

// NewService creates a new device service.
func NewService(repo Repository, policy tier.Policy) *Service {
	return &Service{repo: repo, policy: policy}
}

// Register registers a new device or updates the contact fields and push
// token of a known one. The ID is stored exactly as sent.
// Returns the device and whether it was newly created.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Device, bool, error) {
	if fieldErrors := validateRegisterInput(input); len(fieldErrors) > 0 {
		return nil, false, &ValidationError{Errors: fieldErrors}
	}

	return s.repo.Register(ctx, input, time.Now())
}

// Get retrieves a device by ID.
func (s *Service) Get(ctx context.Context, id string) (*Device, error) {
	return s.repo.Get(ctx, id)
}

// Lookup retrieves a device, returning nil without error when it is unknown.
func (s *Service) Lookup(ctx context.Context, id string) (*Device, error) {
	d, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrDeviceNotFound) {
		return nil, nil
	}
	return d, err
}

// List retrieves all devices.
func (s *Service) List(ctx context.Context) ([]*Device, error) {
	return s.repo.List(ctx)
}

// Delete removes a device registration.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetTier applies an admin override. The reason becomes the device's last message.
func (s *Service) SetTier(ctx context.Context, id string, target tier.Tier, reason string) (*Transition, error) {
	var fieldErrors []models.FieldError
	if !target.Assignable() {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "tier", Message: "must be one of green, yellow, red"})
	}
	if strings.TrimSpace(reason) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "reason", Message: "is required"})
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	return s.transition(ctx, id, tier.AdminSet{Target: target, Reason: reason})
}

// SetMessage overwrites the device's last message without touching its tier.
func (s *Service) SetMessage(ctx context.Context, id, message string) (*Device, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "message", Message: "is required"}}}
	}

	return s.repo.Update(ctx, id, func(d *Device) error {
		d.LastMessage = message
		d.UpdatedAt = time.Now()
		return nil
	})
}

// Report records a screenshot event and applies the automatic tier escalation.
// A report on a device that has no automatic successor only bumps the counter.
func (s *Service) Report(ctx context.Context, id string, takenAt time.Time) (*Transition, error) {
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	var tr Transition
	d, err := s.repo.RecordScreenshot(ctx, id, takenAt, func(d *Device) error {
		return s.apply(d, tier.Report{}, &tr)
	})
	if err != nil {
		return nil, err
	}

	tr.Device = d
	return &tr, nil
}

func (s *Service) transition(ctx context.Context, id string, ev tier.Event) (*Transition, error) {
	var tr Transition
	d, err := s.repo.Update(ctx, id, func(d *Device) error {
		return s.apply(d, ev, &tr)
	})
	if err != nil {
		return nil, err
	}

	tr.Device = d
	return &tr, nil
}

func (s *Service) apply(d *Device, ev tier.Event, tr *Transition) error {
	next, message, err := s.policy.Next(d.Tier, ev)
	if err != nil {
		return err
	}

	tr.From = d.Tier
	tr.To = next
	tr.Changed = next != d.Tier

	d.Tier = next
	if message != "" {
		d.LastMessage = message
	}
	d.UpdatedAt = time.Now()
	return nil
}

func validateRegisterInput(input RegisterInput) []models.FieldError {
	var errs []models.FieldError

	if strings.TrimSpace(input.ID) == "" {
		errs = append(errs, models.FieldError{Field: "deviceId", Message: "is required"})
	} else if len(input.ID) > MaxIDLength {
		errs = append(errs, models.FieldError{Field: "deviceId", Message: "must be at most 64 characters"})
	}
	if len(input.Name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 64 characters"})
	}
	if len(input.Email) > MaxEmailLength {
		errs = append(errs, models.FieldError{Field: "email", Message: "must be at most 120 characters"})
	}

	return errs
}
