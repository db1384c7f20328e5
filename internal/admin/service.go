package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/auth"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/events"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/push"
	"github.com/simplereader/simplereader/internal/tier"
)

// Notifier sends push notifications.
type Notifier interface {
	SendOne(ctx context.Context, message string, d *device.Device, pub *publication.Publication) (bool, error)
	SendMany(ctx context.Context, message string, devices []*device.Device, pub *publication.Publication) (push.BatchResult, error)
}

// ServiceConfig wires the admin service.
type ServiceConfig struct {
	Devices      *device.Service
	Publications *publication.Service
	Notifier     Notifier
	// Events is optional.
	Events events.Publisher
	Logger zerolog.Logger
}

// Service runs admin actions.
type Service struct {
	devices      *device.Service
	publications *publication.Service
	notifier     Notifier
	events       events.Publisher
	logger       zerolog.Logger
}

// NewService creates a new admin service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		devices:      cfg.Devices,
		publications: cfg.Publications,
		notifier:     cfg.Notifier,
		events:       cfg.Events,
		logger:       cfg.Logger.With().Str("component", "admin").Logger(),
	}
}

// SetTier moves a device to target and notifies it with reason as the alert.
func (s *Service) SetTier(ctx context.Context, deviceID string, target tier.Tier, reason string) (*Outcome, error) {
	tr, err := s.devices.SetTier(ctx, deviceID, target, reason)
	if err != nil {
		return nil, translate(err)
	}

	s.logger.Info().
		Str("device_id", deviceID).
		Str("from", string(tr.From)).
		Str("to", string(tr.To)).
		Str("admin", auth.AdminFromContext(ctx)).
		Msg("device tier set")

	e := events.New(events.KindTierChanged)
	e.DeviceID = deviceID
	e.From = string(tr.From)
	e.To = string(tr.To)
	e.Reason = reason
	s.publish(ctx, e)

	out := &Outcome{Device: tr.Device}
	out.info("Gerät %q ist jetzt %s eingestuft... Begründung: %s", tr.Device.Name, tierLabel(tr.To), reason)
	s.notifyOne(ctx, out, reason, tr.Device)
	return out, nil
}

// Message sets a device's last message and pushes it.
func (s *Service) Message(ctx context.Context, deviceID, message string) (*Outcome, error) {
	d, err := s.devices.SetMessage(ctx, deviceID, message)
	if err != nil {
		return nil, translate(err)
	}

	out := &Outcome{Device: d}
	out.info("Nachricht an %s: %s", d.Name, message)
	s.notifyOne(ctx, out, message, d)
	return out, nil
}

// Broadcast pushes message to every registered device, with the publication
// attached for devices whose tier admits it.
func (s *Service) Broadcast(ctx context.Context, message string, publicationID *string) (*Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return nil, &ValidationError{Errors: []models.FieldError{{Field: "message", Message: "is required"}}}
	}

	out := &Outcome{}
	if publicationID != nil {
		pub, err := s.publications.Get(ctx, *publicationID)
		if err != nil {
			return nil, translate(err)
		}
		out.Publication = pub
	}

	s.broadcast(ctx, out, message)
	return out, nil
}

// Publish creates a publication and, when notify is set, broadcasts it.
// An empty message defaults to the publication title.
func (s *Service) Publish(ctx context.Context, input publication.CreateInput, notify bool, message string) (*Outcome, error) {
	pub, err := s.publications.Create(ctx, input)
	if err != nil {
		return nil, translate(err)
	}

	e := events.New(events.KindPublicationPublished)
	e.PublicationID = pub.ID
	s.publish(ctx, e)

	out := &Outcome{Publication: pub}
	out.info("%s wurde hinzugefügt.", pub.Title)

	if !notify {
		return out, nil
	}

	if strings.TrimSpace(message) == "" {
		message = pub.Title
	}
	s.broadcast(ctx, out, message)
	return out, nil
}

// UpdatePublication edits a publication. Devices are not notified.
func (s *Service) UpdatePublication(ctx context.Context, id string, input publication.UpdateInput) (*Outcome, error) {
	pub, err := s.publications.Update(ctx, id, input)
	if err != nil {
		return nil, translate(err)
	}

	e := events.New(events.KindPublicationUpdated)
	e.PublicationID = pub.ID
	s.publish(ctx, e)

	out := &Outcome{Publication: pub}
	out.info("%s wurde aktualisiert.", pub.Title)
	return out, nil
}

// DeletePublication deletes a publication.
func (s *Service) DeletePublication(ctx context.Context, id string) (*Outcome, error) {
	if err := s.publications.Delete(ctx, id); err != nil {
		return nil, translate(err)
	}

	e := events.New(events.KindPublicationDeleted)
	e.PublicationID = id
	s.publish(ctx, e)

	out := &Outcome{}
	out.info("Publikation (%s) wurde erfolgreich gelöscht.", id)
	return out, nil
}

// DeleteDevice deletes a device registration.
func (s *Service) DeleteDevice(ctx context.Context, id string) (*Outcome, error) {
	if err := s.devices.Delete(ctx, id); err != nil {
		return nil, translate(err)
	}

	e := events.New(events.KindDeviceDeleted)
	e.DeviceID = id
	s.publish(ctx, e)

	out := &Outcome{}
	out.info("Gerät (%s) wurde erfolgreich gelöscht.", id)
	return out, nil
}

// broadcast never fails the action: persisted state stays and problems are
// reported as warnings.
func (s *Service) broadcast(ctx context.Context, out *Outcome, message string) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list devices for broadcast")
		out.warn("Geräte konnten nicht geladen werden, es wurde keine Benachrichtigung gesendet: %v", err)
		return
	}

	result, err := s.notifier.SendMany(ctx, message, devices, out.Publication)
	out.Result = &result

	switch {
	case errors.Is(err, push.ErrPushDisabled):
		out.warn("Push-Versand ist deaktiviert. %d Geräte wurden nicht benachrichtigt.", len(result.Sent))
	case err != nil:
		out.warn("Benachrichtigung fehlgeschlagen: %v", err)
	default:
		out.info("%d Geräte benachrichtigt, %d ohne gültiges Push-Token übersprungen.", len(result.Sent), len(result.Skipped))
	}

	e := events.New(events.KindBroadcastSent)
	if out.Publication != nil {
		e.PublicationID = out.Publication.ID
	}
	e.Sent = len(result.Sent)
	e.Skipped = len(result.Skipped)
	s.publish(ctx, e)
}

func (s *Service) notifyOne(ctx context.Context, out *Outcome, message string, d *device.Device) {
	sent, err := s.notifier.SendOne(ctx, message, d, nil)
	out.Delivered = sent

	switch {
	case errors.Is(err, push.ErrPushDisabled):
		out.warn("Push-Versand ist deaktiviert.")
	case err != nil:
		out.warn("Benachrichtigung an %s fehlgeschlagen: %v", d.Name, err)
	case !sent:
		out.warn("Gerät %q hat kein gültiges Push-Token, es wurde keine Benachrichtigung gesendet.", d.Name)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	e.Actor = auth.AdminFromContext(ctx)
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(e.Kind)).Msg("failed to publish audit event")
	}
}
