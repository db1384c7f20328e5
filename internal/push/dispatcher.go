package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/publication"
)

const meterName = "github.com/simplereader/simplereader/internal/push"

// Dispatch errors.
var (
	// ErrDispatchFailed wraps any transport failure.
	ErrDispatchFailed = errors.New("push dispatch failed")

	// ErrPushDisabled is returned when the push kill switch is on.
	ErrPushDisabled = errors.New("push sending is disabled")
)

// KillSwitch reports whether sending is currently disabled.
type KillSwitch interface {
	IsPushSendingDisabled(ctx context.Context) bool
}

// Config holds dispatch limits.
type Config struct {
	// Timeout bounds every transmission, single or batch.
	Timeout time.Duration
	// TTL is how long the provider may hold an undeliverable notification.
	TTL time.Duration
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Crafter   *Crafter
	Transport Transport
	// KillSwitch is optional.
	KillSwitch KillSwitch
	Config     Config
	Logger     zerolog.Logger
}

// BatchResult partitions the devices of a SendMany call by device name.
// Every device is in exactly one of the two lists.
type BatchResult struct {
	Sent    []string
	Skipped []string
}

// Dispatcher crafts and transmits notifications. It never retries: push is
// best effort and clients reconcile by polling the feed.
type Dispatcher struct {
	crafter    *Crafter
	transport  Transport
	killSwitch KillSwitch
	cfg        Config
	logger     zerolog.Logger
	now        func() time.Time

	sent     metric.Int64Counter
	skipped  metric.Int64Counter
	failures metric.Int64Counter
}

// NewDispatcher creates a dispatcher and its metric instruments.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Config.Timeout <= 0 {
		cfg.Config.Timeout = 10 * time.Second
	}

	meter := otel.Meter(meterName)

	sent, err := meter.Int64Counter(
		"push.sent",
		metric.WithDescription("Notifications handed to the push provider"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter(
		"push.skipped",
		metric.WithDescription("Devices skipped for lack of a valid push token"),
		metric.WithUnit("{device}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"push.failures",
		metric.WithDescription("Failed push transmissions"),
		metric.WithUnit("{transmission}"),
	)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		crafter:    cfg.Crafter,
		transport:  cfg.Transport,
		killSwitch: cfg.KillSwitch,
		cfg:        cfg.Config,
		logger:     cfg.Logger.With().Str("component", "push").Logger(),
		now:        time.Now,
		sent:       sent,
		skipped:    skipped,
		failures:   failures,
	}, nil
}

// SendOne notifies a single device. It returns false without error when the
// device has no valid push token.
func (d *Dispatcher) SendOne(ctx context.Context, message string, dev *device.Device, pub *publication.Publication) (bool, error) {
	p := d.crafter.Craft(message, dev, pub)
	if p == nil {
		d.skipped.Add(ctx, 1)
		return false, nil
	}

	if d.disabled(ctx) {
		return false, ErrPushDisabled
	}

	batch := BuildBatch([]Target{{Device: dev, Payload: p}}, d.batchOptions())

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	if err := d.transport.SendSingle(sendCtx, batch.Entries()[0]); err != nil {
		d.failures.Add(ctx, 1)
		d.logger.Warn().
			Err(err).
			Str("device_id", dev.ID).
			Str("token_last4", dev.TokenLast4()).
			Msg("push notification failed")
		return false, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	d.sent.Add(ctx, 1)
	return true, nil
}

// SendMany notifies every device in one batch transmission. The partition is
// returned even when the transmission fails or sending is disabled.
func (d *Dispatcher) SendMany(ctx context.Context, message string, devices []*device.Device, pub *publication.Publication) (BatchResult, error) {
	result := BatchResult{
		Sent:    make([]string, 0, len(devices)),
		Skipped: make([]string, 0),
	}
	targets := make([]Target, 0, len(devices))

	for _, dev := range devices {
		p := d.crafter.Craft(message, dev, pub)
		if p == nil {
			result.Skipped = append(result.Skipped, dev.Name)
			continue
		}
		targets = append(targets, Target{Device: dev, Payload: p})
		result.Sent = append(result.Sent, dev.Name)
	}

	d.skipped.Add(ctx, int64(len(result.Skipped)))

	if len(targets) == 0 {
		return result, nil
	}

	if d.disabled(ctx) {
		return result, ErrPushDisabled
	}

	batch := BuildBatch(targets, d.batchOptions())

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	if err := d.transport.SendBatch(sendCtx, batch); err != nil {
		d.failures.Add(ctx, 1)
		d.logger.Warn().
			Err(err).
			Int("batch_size", batch.Len()).
			Msg("push batch failed")
		return result, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	d.sent.Add(ctx, int64(batch.Len()))
	d.logger.Info().
		Int("sent", len(result.Sent)).
		Int("skipped", len(result.Skipped)).
		Msg("push batch dispatched")

	return result, nil
}

func (d *Dispatcher) disabled(ctx context.Context) bool {
	if d.killSwitch == nil || !d.killSwitch.IsPushSendingDisabled(ctx) {
		return false
	}
	d.logger.Info().Msg("push sending disabled by feature flag")
	return true
}

func (d *Dispatcher) batchOptions() BatchOptions {
	return BatchOptions{
		Priority: PriorityHigh,
		TTL:      d.cfg.TTL,
		Now:      d.now(),
	}
}
