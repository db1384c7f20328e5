package push

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
	"golang.org/x/sync/errgroup"

	"github.com/simplereader/simplereader/internal/provider/resilience"
)

// ProviderAPNs is the name the APNs transport registers under.
const ProviderAPNs = "apns"

// APNSConfig holds the credentials and behaviour of the APNs transport.
type APNSConfig struct {
	KeyPath    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
	// Concurrency bounds the in-flight requests of a batch.
	Concurrency int
}

// Configured reports whether all credentials are present.
func (c APNSConfig) Configured() bool {
	return c.KeyPath != "" && c.KeyID != "" && c.TeamID != "" && c.Topic != ""
}

// RejectedError is returned when APNs answered but did not accept a notification.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("apns rejected notification: %d %s", e.StatusCode, e.Reason)
}

// APNSTransport sends notifications over the APNs HTTP/2 API with token auth.
type APNSTransport struct {
	client      *apns2.Client
	topic       string
	concurrency int
	guard       *resilience.Guard
	logger      zerolog.Logger
}

// NewAPNSTransport reads the .p8 signing key and creates the transport.
func NewAPNSTransport(cfg APNSConfig, guard *resilience.Guard, logger zerolog.Logger) (*APNSTransport, error) {
	if !cfg.Configured() {
		return nil, errors.New("apns: key path, key id, team id and topic are required")
	}

	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("apns: read auth key %s: %w", cfg.KeyPath, err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	logger.Info().
		Str("key_id", cfg.KeyID).
		Str("team_id", cfg.TeamID).
		Str("topic", cfg.Topic).
		Bool("production", cfg.Production).
		Msg("APNs transport initialized")

	return newAPNSTransport(client, cfg, guard, logger), nil
}

func newAPNSTransport(client *apns2.Client, cfg APNSConfig, guard *resilience.Guard, logger zerolog.Logger) *APNSTransport {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.GuardConfig{Name: ProviderAPNs})
	}

	return &APNSTransport{
		client:      client,
		topic:       cfg.Topic,
		concurrency: concurrency,
		guard:       guard,
		logger:      logger.With().Str("transport", ProviderAPNs).Logger(),
	}
}

// SendSingle pushes one notification.
func (t *APNSTransport) SendSingle(ctx context.Context, e Entry) error {
	return t.push(ctx, e)
}

// SendBatch pushes every entry with bounded concurrency and waits for all of them.
func (t *APNSTransport) SendBatch(ctx context.Context, b Batch) error {
	entries := b.Entries()

	var (
		g        errgroup.Group
		failures atomic.Int64
		firstErr atomic.Pointer[error]
	)
	g.SetLimit(t.concurrency)

	for _, e := range entries {
		g.Go(func() error {
			if err := t.push(ctx, e); err != nil {
				failures.Add(1)
				firstErr.CompareAndSwap(nil, &err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failures.Load(); n > 0 {
		t.logger.Warn().
			Int64("failures", n).
			Int("total", len(entries)).
			Msg("APNs batch finished with failures")
		return fmt.Errorf("%d of %d notifications failed: %w", n, len(entries), *firstErr.Load())
	}
	return nil
}

func (t *APNSTransport) push(ctx context.Context, e Entry) error {
	n := &apns2.Notification{
		DeviceToken: e.Token,
		Topic:       t.topic,
		Payload:     e.Payload.APNs(),
		Priority:    e.Priority,
		Expiration:  e.Expiration,
	}

	var res *apns2.Response
	err := t.guard.Execute(ctx, func(ctx context.Context) error {
		var err error
		res, err = t.client.PushWithContext(ctx, n)
		return err
	})
	if err != nil {
		return err
	}

	// Rejections do not count against the circuit breaker.
	if !res.Sent() {
		return &RejectedError{StatusCode: res.StatusCode, Reason: res.Reason}
	}
	return nil
}
