package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// AsyncPublisher hands events to another publisher in the background, so
// admin requests return as soon as their state is committed. Failures are
// logged.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncPublisher wraps next. Each background publish is bounded by timeout.
func NewAsyncPublisher(next Publisher, timeout time.Duration, logger zerolog.Logger) *AsyncPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncPublisher{next: next, timeout: timeout, logger: logger}
}

// Publish schedules e and returns immediately. The request context's values
// are kept but its cancellation is not.
func (p *AsyncPublisher) Publish(ctx context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		if err := p.next.Publish(ctx, e); err != nil {
			p.logger.Warn().
				Err(err).
				Str("event_id", e.ID).
				Str("kind", string(e.Kind)).
				Msg("failed to publish audit event")
		}
	}()
	return nil
}

// Close stops accepting events and waits for scheduled ones to finish.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}
