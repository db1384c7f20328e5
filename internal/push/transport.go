package push

import (
	"context"

	"github.com/rs/zerolog"
)

// Transport delivers entries to a push provider.
type Transport interface {
	// SendSingle delivers one entry.
	SendSingle(ctx context.Context, entry Entry) error
	// SendBatch delivers every entry of b. Failures are aggregated; the
	// returned error does not say which entries failed.
	SendBatch(ctx context.Context, b Batch) error
}

// LogTransport only logs what would have been sent. It is used when no push
// provider is configured.
type LogTransport struct {
	logger zerolog.Logger
}

// NewLogTransport creates a logging transport.
func NewLogTransport(logger zerolog.Logger) *LogTransport {
	return &LogTransport{logger: logger.With().Str("transport", "log").Logger()}
}

// SendSingle logs the entry.
func (t *LogTransport) SendSingle(_ context.Context, e Entry) error {
	t.log(e)
	return nil
}

// SendBatch logs every entry of the batch.
func (t *LogTransport) SendBatch(_ context.Context, b Batch) error {
	for _, e := range b.Entries() {
		t.log(e)
	}
	return nil
}

func (t *LogTransport) log(e Entry) {
	t.logger.Info().
		Str("device_id", e.DeviceID).
		Str("alert", e.Payload.Alert).
		Str("status", string(e.Payload.Status)).
		Bool("with_publication", e.Payload.Publication != nil).
		Msg("push notification (not sent)")
}

var (
	_ Transport = (*LogTransport)(nil)
	_ Transport = (*APNSTransport)(nil)
)
