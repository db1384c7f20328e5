package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	// Timeout bounds the wait for the server acknowledgement.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// PubSubPublisher publishes events to a Cloud Pub/Sub topic as JSON.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewPubSubPublisher creates a Pub/Sub publisher for cfg.Topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		timeout:   timeout,
		logger:    cfg.Logger,
	}, nil
}

// Publish sends e and waits for the server to acknowledge it.
func (p *PubSubPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind": string(e.Kind),
		},
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", e.Kind, err)
	}

	p.logger.Debug().
		Str("event_id", e.ID).
		Str("message_id", serverID).
		Str("topic", p.topic).
		Msg("published audit event")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
