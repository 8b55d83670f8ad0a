package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// SimplePublisher publishes single messages without pipeline batching.
type SimplePublisher interface {
	// Publish sends one message and waits until the broker accepted it.
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
	// Stop flushes any pending messages and accepts a context for timeout control.
	Stop(ctx context.Context) error
}

// GoogleSimplePublisherConfig configures a GoogleSimplePublisher.
type GoogleSimplePublisherConfig struct {
	TopicID string
	// DelayThreshold is how long the client may hold a message to batch it.
	// Replies are latency bound, so it defaults to a few milliseconds.
	DelayThreshold time.Duration
	// PublishTimeout bounds the wait for the broker's acknowledgement.
	PublishTimeout time.Duration
}

// NewGoogleSimplePublisherDefaults returns a config for topicID tuned for
// one message per request.
func NewGoogleSimplePublisherDefaults(topicID string) *GoogleSimplePublisherConfig {
	return &GoogleSimplePublisherConfig{
		TopicID:        topicID,
		DelayThreshold: 5 * time.Millisecond,
		PublishTimeout: 30 * time.Second,
	}
}

// GoogleSimplePublisher implements SimplePublisher on a Pub/Sub topic.
type GoogleSimplePublisher struct {
	topic          *pubsub.Topic
	publishTimeout time.Duration
	logger         zerolog.Logger
	stopOnce       sync.Once

	published, failed atomic.Uint64
}

// NewGoogleSimplePublisher verifies that the topic exists and returns a
// publisher for it.
func NewGoogleSimplePublisher(ctx context.Context, cfg *GoogleSimplePublisherConfig, client *pubsub.Client, logger zerolog.Logger) (*GoogleSimplePublisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	if cfg == nil || cfg.TopicID == "" {
		return nil, errors.New("publisher requires a topic ID")
	}
	topic := client.Topic(cfg.TopicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", cfg.TopicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", cfg.TopicID)
	}
	if cfg.DelayThreshold > 0 {
		topic.PublishSettings.DelayThreshold = cfg.DelayThreshold
	}

	return &GoogleSimplePublisher{
		topic:          topic,
		publishTimeout: cfg.PublishTimeout,
		logger:         logger.With().Str("component", "GoogleSimplePublisher").Str("topic_id", cfg.TopicID).Logger(),
	}, nil
}

// Publish sends a single message and waits for the server's acknowledgement,
// so that a failed reply can Nack the request that caused it.
func (p *GoogleSimplePublisher) Publish(ctx context.Context, payload []byte, attributes map[string]string) error {
	if p.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.publishTimeout)
		defer cancel()
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: attributes})
	msgID, err := result.Get(ctx)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.published.Add(1)
	p.logger.Debug().Str("published_msg_id", msgID).Int("bytes", len(payload)).Msg("Message published.")
	return nil
}

// Counts returns how many messages were published and how many failed.
func (p *GoogleSimplePublisher) Counts() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}

// Stop flushes pending messages. It is safe to call more than once.
func (p *GoogleSimplePublisher) Stop(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		p.stopOnce.Do(p.topic.Stop)
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
