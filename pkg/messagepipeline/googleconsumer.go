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

// GooglePubsubConsumerConfig configures a GooglePubsubConsumer.
type GooglePubsubConsumerConfig struct {
	SubscriptionID string
	// MaxOutstanding caps unacknowledged messages held by this process. It
	// also sizes the hand-off channel.
	MaxOutstanding int
	NumGoroutines  int
	// MaxExtension is how long the client keeps extending a message's ack
	// deadline. Large factorial or prime batches can take minutes.
	MaxExtension time.Duration
}

// NewGooglePubsubConsumerDefaults returns a configuration for subID.
func NewGooglePubsubConsumerDefaults(subID string) *GooglePubsubConsumerConfig {
	return &GooglePubsubConsumerConfig{
		SubscriptionID: subID,
		MaxOutstanding: 100,
		NumGoroutines:  2,
		MaxExtension:   10 * time.Minute,
	}
}

// GooglePubsubConsumer feeds messages from a Pub/Sub subscription into a
// channel read by the StreamingService workers.
type GooglePubsubConsumer struct {
	sub    *pubsub.Subscription
	logger zerolog.Logger

	out      chan Message
	done     chan struct{}
	received atomic.Uint64
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewGooglePubsubConsumer fails if the subscription does not exist.
func NewGooglePubsubConsumer(ctx context.Context, cfg *GooglePubsubConsumerConfig, client *pubsub.Client, logger zerolog.Logger) (*GooglePubsubConsumer, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	if cfg == nil || cfg.SubscriptionID == "" {
		return nil, errors.New("consumer requires a subscription ID")
	}

	sub := client.Subscription(cfg.SubscriptionID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for subscription %s: %w", cfg.SubscriptionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("subscription %s does not exist", cfg.SubscriptionID)
	}

	if cfg.MaxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	if cfg.NumGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = cfg.NumGoroutines
	}
	if cfg.MaxExtension > 0 {
		sub.ReceiveSettings.MaxExtension = cfg.MaxExtension
	}

	return &GooglePubsubConsumer{
		sub:    sub,
		logger: logger.With().Str("component", "GooglePubsubConsumer").Str("subscription_id", cfg.SubscriptionID).Logger(),
		out:    make(chan Message, max(cfg.MaxOutstanding, 1)),
		done:   make(chan struct{}),
	}, nil
}

// Messages implements MessageConsumer.
func (c *GooglePubsubConsumer) Messages() <-chan Message { return c.out }

// Done implements MessageConsumer.
func (c *GooglePubsubConsumer) Done() <-chan struct{} { return c.done }

// Received returns the number of messages handed to the workers so far.
func (c *GooglePubsubConsumer) Received() uint64 { return c.received.Load() }

// Start receives in the background until Stop is called or ctx ends.
func (c *GooglePubsubConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("consumer already started")
	}
	receiveCtx, cancel := context.WithCancel(ctx)
	c.started, c.cancel = true, cancel

	go func() {
		defer close(c.done)
		defer close(c.out)

		c.logger.Info().Msg("Receiving from subscription.")
		err := c.sub.Receive(receiveCtx, func(_ context.Context, m *pubsub.Message) {
			select {
			case c.out <- fromPubsub(m):
				c.received.Add(1)
			case <-receiveCtx.Done():
				m.Nack()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Msg("Subscription receive failed.")
		}
		c.logger.Info().Uint64("received", c.received.Load()).Msg("Stopped receiving.")
	}()
	return nil
}

// Stop cancels the receive loop and waits for it, bounded by ctx. Calling
// Stop on a consumer that never started just closes its channels.
func (c *GooglePubsubConsumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.mu.Lock()
		wasStarted := c.started
		c.started = true
		c.mu.Unlock()

		if wasStarted {
			c.cancel()
			select {
			case <-c.done:
			case <-ctx.Done():
				err = fmt.Errorf("consumer did not stop in time: %w", ctx.Err())
			}
			return
		}
		close(c.out)
		close(c.done)
	})
	return err
}

// fromPubsub copies the payload since the client may reuse its buffer after
// the callback returns.
func fromPubsub(m *pubsub.Message) Message {
	return Message{
		MessageData: MessageData{
			ID:          m.ID,
			Payload:     append([]byte(nil), m.Data...),
			PublishTime: m.PublishTime,
		},
		Attributes: m.Attributes,
		Ack:        m.Ack,
		Nack:       m.Nack,
	}
}
