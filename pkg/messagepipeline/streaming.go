package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultNumWorkers = 5

// StreamingServiceConfig holds configuration for a StreamingService.
type StreamingServiceConfig struct {
	NumWorkers int
	// ProcessTimeout bounds one processor call. Zero means no bound beyond
	// the service context.
	ProcessTimeout time.Duration
}

// StreamingService consumes messages, transforms them individually, and
// hands each payload straight to a processor on a fixed pool of workers.
// Every message is settled exactly once: Ack on success or skip, Nack on a
// transform error, a processor error, or a processor panic.
type StreamingService[T any] struct {
	cfg         StreamingServiceConfig
	consumer    MessageConsumer
	transformer MessageTransformer[T]
	processor   StreamProcessor[T]
	logger      zerolog.Logger
	wg          sync.WaitGroup
	started     atomic.Bool

	acked, nacked atomic.Uint64
}

// NewStreamingService creates a new StreamingService.
func NewStreamingService[T any](
	cfg StreamingServiceConfig,
	consumer MessageConsumer,
	transformer MessageTransformer[T],
	processor StreamProcessor[T],
	logger zerolog.Logger,
) (*StreamingService[T], error) {
	var errs []error
	if consumer == nil {
		errs = append(errs, errors.New("consumer cannot be nil"))
	}
	if transformer == nil {
		errs = append(errs, errors.New("transformer cannot be nil"))
	}
	if processor == nil {
		errs = append(errs, errors.New("processor cannot be nil"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = defaultNumWorkers
	}
	return &StreamingService[T]{
		cfg:         cfg,
		consumer:    consumer,
		transformer: transformer,
		processor:   processor,
		logger:      logger.With().Str("service", "StreamingService").Logger(),
	}, nil
}

// Start starts the consumer and the worker pool. It may be called once.
func (s *StreamingService[T]) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("streaming service already started")
	}
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message consumer: %w", err)
	}
	s.wg.Add(s.cfg.NumWorkers)
	for i := 0; i < s.cfg.NumWorkers; i++ {
		go s.worker(ctx, i)
	}
	s.logger.Info().Int("worker_count", s.cfg.NumWorkers).Msg("Streaming service started.")
	return nil
}

// Stop stops the consumer first so no new messages arrive, then waits for
// in-flight messages until ctx expires.
func (s *StreamingService[T]) Stop(ctx context.Context) error {
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Error during consumer stop, continuing shutdown.")
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for processing workers to finish.")
		return ctx.Err()
	}

	acked, nacked := s.Counts()
	s.logger.Info().Uint64("acked", acked).Uint64("nacked", nacked).Msg("Streaming service stopped.")
	return nil
}

// Counts returns how many messages were acknowledged and rejected so far.
func (s *StreamingService[T]) Counts() (acked, nacked uint64) {
	return s.acked.Load(), s.nacked.Load()
}

func (s *StreamingService[T]) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	logger := s.logger.With().Int("worker_id", id).Logger()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Worker stopping on context cancellation.")
			return
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				logger.Debug().Msg("Consumer channel closed, worker exiting.")
				return
			}
			if err := s.handle(ctx, &msg); err != nil {
				logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Message rejected, Nacking.")
				s.settle(msg, false)
				continue
			}
			s.settle(msg, true)
		}
	}
}

// handle runs one message through the transformer and processor. A nil
// result means the message is done with, whether processed or skipped.
func (s *StreamingService[T]) handle(ctx context.Context, msg *Message) (err error) {
	payload, skip, err := s.transformer(ctx, msg)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if skip {
		s.logger.Debug().Str("msg_id", msg.ID).Msg("Transformer skipped message.")
		return nil
	}

	if s.cfg.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ProcessTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panicked: %v", r)
		}
	}()
	if err := s.processor(ctx, *msg, payload); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	return nil
}

func (s *StreamingService[T]) settle(msg Message, ok bool) {
	if ok {
		s.acked.Add(1)
		if msg.Ack != nil {
			msg.Ack()
		}
		return
	}
	s.nacked.Add(1)
	if msg.Nack != nil {
		msg.Nack()
	}
}
