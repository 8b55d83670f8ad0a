package auditlog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/rs/zerolog"
)

// DataBatchInserter is a sink that accepts whole batches.
type DataBatchInserter[T any] interface {
	InsertBatch(ctx context.Context, items []*T) error
	Close() error
}

// BatchInserterConfig sizes a BatchInserter. Zero values take defaults.
type BatchInserterConfig struct {
	BatchSize int
	// FlushInterval bounds how long a partial batch waits.
	FlushInterval time.Duration
	InsertTimeout time.Duration
}

// BatchInserter groups audit entries into batches for a sink. Submit is
// called on the request path and never blocks: with a full buffer the entry
// is dropped and counted instead.
type BatchInserter[T any] struct {
	cfg    BatchInserterConfig
	sink   DataBatchInserter[T]
	logger zerolog.Logger
	queue  chan *T
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	inserted, dropped, failed atomic.Uint64
}

// NewBatchInserter wraps sink. The buffer holds two batches.
func NewBatchInserter[T any](cfg BatchInserterConfig, sink DataBatchInserter[T], logger zerolog.Logger) (*BatchInserter[T], error) {
	if sink == nil {
		return nil, errors.New("audit sink cannot be nil")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = 30 * time.Second
	}
	return &BatchInserter[T]{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With().Str("component", "BatchInserter").Logger(),
		queue:  make(chan *T, cfg.BatchSize*2),
	}, nil
}

// Start runs the flushing loop until Stop is called or ctx ends. Entries
// still queued when ctx ends are flushed without its cancellation.
func (b *BatchInserter[T]) Start(ctx context.Context) {
	b.logger.Info().Int("batch_size", b.cfg.BatchSize).Dur("flush_interval", b.cfg.FlushInterval).Msg("Audit batching started.")
	b.wg.Add(1)
	go b.loop(ctx)
}

// Submit queues item, reporting false if it was dropped.
func (b *BatchInserter[T]) Submit(item *T) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return false
	}
	select {
	case b.queue <- item:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// Inserted returns how many entries reached the sink.
func (b *BatchInserter[T]) Inserted() uint64 { return b.inserted.Load() }

// Dropped returns how many entries were never queued.
func (b *BatchInserter[T]) Dropped() uint64 { return b.dropped.Load() }

// Failed returns how many queued entries were lost to sink errors.
func (b *BatchInserter[T]) Failed() uint64 { return b.failed.Load() }

// Stop flushes what is queued, then closes the sink. The sink stays open if
// ctx ends first.
func (b *BatchInserter[T]) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Error().Err(ctx.Err()).Msg("Audit flush did not finish in time.")
		return ctx.Err()
	}

	err := b.sink.Close()
	b.logger.Info().
		Uint64("inserted", b.Inserted()).
		Uint64("dropped", b.Dropped()).
		Uint64("failed", b.Failed()).
		Msg("Audit batching stopped.")
	return err
}

func (b *BatchInserter[T]) loop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	var pending []*T
	flush := func(ctx context.Context) {
		if len(pending) > 0 {
			b.insert(ctx, pending)
			pending = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case item, ok := <-b.queue:
					if !ok {
						break drain
					}
					pending = append(pending, item)
				default:
					break drain
				}
			}
			flush(context.WithoutCancel(ctx))
			return
		case item, ok := <-b.queue:
			if !ok {
				flush(ctx)
				return
			}
			pending = append(pending, item)
			if len(pending) >= b.cfg.BatchSize {
				flush(ctx)
				ticker.Reset(b.cfg.FlushInterval)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (b *BatchInserter[T]) insert(ctx context.Context, batch []*T) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.InsertTimeout)
	defer cancel()

	if err := b.sink.InsertBatch(ctx, batch); err != nil {
		b.failed.Add(uint64(len(batch)))
		b.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("Audit batch lost.")
		return
	}
	b.inserted.Add(uint64(len(batch)))
	b.logger.Debug().Int("batch_size", len(batch)).Msg("Audit batch written.")
}

// Observer returns a sequence.Observer that submits every record to b.
func Observer(b *BatchInserter[Entry]) sequence.Observer {
	return sequence.ObserverFunc(func(_ context.Context, rec sequence.Record) {
		b.Submit(EntryFromRecord(rec))
	})
}
