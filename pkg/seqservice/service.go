// Package seqservice exposes a sequence registry over HTTP and Pub/Sub,
// optionally through a result cache.
package seqservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/rs/zerolog"
)

// DefaultMaxQuerySize bounds the number of indices in one batch request.
const DefaultMaxQuerySize = 100

// ErrTooManyIndices is returned for batches larger than the query limit.
var ErrTooManyIndices = errors.New("too many indices")

// NumberKey identifies one cached answer. Sequence is always the full
// "id.kind" name so that bare-id lookups share entries with exact ones.
type NumberKey struct {
	Sequence string
	Index    int
}

// String formats the key as "id.kind:index". It is used as the Redis key and
// Firestore document ID.
func (k NumberKey) String() string {
	return k.Sequence + ":" + strconv.Itoa(k.Index)
}

// ResultFetcher is the cache chain type the service reads through.
type ResultFetcher = cache.Fetcher[NumberKey, sequence.Response]

// uncachedResponse carries an error Response through the cache chain as an
// error, so that no tier stores it.
type uncachedResponse struct {
	resp sequence.Response
}

func (u *uncachedResponse) Error() string { return u.resp.Message }

// Service answers number requests against a registry.
type Service struct {
	registry     *sequence.Registry
	maxQuerySize int
	results      ResultFetcher
	logger       zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxQuerySize sets the batch limit. Non-positive values are ignored.
func WithMaxQuerySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQuerySize = n
		}
	}
}

// WithResultCache makes the service read through a cache chain built on top
// of ComputeFetcher. Passing nil disables caching.
func WithResultCache(build func(source ResultFetcher) (ResultFetcher, error)) Option {
	return func(s *Service) {
		if build == nil {
			return
		}
		f, err := build(s.ComputeFetcher())
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to build result cache, serving uncached.")
			return
		}
		s.results = f
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a Service for registry.
func New(registry *sequence.Registry, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		maxQuerySize: DefaultMaxQuerySize,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With().Str("component", "SequenceService").Logger()
	return s
}

// MaxQuerySize returns the batch limit.
func (s *Service) MaxQuerySize() int { return s.maxQuerySize }

// Sequences describes every registered implementation.
func (s *Service) Sequences() []sequence.Info { return s.registry.Infos() }

// Describe returns the info of the implementation name resolves to.
func (s *Service) Describe(name string) (sequence.Info, error) {
	seq, err := s.registry.Lookup(name)
	if err != nil {
		return sequence.Info{}, err
	}
	return sequence.InfoOf(seq), nil
}

// Number answers one index. The only error is an unknown sequence; problems
// with the index are reported inside the Response.
func (s *Service) Number(ctx context.Context, name string, index int) (sequence.Response, error) {
	seq, err := s.registry.Lookup(name)
	if err != nil {
		return sequence.Response{}, err
	}
	if s.results == nil {
		return seq.GetNumber(ctx, index), nil
	}
	return s.fetch(ctx, seq, index), nil
}

// Numbers answers a batch in order. Batches larger than MaxQuerySize are
// rejected with ErrTooManyIndices before any computation.
func (s *Service) Numbers(ctx context.Context, name string, indices []int) ([]sequence.Response, error) {
	seq, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if len(indices) > s.maxQuerySize {
		return nil, fmt.Errorf("%w: specify no more than %d", ErrTooManyIndices, s.maxQuerySize)
	}
	if s.results == nil {
		return seq.GetNumbers(ctx, indices), nil
	}
	out := make([]sequence.Response, len(indices))
	for i, idx := range indices {
		out[i] = s.fetch(ctx, seq, idx)
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, seq *sequence.Sequence, index int) sequence.Response {
	key := NumberKey{Sequence: seq.Name().String(), Index: index}
	resp, err := s.results.Fetch(ctx, key)
	if err == nil {
		return resp
	}
	var uncached *uncachedResponse
	if errors.As(err, &uncached) {
		return uncached.resp
	}
	// The chain failed for reasons of its own; answer directly. The source
	// may already have run and been observed, so this answer is not.
	s.logger.Warn().Err(err).Str("key", key.String()).Msg("Result cache failed, computing directly.")
	return seq.Evaluate(index)
}

// ComputeFetcher returns the bottom of the cache chain: it computes through
// the registry and reports error responses as errors so they are never cached.
func (s *Service) ComputeFetcher() ResultFetcher {
	return cache.FetcherFunc[NumberKey, sequence.Response](func(ctx context.Context, key NumberKey) (sequence.Response, error) {
		seq, err := s.registry.Lookup(key.Sequence)
		if err != nil {
			return sequence.Response{}, err
		}
		resp := seq.GetNumber(ctx, key.Index)
		if resp.IsError() {
			return sequence.Response{}, &uncachedResponse{resp: resp}
		}
		return resp, nil
	})
}

// Close releases the cache chain.
func (s *Service) Close() error {
	if s.results != nil {
		return s.results.Close()
	}
	return nil
}
