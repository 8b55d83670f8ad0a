package sequence

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/rs/zerolog"
)

// DefaultNativeBits is the signed width of the native integer a Response can
// carry. Values needing more bits are returned as decimal text.
const DefaultNativeBits = 64

// Sequence adapts a Definition to the request contract: it validates indices,
// calls the compute function, and classifies the result into a Response.
// It holds no per-request state; caches live in the compute functions.
type Sequence struct {
	def        Definition
	nativeBits int
	observer   Observer
	logger     zerolog.Logger
}

// Option configures a Sequence.
type Option func(*Sequence)

// WithLogger sets the logger used for per-request timing.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sequence) { s.logger = logger }
}

// WithNativeBits sets the signed integer width below which values are returned
// as KindInt. Transports limited to 32-bit integers should pass 32.
func WithNativeBits(bits int) Option {
	return func(s *Sequence) {
		if bits > 0 && bits <= DefaultNativeBits {
			s.nativeBits = bits
		}
	}
}

// WithObserver registers an observer notified after every index.
func WithObserver(o Observer) Option {
	return func(s *Sequence) { s.observer = o }
}

// New wraps a definition. It fails if the definition cannot be served.
func New(def Definition, opts ...Option) (*Sequence, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	s := &Sequence{
		def:        def,
		nativeBits: DefaultNativeBits,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "Sequence").Str("sequence", def.Name.String()).Logger()
	return s, nil
}

// Name returns the implementation's identifier.
func (s *Sequence) Name() Name { return s.def.Name }

// Title returns the display name, e.g. "Fibonacci numbers (Go)".
func (s *Sequence) Title() string { return s.def.Title }

// Description returns the human-readable description.
func (s *Sequence) Description() string { return s.def.Description }

// MaxIndex returns the largest supported index.
func (s *Sequence) MaxIndex() int { return s.def.MaxIndex }

func (s *Sequence) String() string { return s.def.Title }

// Value validates index and computes the member. Failures are returned as
// *IndexError or *ComputationError; panics in the compute function are
// recovered into a *ComputationError.
func (s *Sequence) Value(index int) (v *big.Int, err error) {
	if index < 0 || index > s.def.MaxIndex {
		return nil, &IndexError{Index: index, MaxIndex: s.def.MaxIndex}
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, recovered(s.def.Name, index, r)
		}
	}()
	v, err = s.def.Compute(index)
	if err == nil && v == nil {
		err = errNoValue
	}
	if err != nil {
		return nil, &ComputationError{Sequence: s.def.Name, Index: index, Err: err}
	}
	return v, nil
}

// GetNumber answers a single index. It never fails: problems are reported
// as KindError responses.
func (s *Sequence) GetNumber(ctx context.Context, index int) Response {
	start := time.Now()
	resp := s.answer(ctx, index)
	s.logger.Debug().Int("index", index).Dur("elapsed", time.Since(start)).Msg("Answered number request.")
	return resp
}

// GetNumbers answers each index in order. A failure on one index does not
// affect the others, and no limit is placed on the number of indices.
func (s *Sequence) GetNumbers(ctx context.Context, indices []int) []Response {
	start := time.Now()
	out := make([]Response, len(indices))
	for i, idx := range indices {
		out[i] = s.answer(ctx, idx)
	}
	s.logger.Debug().Ints("indices", indices).Dur("elapsed", time.Since(start)).Msg("Answered batch request.")
	return out
}

// Evaluate answers index like GetNumber but without notifying the observer
// or logging. Callers use it to recompute a value that was already observed.
func (s *Sequence) Evaluate(index int) Response {
	resp, _ := s.classify(s.Value(index))
	return resp
}

func (s *Sequence) answer(ctx context.Context, index int) Response {
	start := time.Now()
	v, err := s.Value(index)
	resp, rec := s.classify(v, err)

	var compErr *ComputationError
	if errors.As(err, &compErr) {
		s.logger.Warn().Err(err).Int("index", index).Msg("Computation failed.")
	}
	if s.observer != nil {
		rec.Sequence = s.def.Name
		rec.Index = index
		rec.Duration = time.Since(start)
		rec.Timestamp = start
		s.observer.Observe(ctx, rec)
	}
	return resp
}

func (s *Sequence) classify(v *big.Int, err error) (Response, Record) {
	switch {
	case err == nil && v.BitLen() < s.nativeBits:
		return IntResponse(v.Int64()), Record{Outcome: OutcomeInt, Digits: digitCount(v)}
	case err == nil:
		digits := v.String()
		return TextResponse(digits), Record{Outcome: OutcomeText, Digits: len(digits)}
	case errors.Is(err, ErrIndexOutOfRange):
		return ErrorResponse(err.Error()), Record{Outcome: OutcomeRejected}
	default:
		return ErrorResponse(err.Error()), Record{Outcome: OutcomeFailed}
	}
}

func digitCount(v *big.Int) int {
	return len(v.Text(10))
}
