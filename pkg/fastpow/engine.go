// Package fastpow implements binary exponentiation over any ring.Ring with a
// memoized table of power-of-two powers that is shared by every call on the
// same Engine.
package fastpow

import (
	"sync"

	"github.com/illmade-knight/go-intseq/pkg/ring"
)

// Engine computes base^n for a fixed base using O(log n) ring multiplications.
//
// Squares of the base are memoized: powers[k] holds base^(2^k). Repeated
// squaring always extends the chain 1, 2, 4, ... so the table is a contiguous
// slice and never has gaps. It grows monotonically and is never invalidated,
// since every entry is a pure function of the immutable base.
//
// An Engine is safe for concurrent use. Cache hits only take the read lock.
// The squaring chain runs under the write lock, so every power is computed
// exactly once even when several goroutines miss at the same time.
type Engine[T any] struct {
	ring ring.Ring[T]

	mu     sync.RWMutex
	powers []T
}

// New creates an engine for base in the given ring.
func New[T any](r ring.Ring[T], base T) *Engine[T] {
	return &Engine[T]{
		ring:   r,
		powers: []T{base},
	}
}

// Pow returns base^n. Pow(0) is the ring identity and does not touch the cache.
func (e *Engine[T]) Pow(n uint64) T {
	acc := e.ring.Identity()
	for k := 0; n > 0; k, n = k+1, n>>1 {
		if n&1 == 1 {
			acc = e.ring.Multiply(acc, e.powerOfTwo(k))
		}
	}
	return acc
}

// CacheSize reports how many power-of-two powers are memoized.
func (e *Engine[T]) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.powers)
}

// powerOfTwo returns base^(2^k), squaring forward from the largest cached
// power when needed and caching every intermediate result.
func (e *Engine[T]) powerOfTwo(k int) T {
	e.mu.RLock()
	if k < len(e.powers) {
		p := e.powers[k]
		e.mu.RUnlock()
		return p
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	// Another goroutine may have extended the chain in the meantime.
	for len(e.powers) <= k {
		last := e.powers[len(e.powers)-1]
		e.powers = append(e.powers, e.ring.Multiply(last, last))
	}
	return e.powers[k]
}
