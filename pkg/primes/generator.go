// Package primes returns the i-th prime number, growing a table of known
// primes on demand with a segmented sieve.
package primes

import (
	"errors"
	"math"
	"sync"
)

// ErrNegativeIndex is returned for indices below zero.
var ErrNegativeIndex = errors.New("prime index cannot be negative")

// seed is the fixed prefix every table starts with. seedLimit is the largest
// integer the seed is known to be complete for.
var seed = []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59}

const seedLimit = 60

// Generator owns a table of primes that always holds every prime up to limit.
// It is safe for concurrent use: lookups of known primes share a read lock and
// extension is serialized behind the write lock.
type Generator struct {
	mu     sync.RWMutex
	primes []int
	limit  int
}

// NewGenerator creates a generator seeded with the primes up to 60.
func NewGenerator() *Generator {
	primes := make([]int, len(seed))
	copy(primes, seed)
	return &Generator{primes: primes, limit: seedLimit}
}

// Get returns the index-th prime, counting from zero: Get(0) == 2.
func (g *Generator) Get(index int) (int, error) {
	if index < 0 {
		return 0, ErrNegativeIndex
	}

	g.mu.RLock()
	if index < len(g.primes) {
		p := g.primes[index]
		g.mu.RUnlock()
		return p, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	hi := EstimateUpperBound(index)
	// The estimate is not a certified bound, so keep doubling until it holds.
	for len(g.primes) <= index {
		if hi <= g.limit {
			hi = 2 * g.limit
		}
		g.extendTo(hi)
	}
	return g.primes[index], nil
}

// Len reports how many primes are currently known.
func (g *Generator) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.primes)
}

// Limit reports the largest integer the table is complete for.
func (g *Generator) Limit() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.limit
}

// EstimateUpperBound returns the smallest hi in [1, index^2] with
// hi/ln(hi) >= index, found by binary search. Since pi(x) > x/ln(x) for
// x >= 17, the table holds at least index+1 primes once it covers hi; for
// tiny indices the interval degenerates and callers must not rely on it.
func EstimateUpperBound(index int) int {
	lo, hi := 1, math.MaxInt
	if index < math.MaxInt32 {
		hi = index * index
	}
	target := float64(index)
	for lo+1 < hi {
		m := lo + (hi-lo)/2
		if float64(m)/math.Log(float64(m)) < target {
			lo = m
		} else {
			hi = m
		}
	}
	return hi
}

// extendTo grows the table to cover every integer up to hi. Sieving [lo, hi]
// needs the primes up to sqrt(hi), so the square-root chain is pushed onto a
// stack first and the ranges are sieved from the smallest up.
// Must be called with the write lock held.
func (g *Generator) extendTo(hi int) {
	if hi <= g.limit {
		return
	}
	stack := []int{hi}
	for {
		r := isqrt(stack[len(stack)-1])
		if r <= g.limit {
			break
		}
		stack = append(stack, r)
	}
	for i := len(stack) - 1; i >= 0; i-- {
		g.sieve(g.limit+1, stack[i])
	}
}

// sieve appends the primes in [lo, hi]. The table must already hold every
// prime up to sqrt(hi).
func (g *Generator) sieve(lo, hi int) {
	if hi < lo {
		return
	}
	composite := make([]bool, hi-lo+1)
	for _, p := range g.primes {
		if p > hi/p {
			break
		}
		start := max(p*p, (lo+p-1)/p*p)
		for m := start; m <= hi; m += p {
			composite[m-lo] = true
		}
	}
	for i, c := range composite {
		if !c {
			g.primes = append(g.primes, lo+i)
		}
	}
	g.limit = hi
}

// isqrt returns floor(sqrt(n)) for n >= 0.
func isqrt(n int) int {
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
