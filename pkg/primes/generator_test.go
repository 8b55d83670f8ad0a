package primes_test

import (
	"sync"
	"testing"

	"github.com/illmade-knight/go-intseq/pkg/primes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var first100 = []int{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71,
	73, 79, 83, 89, 97, 101, 103, 107, 109, 113, 127, 131, 137, 139, 149, 151, 157, 163, 167, 173,
	179, 181, 191, 193, 197, 199, 211, 223, 227, 229, 233, 239, 241, 251, 257, 263, 269, 271, 277, 281,
	283, 293, 307, 311, 313, 317, 331, 337, 347, 349, 353, 359, 367, 373, 379, 383, 389, 397, 401, 409,
	419, 421, 431, 433, 439, 443, 449, 457, 461, 463, 467, 479, 487, 491, 499, 503, 509, 521, 523, 541,
}

// referenceSieve is a plain sieve of Eratosthenes used as an oracle.
func referenceSieve(n int) []int {
	composite := make([]bool, n+1)
	var out []int
	for i := 2; i <= n; i++ {
		if composite[i] {
			continue
		}
		out = append(out, i)
		for j := i * i; j <= n; j += i {
			composite[j] = true
		}
	}
	return out
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func TestGenerator_First100(t *testing.T) {
	g := primes.NewGenerator()
	for i, want := range first100 {
		got, err := g.Get(i)
		require.NoError(t, err)
		assert.Equal(t, want, got, "prime #%d", i)
	}
}

func TestGenerator_NoGaps(t *testing.T) {
	// Arrange
	g := primes.NewGenerator()
	ref := referenceSieve(200_000)

	// Act: a single large jump exercises the multi-level sqrt extension.
	last, err := g.Get(len(ref) - 1)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, ref[len(ref)-1], last)
	for i, want := range ref {
		got, err := g.Get(i)
		require.NoError(t, err)
		require.Equal(t, want, got, "prime #%d", i)
	}
}

func TestGenerator_IncreasingAndPrime(t *testing.T) {
	g := primes.NewGenerator()
	prev := 0
	for i := 0; i < 3000; i++ {
		p, err := g.Get(i)
		require.NoError(t, err)
		require.Greater(t, p, prev)
		require.True(t, isPrime(p), "%d is not prime", p)
		prev = p
	}
}

func TestGenerator_Idempotent(t *testing.T) {
	// Arrange
	g := primes.NewGenerator()
	first, err := g.Get(5000)
	require.NoError(t, err)
	size := g.Len()

	// Act
	second, err := g.Get(5000)
	require.NoError(t, err)
	small, err := g.Get(3)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first, second)
	assert.Equal(t, 7, small)
	assert.Equal(t, size, g.Len(), "repeated lookups must not change the table")
	assert.Equal(t, referenceSieve(60_000)[5000], first)
}

func TestGenerator_NegativeIndex(t *testing.T) {
	g := primes.NewGenerator()
	_, err := g.Get(-1)
	assert.ErrorIs(t, err, primes.ErrNegativeIndex)
}

func TestGenerator_Concurrent(t *testing.T) {
	g := primes.NewGenerator()
	ref := referenceSieve(120_000)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(ref); i += 97 {
				p, err := g.Get(i)
				assert.NoError(t, err)
				assert.Equal(t, ref[i], p)
			}
		}(w)
	}
	wg.Wait()
}

func TestEstimateUpperBound(t *testing.T) {
	t.Run("Degenerate intervals", func(t *testing.T) {
		assert.Equal(t, 0, primes.EstimateUpperBound(0))
		assert.Equal(t, 1, primes.EstimateUpperBound(1))
	})

	t.Run("Covers the index-th prime", func(t *testing.T) {
		ref := referenceSieve(300_000)
		for _, idx := range []int{17, 18, 50, 100, 1000, 10_000, 25_000} {
			hi := primes.EstimateUpperBound(idx)
			assert.GreaterOrEqual(t, hi, ref[idx], "bound for index %d", idx)
		}
	})
}

func TestGenerator_MonotoneProperty(t *testing.T) {
	g := primes.NewGenerator()
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.IntRange(0, 20_000).Draw(t, "i")
		a, err := g.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		b, err := g.Get(i + 1)
		if err != nil {
			t.Fatal(err)
		}
		if a >= b || !isPrime(a) {
			t.Fatalf("get(%d)=%d, get(%d)=%d", i, a, i+1, b)
		}
	})
}
