package fastpow_test

import (
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/illmade-knight/go-intseq/pkg/fastpow"
	"github.com/illmade-knight/go-intseq/pkg/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// countingRing wraps ring.BigInt and counts multiplications.
type countingRing struct {
	ring.BigInt
	calls atomic.Int64
}

func (c *countingRing) Multiply(a, b *big.Int) *big.Int {
	c.calls.Add(1)
	return c.BigInt.Multiply(a, b)
}

func TestEngine_Pow(t *testing.T) {
	t.Run("Zero exponent returns identity without caching", func(t *testing.T) {
		// Arrange
		e := fastpow.New[*big.Int](ring.BigInt{}, big.NewInt(3))

		// Act
		got := e.Pow(0)

		// Assert
		assert.Equal(t, int64(1), got.Int64())
		assert.Equal(t, 1, e.CacheSize(), "only the seeded base should be cached")
	})

	t.Run("Matches math/big Exp", func(t *testing.T) {
		e := fastpow.New[*big.Int](ring.BigInt{}, big.NewInt(3))
		for n := uint64(0); n <= 300; n++ {
			want := new(big.Int).Exp(big.NewInt(3), new(big.Int).SetUint64(n), nil)
			require.Equal(t, 0, want.Cmp(e.Pow(n)), "3^%d", n)
		}
	})

	t.Run("Works over matrices", func(t *testing.T) {
		e := fastpow.New[ring.Mat2](ring.Mat2Ring{}, ring.FibonacciQ())

		// Q^10 = [[F11, F10], [F10, F9]]
		assert.True(t, e.Pow(10).Equal(ring.NewMat2(89, 55, 55, 34)))
		assert.True(t, e.Pow(0).Equal(ring.Mat2Ring{}.Identity()))
	})

	t.Run("Returned values do not alias the cache", func(t *testing.T) {
		e := fastpow.New[*big.Int](ring.BigInt{}, big.NewInt(2))

		first := e.Pow(4)
		first.SetInt64(-1)

		assert.Equal(t, int64(16), e.Pow(4).Int64())
	})
}

func TestEngine_CacheReuse(t *testing.T) {
	// Arrange
	r := &countingRing{}
	e := fastpow.New[*big.Int](r, big.NewInt(3))

	// Act 1: 10 = 0b1010 needs squares up to 2^3 (3 squarings) plus 2 accumulations.
	got10 := e.Pow(10)

	// Assert 1
	assert.Equal(t, int64(59049), got10.Int64())
	assert.Equal(t, int64(5), r.calls.Load())
	assert.Equal(t, 4, e.CacheSize())

	// Act 2: 20 = 0b10100 reuses 3^1..3^8 and only squares once more, to 3^16.
	got20 := e.Pow(20)

	// Assert 2
	assert.Equal(t, int64(3486784401), got20.Int64())
	assert.Equal(t, int64(5+1+2), r.calls.Load(), "only the new square and the accumulations should be computed")
	assert.Equal(t, 5, e.CacheSize())

	// Act 3: a repeated query costs accumulations only.
	e.Pow(20)

	// Assert 3
	assert.Equal(t, int64(8+2), r.calls.Load())
}

func TestEngine_MultiplicationsAreLogarithmic(t *testing.T) {
	r := &countingRing{}
	e := fastpow.New[*big.Int](r, big.NewInt(3))

	e.Pow(1<<20 - 1)

	// 19 squarings and 20 accumulations.
	assert.Equal(t, int64(39), r.calls.Load())
}

func TestEngine_Concurrent(t *testing.T) {
	r := &countingRing{}
	e := fastpow.New[*big.Int](r, big.NewInt(3))
	want := new(big.Int).Exp(big.NewInt(3), big.NewInt(1000), nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, 0, want.Cmp(e.Pow(1000)))
		}()
	}
	wg.Wait()

	// 1000 < 2^10, so exactly nine squarings may ever be computed.
	assert.Equal(t, 10, e.CacheSize())
}

func TestEngine_ExponentLaws(t *testing.T) {
	e := fastpow.New[*big.Int](ring.BigInt{}, big.NewInt(7))
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Uint64Range(0, 2000).Draw(t, "a")
		b := rapid.Uint64Range(0, 2000).Draw(t, "b")

		sum := e.Pow(a + b)
		product := new(big.Int).Mul(e.Pow(a), e.Pow(b))
		if sum.Cmp(product) != 0 {
			t.Fatalf("7^(%d+%d) != 7^%d * 7^%d", a, b, a, b)
		}
	})
}
