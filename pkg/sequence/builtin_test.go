package sequence_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_KnownValues(t *testing.T) {
	ctx := context.Background()
	reg, err := sequence.NewDefaultRegistry(sequence.NewEngines(), nil)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		index int
		want  sequence.Response
	}{
		{"fib.go", 0, sequence.IntResponse(0)},
		{"fib.go", 1, sequence.IntResponse(1)},
		{"fib.go", 2, sequence.IntResponse(1)},
		{"fib.go", 10, sequence.IntResponse(55)},
		{"fib.go", 50, sequence.IntResponse(12586269025)},
		{"fib.go", 100, sequence.TextResponse("354224848179261915075")},
		{"fib.go-naive", 100, sequence.TextResponse("354224848179261915075")},
		{"pow2.go", 0, sequence.IntResponse(1)},
		{"pow2.go", 62, sequence.IntResponse(1 << 62)},
		{"pow2.go", 64, sequence.TextResponse("18446744073709551616")},
		{"pow3.go", 4, sequence.IntResponse(81)},
		{"pow3.go-naive", 4, sequence.IntResponse(81)},
		{"primes.go", 0, sequence.IntResponse(2)},
		{"primes.go", 10, sequence.IntResponse(31)},
		{"primes.go", 1000, sequence.IntResponse(7927)},
		{"fac.go", 0, sequence.IntResponse(1)},
		{"fac.go", 1, sequence.IntResponse(1)},
		{"fac.go", 10, sequence.IntResponse(3628800)},
		{"fac.go", 20, sequence.IntResponse(2432902008176640000)},
		{"fac.go", 21, sequence.TextResponse("51090942171709440000")},
		{"fac.go-naive", 21, sequence.TextResponse("51090942171709440000")},
		{"rnd-prime.go", 1, sequence.ErrorResponse("prime size must be at least 2 bits")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := reg.Lookup(tc.name)
			require.NoError(t, err)

			assert.Equal(t, tc.want, s.GetNumber(ctx, tc.index), "index %d", tc.index)
		})
	}
}

func TestBuiltins_Bounds(t *testing.T) {
	ctx := context.Background()
	reg, err := sequence.NewDefaultRegistry(sequence.NewEngines(), nil)
	require.NoError(t, err)

	for _, s := range reg.List() {
		t.Run(s.Name().String(), func(t *testing.T) {
			assert.Equal(t, "Index cannot be negative", s.GetNumber(ctx, -1).Message)
			assert.Equal(t, "Index is too big", s.GetNumber(ctx, s.MaxIndex()+1).Message)
		})
	}
}

func TestBuiltins_MaxIndexSucceeds(t *testing.T) {
	// Arrange: the fast implementations run at their real bound; the
	// quadratic ones are capped so the test stays quick.
	ctx := context.Background()
	overrides := map[string]int{
		"fib.go-naive":  5_000,
		"pow3.go-naive": 5_000,
		"fac.go-naive":  5_000,
		"rnd-prime.go":  256,
	}
	if testing.Short() {
		overrides["fib.go"] = 10_000
		overrides["pow3.go"] = 10_000
		overrides["fac.go"] = 5_000
	}
	reg, err := sequence.NewDefaultRegistry(sequence.NewEngines(), overrides)
	require.NoError(t, err)

	for _, s := range reg.List() {
		t.Run(s.Name().String(), func(t *testing.T) {
			// Act
			resp := s.GetNumber(ctx, s.MaxIndex())

			// Assert
			require.False(t, resp.IsError(), "index %d: %s", s.MaxIndex(), resp.Message)
			assert.NotEmpty(t, resp.Value())
		})
	}
}

func TestBuiltins_ImplementationsAgree(t *testing.T) {
	engines := sequence.NewEngines()

	t.Run("Fibonacci matrix and recurrence", func(t *testing.T) {
		for i := 0; i <= 500; i++ {
			fast, err := engines.Fib(i)
			require.NoError(t, err)
			naive, err := sequence.FibNaive(i)
			require.NoError(t, err)
			require.Zero(t, fast.Cmp(naive), "fib(%d)", i)
		}
	})

	t.Run("Fibonacci recurrence holds", func(t *testing.T) {
		for i := 2; i <= 300; i++ {
			a, _ := engines.Fib(i - 2)
			b, _ := engines.Fib(i - 1)
			c, _ := engines.Fib(i)
			require.Zero(t, new(big.Int).Add(a, b).Cmp(c), "fib(%d)", i)
		}
	})

	t.Run("Powers of three", func(t *testing.T) {
		for i := 0; i <= 200; i++ {
			fast, err := engines.Pow3Fast(i)
			require.NoError(t, err)
			naive, err := sequence.Pow3Naive(i)
			require.NoError(t, err)
			require.Zero(t, fast.Cmp(naive), "pow3(%d)", i)
		}
	})

	t.Run("Powers of two", func(t *testing.T) {
		want := big.NewInt(1)
		for i := 0; i <= 64; i++ {
			got, err := sequence.Pow2(i)
			require.NoError(t, err)
			require.Zero(t, got.Cmp(want), "pow2(%d)", i)
			want.Lsh(want, 1)
		}
	})

	t.Run("Factorial splitting and multiplication", func(t *testing.T) {
		for i := 0; i <= 300; i++ {
			fast, err := sequence.Factorial(i)
			require.NoError(t, err)
			naive, err := sequence.FactorialNaive(i)
			require.NoError(t, err)
			require.Zero(t, fast.Cmp(naive), "fac(%d)", i)
		}
	})
}

func TestRandomPrime(t *testing.T) {
	t.Run("Deterministic for identical requests", func(t *testing.T) {
		a, err := sequence.RandomPrime(128)
		require.NoError(t, err)
		b, err := sequence.RandomPrime(128)
		require.NoError(t, err)

		assert.Zero(t, a.Cmp(b))
	})

	t.Run("Has the requested size and is prime", func(t *testing.T) {
		for _, bits := range []int{2, 3, 8, 64, 256} {
			p, err := sequence.RandomPrime(bits)
			require.NoError(t, err)
			assert.Equal(t, bits, p.BitLen(), "bits %d", bits)
			assert.True(t, p.ProbablyPrime(20), "bits %d", bits)
		}
	})

	t.Run("Rejects tiny sizes", func(t *testing.T) {
		_, err := sequence.RandomPrime(1)
		assert.EqualError(t, err, "prime size must be at least 2 bits")
	})
}
