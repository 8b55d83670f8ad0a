package sequence

import (
	"math/big"

	"github.com/illmade-knight/go-intseq/pkg/fastpow"
	"github.com/illmade-knight/go-intseq/pkg/primes"
	"github.com/illmade-knight/go-intseq/pkg/ring"
)

// Kinds used by the built-in implementations.
const (
	KindGo      = "go"
	KindGoNaive = "go-naive"
)

// Engines holds the process-wide caches behind the built-in sequences. One
// Engines value should back every adapter in a process so that all requests
// share the memoized powers and the prime table.
type Engines struct {
	Fibonacci *fastpow.Engine[ring.Mat2]
	Pow3      *fastpow.Engine[*big.Int]
	Primes    *primes.Generator
}

// NewEngines creates empty caches.
func NewEngines() *Engines {
	return &Engines{
		Fibonacci: fastpow.New[ring.Mat2](ring.Mat2Ring{}, ring.FibonacciQ()),
		Pow3:      fastpow.New[*big.Int](ring.BigInt{}, big.NewInt(3)),
		Primes:    primes.NewGenerator(),
	}
}

// Fib returns F(i) using the matrix identity Q^(i-1) = [[F(i), ...], ...].
func (e *Engines) Fib(i int) (*big.Int, error) {
	if i == 0 {
		return big.NewInt(0), nil
	}
	return e.Fibonacci.Pow(uint64(i - 1)).A00, nil
}

// Pow3Fast returns 3^i by binary exponentiation.
func (e *Engines) Pow3Fast(i int) (*big.Int, error) {
	return e.Pow3.Pow(uint64(i)), nil
}

// Prime returns the i-th prime, counting from zero.
func (e *Engines) Prime(i int) (*big.Int, error) {
	p, err := e.Primes.Get(i)
	if err != nil {
		return nil, err
	}
	return big.NewInt(int64(p)), nil
}

// FibNaive returns F(i) by iterating the recurrence.
func FibNaive(i int) (*big.Int, error) {
	a, b := big.NewInt(0), big.NewInt(1)
	for ; i > 0; i-- {
		a.Add(a, b)
		a, b = b, a
	}
	return a, nil
}

// Pow2 returns 2^i with a bit shift.
func Pow2(i int) (*big.Int, error) {
	return new(big.Int).Lsh(big.NewInt(1), uint(i)), nil
}

// Pow3Naive returns 3^i by i repeated multiplications.
func Pow3Naive(i int) (*big.Int, error) {
	three := big.NewInt(3)
	res := big.NewInt(1)
	for ; i > 0; i-- {
		res.Mul(res, three)
	}
	return res, nil
}

const fibDescription = `Fibonacci numbers, defined by equalities
    fib(i) = fib(i-1) + fib(i-2), fib(0) = 0, fib(1) = 1.
`

const fibReferences = `
See http://en.wikipedia.org/wiki/Fibonacci_number, http://oeis.org/A000045`

const facDescription = `Factorials
    n! = 1 * 2 * ... * n;  0! = 1.
`

// Definitions returns the built-in sequence definitions backed by e.
func (e *Engines) Definitions() []Definition {
	return []Definition{
		{
			Name:  Name{ID: "fib", Kind: KindGo},
			Title: "Fibonacci numbers (Go)",
			Description: fibDescription +
				"This implementation in Go uses 2x2 matrices and fast exponentiation for calculations.\n" +
				fibReferences,
			MaxIndex: 2_000_000,
			Compute:  e.Fib,
		},
		{
			Name:  Name{ID: "fib", Kind: KindGoNaive},
			Title: "Fibonacci numbers, naive (Go)",
			Description: fibDescription +
				"This implementation in Go uses the definition for calculations, which is rather ineffective.\n" +
				fibReferences,
			MaxIndex: 500_000,
			Compute:  FibNaive,
		},
		{
			Name:        Name{ID: "pow2", Kind: KindGo},
			Title:       "Powers of 2 (Go)",
			Description: "Powers of two, implemented with the bit shift operation:\n    pow2(i) = 1 << i.",
			MaxIndex:    1_000_000,
			Compute:     Pow2,
		},
		{
			Name:        Name{ID: "pow3", Kind: KindGoNaive},
			Title:       "Powers of 3, naive (Go)",
			Description: "Powers of three, implemented with the repeated multiplications.",
			MaxIndex:    1_000_000,
			Compute:     Pow3Naive,
		},
		{
			Name:        Name{ID: "pow3", Kind: KindGo},
			Title:       "Powers of 3 (Go)",
			Description: "Powers of three, implemented with the fast exponentiation.",
			MaxIndex:    1_000_000,
			Compute:     e.Pow3Fast,
		},
		{
			Name:        Name{ID: "primes", Kind: KindGo},
			Title:       "Primes (Go)",
			Description: "Prime numbers implemented using the segmented sieve of Eratosthenes.",
			MaxIndex:    500_000,
			Compute:     e.Prime,
		},
		{
			Name:        Name{ID: "fac", Kind: KindGo},
			Title:       "Factorials (Go)",
			Description: facDescription + "This implementation in Go uses recursive splitting technique.",
			MaxIndex:    100_000,
			Compute:     Factorial,
		},
		{
			Name:        Name{ID: "fac", Kind: KindGoNaive},
			Title:       "Factorials, naive (Go)",
			Description: facDescription + "This implementation in Go uses multiplication and is rather slow for big n.",
			MaxIndex:    100_000,
			Compute:     FactorialNaive,
		},
		{
			Name:  Name{ID: "rnd-prime", Kind: KindGo},
			Title: "Random primes (Go)",
			Description: "Returns probably prime number with the given bit length.\n" +
				"The generator is reseeded for every request, so identical requests get identical answers.",
			MaxIndex: 5_000,
			Compute:  RandomPrime,
		},
	}
}
