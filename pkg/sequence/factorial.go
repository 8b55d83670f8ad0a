package sequence

import (
	"fmt"
	"math/big"
	"math/rand"
)

// Factorial returns n! by splitting it into a product of odd-number ranges
// and a power of two. With bounds b_k = n >> k, n! is
//
//	prod_k oddsProduct(1..b_k) * 2^(b_1 + b_2 + ...)
//
// which keeps operands balanced and most multiplications large-by-large.
func Factorial(n int) (*big.Int, error) {
	if n < 2 {
		return big.NewInt(1), nil
	}

	var bounds []int
	for b := n; b > 0; b >>= 1 {
		bounds = append(bounds, b)
	}

	prod, oddProd := big.NewInt(1), big.NewInt(1)
	shift := uint(0)
	for i := len(bounds) - 1; i > 0; i-- {
		oddProd.Mul(oddProd, oddsProduct(nearestOdd(bounds[i])+2, nearestOdd(bounds[i-1])))
		prod.Mul(prod, oddProd)
		shift += uint(bounds[i])
	}
	return prod.Lsh(prod, shift), nil
}

// FactorialNaive returns n! by multiplying 2..n in turn.
func FactorialNaive(n int) (*big.Int, error) {
	prod := big.NewInt(1)
	var k big.Int
	for i := 2; i <= n; i++ {
		prod.Mul(prod, k.SetInt64(int64(i)))
	}
	return prod, nil
}

// nearestOdd returns n if n is odd, n-1 otherwise.
func nearestOdd(n int) int {
	return n - (n+1)%2
}

// oddsProduct returns low * (low+2) * ... * high for odd bounds.
func oddsProduct(low, high int) *big.Int {
	switch {
	case high < low:
		return big.NewInt(1)
	case high == low:
		return big.NewInt(int64(low))
	case high == low+2:
		return new(big.Int).Mul(big.NewInt(int64(low)), big.NewInt(int64(high)))
	}
	m := nearestOdd((low + high) / 2)
	return new(big.Int).Mul(oddsProduct(low, m), oddsProduct(m+2, high))
}

const primeCertainty = 20

// RandomPrime returns a probable prime of exactly bits bits. The generator is
// seeded with zero on every call, so the answer for a given size is stable.
func RandomPrime(bits int) (*big.Int, error) {
	if bits < 2 {
		return nil, fmt.Errorf("prime size must be at least 2 bits")
	}
	rnd := rand.New(rand.NewSource(0))
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	p := new(big.Int)
	for {
		p.Rand(rnd, limit)
		p.SetBit(p, bits-1, 1)
		if bits > 2 {
			p.SetBit(p, 0, 1)
		}
		if p.ProbablyPrime(primeCertainty) {
			return p, nil
		}
	}
}
