// Package ring defines the algebraic structures used by the fast exponentiation
// engine: any type with an associative multiplication and an identity element.
package ring

import "math/big"

// Ring is the contract for a multiplicative monoid over values of type T.
//
// Multiply must be associative and must not modify its arguments; the engine
// caches and shares the values it is given. Identity must return a value e
// such that Multiply(e, x) == Multiply(x, e) == x for every x.
type Ring[T any] interface {
	Multiply(a, b T) T
	Identity() T
}

// BigInt is the ring of arbitrary-precision integers under multiplication.
type BigInt struct{}

// Multiply returns a fresh a*b.
func (BigInt) Multiply(a, b *big.Int) *big.Int {
	return new(big.Int).Mul(a, b)
}

// Identity returns 1.
func (BigInt) Identity() *big.Int {
	return big.NewInt(1)
}
