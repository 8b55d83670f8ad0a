package ring

import (
	"fmt"
	"math/big"
)

// Mat2 is a 2x2 matrix of arbitrary-precision integers:
//
//	[ A00 A01 ]
//	[ A10 A11 ]
//
// Values are treated as immutable once constructed.
type Mat2 struct {
	A00, A01, A10, A11 *big.Int
}

// NewMat2 builds a matrix from small integer entries.
func NewMat2(a00, a01, a10, a11 int64) Mat2 {
	return Mat2{
		A00: big.NewInt(a00),
		A01: big.NewInt(a01),
		A10: big.NewInt(a10),
		A11: big.NewInt(a11),
	}
}

// FibonacciQ is the matrix [[1,1],[1,0]]. Its n-th power is
// [[F(n+1), F(n)], [F(n), F(n-1)]].
func FibonacciQ() Mat2 {
	return NewMat2(1, 1, 1, 0)
}

// Equal reports whether two matrices have the same entries.
func (m Mat2) Equal(o Mat2) bool {
	return m.A00.Cmp(o.A00) == 0 &&
		m.A01.Cmp(o.A01) == 0 &&
		m.A10.Cmp(o.A10) == 0 &&
		m.A11.Cmp(o.A11) == 0
}

func (m Mat2) String() string {
	return fmt.Sprintf("[%s, %s, %s, %s]", m.A00, m.A01, m.A10, m.A11)
}

// Mat2Ring is the (non-commutative) ring of 2x2 integer matrices.
type Mat2Ring struct{}

// Multiply returns the matrix product a*b.
func (Mat2Ring) Multiply(a, b Mat2) Mat2 {
	return Mat2{
		A00: dot(a.A00, b.A00, a.A01, b.A10),
		A01: dot(a.A00, b.A01, a.A01, b.A11),
		A10: dot(a.A10, b.A00, a.A11, b.A10),
		A11: dot(a.A10, b.A01, a.A11, b.A11),
	}
}

// Identity returns [[1,0],[0,1]].
func (Mat2Ring) Identity() Mat2 {
	return NewMat2(1, 0, 0, 1)
}

// dot computes x1*y1 + x2*y2 into a new integer.
func dot(x1, y1, x2, y2 *big.Int) *big.Int {
	r := new(big.Int).Mul(x1, y1)
	return r.Add(r, new(big.Int).Mul(x2, y2))
}
