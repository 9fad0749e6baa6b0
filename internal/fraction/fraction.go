// Package fraction provides exact rational arithmetic for firing counts.
//
// A Fraction is always kept in lowest terms with a positive denominator.
// Arithmetic that would overflow int64 returns ErrOverflow instead of
// wrapping.
package fraction

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

var (
	// ErrOverflow reports an intermediate result outside int64.
	ErrOverflow = errors.New("fraction: int64 overflow")

	// ErrDivideByZero reports a zero denominator or divisor.
	ErrDivideByZero = errors.New("fraction: division by zero")
)

// Fraction is an exact ratio num/den in lowest terms, den > 0.
// The zero value is not valid; use Zero.
type Fraction struct {
	num int64
	den int64
}

// Common values.
var (
	Zero = Fraction{num: 0, den: 1}
	One  = Fraction{num: 1, den: 1}
)

// New returns num/den reduced to lowest terms.
func New(num, den int64) (Fraction, error) {
	if den == 0 {
		return Fraction{}, ErrDivideByZero
	}
	if den < 0 {
		if num == math.MinInt64 || den == math.MinInt64 {
			return Fraction{}, ErrOverflow
		}
		num, den = -num, -den
	}
	g := GCD(num, den)
	return Fraction{num: num / g, den: den / g}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or with known-valid inputs.
func MustNew(num, den int64) Fraction {
	f, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return f
}

// FromInt returns n/1.
func FromInt(n int64) Fraction {
	return Fraction{num: n, den: 1}
}

// Num returns the numerator.
func (f Fraction) Num() int64 { return f.num }

// Den returns the denominator, always positive.
func (f Fraction) Den() int64 { return f.den }

// IsZero reports whether f == 0.
func (f Fraction) IsZero() bool { return f.num == 0 }

// IsInteger reports whether the denominator is 1.
func (f Fraction) IsInteger() bool { return f.den == 1 }

// Equal reports exact equality. Both sides are in lowest terms, so
// comparing components is sufficient.
func (f Fraction) Equal(g Fraction) bool {
	return f.num == g.num && f.den == g.den
}

// Add returns f + g.
func (f Fraction) Add(g Fraction) (Fraction, error) {
	l, err := LCM(f.den, g.den)
	if err != nil {
		return Fraction{}, err
	}
	a, err := mul(f.num, l/f.den)
	if err != nil {
		return Fraction{}, err
	}
	b, err := mul(g.num, l/g.den)
	if err != nil {
		return Fraction{}, err
	}
	sum, err := add(a, b)
	if err != nil {
		return Fraction{}, err
	}
	return New(sum, l)
}

// Sub returns f - g.
func (f Fraction) Sub(g Fraction) (Fraction, error) {
	if g.num == math.MinInt64 {
		return Fraction{}, ErrOverflow
	}
	return f.Add(Fraction{num: -g.num, den: g.den})
}

// Mul returns f * g. Factors are cross-reduced first to keep
// intermediates small.
func (f Fraction) Mul(g Fraction) (Fraction, error) {
	g1 := GCD(f.num, g.den)
	g2 := GCD(g.num, f.den)
	num, err := mul(f.num/g1, g.num/g2)
	if err != nil {
		return Fraction{}, err
	}
	den, err := mul(f.den/g2, g.den/g1)
	if err != nil {
		return Fraction{}, err
	}
	return New(num, den)
}

// Div returns f / g.
func (f Fraction) Div(g Fraction) (Fraction, error) {
	if g.num == 0 {
		return Fraction{}, ErrDivideByZero
	}
	return f.Mul(Fraction{num: g.den, den: g.num})
}

// MulInt returns f * n.
func (f Fraction) MulInt(n int64) (Fraction, error) {
	return f.Mul(FromInt(n))
}

// DivInt returns f / n.
func (f Fraction) DivInt(n int64) (Fraction, error) {
	return f.Div(FromInt(n))
}

// Int returns the value as an integer. It fails unless IsInteger.
func (f Fraction) Int() (int64, error) {
	if f.den != 1 {
		return 0, fmt.Errorf("fraction: %s is not an integer", f)
	}
	return f.num, nil
}

// String formats the fraction as "n" or "n/d".
func (f Fraction) String() string {
	if f.den == 1 {
		return fmt.Sprintf("%d", f.num)
	}
	return fmt.Sprintf("%d/%d", f.num, f.den)
}

// GCD returns the greatest common divisor of |a| and |b|. GCD(0, 0) is 1
// so that it is always safe to divide by.
func GCD(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// LCM returns the least common multiple of two positive integers.
func LCM(a, b int64) (int64, error) {
	if a <= 0 || b <= 0 {
		return 0, fmt.Errorf("fraction: LCM of non-positive values %d, %d", a, b)
	}
	return mul(a/GCD(a, b), b)
}

func mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	neg := (a < 0) != (b < 0)
	ua, ub := abs(a), abs(b)
	hi, lo := bits.Mul64(ua, ub)
	if hi != 0 || lo > math.MaxInt64 {
		if neg && hi == 0 && lo == uint64(math.MaxInt64)+1 {
			return math.MinInt64, nil
		}
		return 0, ErrOverflow
	}
	if neg {
		return -int64(lo), nil
	}
	return int64(lo), nil
}

func add(a, b int64) (int64, error) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, ErrOverflow
	}
	return s, nil
}

func abs(a int64) uint64 {
	if a < 0 {
		return uint64(-(a + 1)) + 1
	}
	return uint64(a)
}
