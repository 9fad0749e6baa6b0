package fraction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizes(t *testing.T) {
	tests := []struct {
		num, den   int64
		wantN      int64
		wantD      int64
		wantString string
	}{
		{2, 4, 1, 2, "1/2"},
		{-2, 4, -1, 2, "-1/2"},
		{2, -4, -1, 2, "-1/2"},
		{0, 7, 0, 1, "0"},
		{6, 3, 2, 1, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.wantString, func(t *testing.T) {
			f, err := New(tt.num, tt.den)
			require.NoError(t, err)
			assert.Equal(t, tt.wantN, f.Num())
			assert.Equal(t, tt.wantD, f.Den())
			assert.Equal(t, tt.wantString, f.String())
		})
	}
}

func TestNewRejectsZeroDenominator(t *testing.T) {
	_, err := New(1, 0)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestArithmetic(t *testing.T) {
	half := MustNew(1, 2)
	third := MustNew(1, 3)

	sum, err := half.Add(third)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustNew(5, 6)))

	diff, err := half.Sub(third)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustNew(1, 6)))

	prod, err := half.Mul(third)
	require.NoError(t, err)
	assert.True(t, prod.Equal(MustNew(1, 6)))

	quot, err := half.Div(third)
	require.NoError(t, err)
	assert.True(t, quot.Equal(MustNew(3, 2)))

	_, err = half.Div(Zero)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulCrossReducesBeforeOverflow(t *testing.T) {
	big := MustNew(math.MaxInt64, 3)
	f, err := big.Mul(MustNew(3, math.MaxInt64))
	require.NoError(t, err)
	assert.True(t, f.Equal(One))
}

func TestOverflowIsReported(t *testing.T) {
	big := FromInt(math.MaxInt64)
	_, err := big.MulInt(2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = big.Add(One)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestInt(t *testing.T) {
	n, err := MustNew(8, 4).Int()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = MustNew(1, 2).Int()
	assert.Error(t, err)
}

func TestGCDAndLCM(t *testing.T) {
	assert.Equal(t, int64(6), GCD(12, 18))
	assert.Equal(t, int64(6), GCD(-12, 18))
	assert.Equal(t, int64(1), GCD(0, 0))

	l, err := LCM(4, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(12), l)

	_, err = LCM(0, 6)
	assert.Error(t, err)
}
