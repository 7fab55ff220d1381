package decimalx

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asmm-quoter/errs"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertClose(t *testing.T, want string, got decimal.Decimal, tol string) {
	t.Helper()
	diff := got.Sub(d(want)).Abs()
	if diff.GreaterThan(d(tol)) {
		t.Fatalf("got %s, want %s (tolerance %s, diff %s)", got, want, tol, diff)
	}
}

func TestCheckOverflow(t *testing.T) {
	_, err := Check("x", MaxValue)
	require.NoError(t, err)

	_, err = Check("x", MaxValue.Add(One))
	assert.ErrorIs(t, err, errs.ErrOverflow)

	_, err = Check("x", MaxValue.Neg().Sub(One))
	assert.ErrorIs(t, err, errs.ErrOverflow)
}

func TestArithmetic(t *testing.T) {
	sum, err := Add(d("1.25"), d("2.5"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(d("3.75")))

	diff, err := Sub(d("1"), d("2.5"))
	require.NoError(t, err)
	assert.True(t, diff.Equal(d("-1.5")))

	prod, err := Mul(d("0.1"), d("0.2"))
	require.NoError(t, err)
	assert.True(t, prod.Equal(d("0.02")))

	q, err := Div(One, d("3"))
	require.NoError(t, err)
	assert.Equal(t, "0.3333333333333333333333333333", q.String())

	_, err = Add(MaxValue, One)
	assert.ErrorIs(t, err, errs.ErrOverflow)

	_, err = Mul(MaxValue, Two)
	assert.ErrorIs(t, err, errs.ErrOverflow)
}

func TestMulRoundsToPrecision(t *testing.T) {
	a := d("0.00000000000000000000000000011") // 29 fractional digits
	got, err := Mul(a, d("1"))
	require.NoError(t, err)
	assert.LessOrEqual(t, -got.Exponent(), Precision)
}

func TestDivByZero(t *testing.T) {
	_, err := Div(One, Zero)
	assert.ErrorIs(t, err, errs.ErrDomain)
}

func TestProduct(t *testing.T) {
	p, err := Product(d("0.1"), d("0.04"), d("2"))
	require.NoError(t, err)
	assert.True(t, p.Equal(d("0.008")))

	empty, err := Product()
	require.NoError(t, err)
	assert.True(t, empty.Equal(One))
}

func TestPowi(t *testing.T) {
	tests := []struct {
		x    string
		n    int
		want string
	}{
		{"0.2", 2, "0.04"},
		{"2", 10, "1024"},
		{"1.5", 0, "1"},
		{"2", -2, "0.25"},
		{"-3", 3, "-27"},
	}
	for _, tt := range tests {
		got, err := Powi(d(tt.x), tt.n)
		require.NoError(t, err)
		assert.True(t, got.Equal(d(tt.want)), "%s^%d = %s", tt.x, tt.n, got)
	}

	_, err := Powi(d("10"), 40)
	assert.ErrorIs(t, err, errs.ErrOverflow)

	_, err = Powi(Zero, -1)
	assert.ErrorIs(t, err, errs.ErrDomain)
}

func TestHalfMaxMin(t *testing.T) {
	assert.True(t, Half(d("1.2907")).Equal(d("0.64535")))
	assert.True(t, Max(d("1"), d("2")).Equal(d("2")))
	assert.True(t, Min(d("1"), d("2")).Equal(d("1")))
}

func TestMillisToUnit(t *testing.T) {
	got, err := MillisToUnit(3_600_000, 31_536_000_000)
	require.NoError(t, err)
	assertClose(t, "0.000114155251141552511415525114", got, "1e-28")

	one, err := MillisToUnit(5, 5)
	require.NoError(t, err)
	assert.True(t, one.Equal(One))

	_, err = MillisToUnit(1, 0)
	assert.True(t, errors.Is(err, errs.ErrDomain))
}

func TestFromUint64(t *testing.T) {
	got := FromUint64(18446744073709551615)
	assert.Equal(t, "18446744073709551615", got.String())
}
