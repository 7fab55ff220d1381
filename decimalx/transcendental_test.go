package decimalx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asmm-quoter/errs"
)

const tightTol = "1e-27"

func TestSqrt(t *testing.T) {
	tests := []struct {
		x, want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"4", "2"},
		{"0.04", "0.2"},
		{"2", "1.4142135623730950488016887242097"},
		{"3", "1.7320508075688772935274463415059"},
		{"0.0001", "0.01"},
		{"1e20", "10000000000"},
		{"0.000000000000000000000000000001", "0.000000000000001"},
	}
	for _, tt := range tests {
		got, err := Sqrt(d(tt.x))
		require.NoError(t, err, tt.x)
		assertClose(t, tt.want, got, tightTol)
	}
}

func TestSqrtExactSquaresStayExact(t *testing.T) {
	got, err := Sqrt(d("0.04"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("0.2")))
}

func TestSqrtDomain(t *testing.T) {
	_, err := Sqrt(d("-0.0001"))
	assert.ErrorIs(t, err, errs.ErrDomain)

	_, err = Sqrt(MaxValue.Mul(Two))
	assert.ErrorIs(t, err, errs.ErrOverflow)
}

func TestLn(t *testing.T) {
	tests := []struct {
		x, want string
	}{
		{"1", "0"},
		{"2", "0.69314718055994530941723212145818"},
		{"10", "2.3025850929940456840179914546844"},
		{"0.5", "-0.69314718055994530941723212145818"},
		{"1.0666666666666666666666666667", "0.064538521137571171672923915684"},
		{"100", "4.6051701859880913680359829093687"},
		{"0.001", "-6.9077552789821370520539743640531"},
		{"2.718281828459045235360287471352662", "1"},
	}
	for _, tt := range tests {
		got, err := Ln(d(tt.x))
		require.NoError(t, err, tt.x)
		assertClose(t, tt.want, got, tightTol)
	}
}

func TestLnDomain(t *testing.T) {
	_, err := Ln(Zero)
	assert.ErrorIs(t, err, errs.ErrDomain)

	_, err = Ln(d("-1"))
	assert.ErrorIs(t, err, errs.ErrDomain)
}

func TestExp(t *testing.T) {
	tests := []struct {
		x, want, tol string
	}{
		{"0", "1", tightTol},
		{"1", "2.7182818284590452353602874713527", tightTol},
		{"-1", "0.36787944117144232159552377016", tightTol},
		{"0.5", "1.6487212707001281468486507878142", tightTol},
		{"10", "22026.465794806716516957900645284", "1e-23"},
		{"-20", "0.0000000020611536224385578279659", tightTol},
	}
	for _, tt := range tests {
		got, err := Exp(d(tt.x))
		require.NoError(t, err, tt.x)
		assertClose(t, tt.want, got, tt.tol)
	}
}

func TestExpBounds(t *testing.T) {
	_, err := Exp(d("67"))
	assert.ErrorIs(t, err, errs.ErrOverflow)

	got, err := Exp(d("-150"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	big, err := Exp(d("66"))
	require.NoError(t, err)
	assert.True(t, big.LessThan(MaxValue))
}

func TestExpLnRoundTrip(t *testing.T) {
	for _, s := range []string{"0.2", "1.5", "99.35", "100.6454", "12345.678"} {
		l, err := Ln(d(s))
		require.NoError(t, err)
		back, err := Exp(l)
		require.NoError(t, err)
		// relative 1e-26 of the magnitude
		tol := d(s).Mul(d("1e-26"))
		assert.True(t, back.Sub(d(s)).Abs().LessThanOrEqual(tol), "exp(ln(%s)) = %s", s, back)
	}
}

func TestTranscendentalDeterministic(t *testing.T) {
	a, _ := Ln(d("1.0666666666666666666666666667"))
	b, _ := Ln(d("1.0666666666666666666666666667"))
	assert.Equal(t, a.String(), b.String())
}

func BenchmarkLn(b *testing.B) {
	x := d("1.0666666666666666666666666667")
	for i := 0; i < b.N; i++ {
		_, _ = Ln(x)
	}
}

func BenchmarkSqrt(b *testing.B) {
	x := d("0.0016")
	for i := 0; i < b.N; i++ {
		_, _ = Sqrt(x)
	}
}

func BenchmarkExp(b *testing.B) {
	x := d("0.35")
	for i := 0; i < b.N; i++ {
		_, _ = Exp(x)
	}
}
