package bigint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"zero", "0", "0", true},
		{"leading_zeros", "007", "7", true},
		{"negative_zero", "-0", "0", true},
		{"negative", "-42", "-42", true},
		{"plus_sign", "+15", "15", true},
		{"big", "123456789012345678901234567890", "123456789012345678901234567890", true},
		{"empty", "", "", false},
		{"float", "1.5", "", false},
		{"garbage", "12a", "", false},
		{"bare_sign", "-", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v.String())
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	a := MustParse("123456789012345678901234567890")
	b := MustParse("987654321098765432109876543210")

	assert.Equal(t, "1111111110111111111011111111100", a.Add(b).String())
	assert.Equal(t, "-864197532086419753208641975320", a.Sub(b).String())
	assert.Equal(t, "648", MustParse("72").Mul(MustParse("9")).String())

	q, ok := b.Div(a)
	require.True(t, ok)
	assert.Equal(t, "8", q.String())

	r, ok := b.Mod(a)
	require.True(t, ok)
	assert.Equal(t, "9000000000900000000090", r.String())
}

func TestDivByZero(t *testing.T) {
	_, ok := One.Div(Zero)
	assert.False(t, ok)
	_, ok = One.Mod(Zero)
	assert.False(t, ok)
}

func TestTruncatedDivision(t *testing.T) {
	q, ok := MustParse("-7").Div(MustParse("2"))
	require.True(t, ok)
	assert.Equal(t, "-3", q.String())

	r, ok := MustParse("-7").Mod(MustParse("2"))
	require.True(t, ok)
	assert.Equal(t, "-1", r.String())
}

func TestConversions(t *testing.T) {
	v, ok := MustParse("9223372036854775807").Int64()
	require.True(t, ok)
	assert.Equal(t, int64(9223372036854775807), v)

	_, ok = MustParse("9223372036854775808").Int64()
	assert.False(t, ok)

	_, ok = MustParse("-1").Size()
	assert.False(t, ok)

	n, ok := MustParse("12").Size()
	require.True(t, ok)
	assert.Equal(t, 12, n)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, MustParse("-10").Cmp(MustParse("2")))
	assert.Equal(t, 1, MustParse("100").Cmp(MustParse("99")))
	assert.Equal(t, 0, MustParse("007").Cmp(MustParse("7")))
	assert.True(t, MustParse("7").Equal(MustParse("+7")))
}

func TestNegate(t *testing.T) {
	assert.Equal(t, "-5", MustParse("5").Negate().String())
	assert.Equal(t, "5", MustParse("-5").Negate().String())
	assert.Equal(t, "0", Zero.Negate().String())
}

func TestIncrementDecrement(t *testing.T) {
	assert.Equal(t, "1", Zero.Increment().String())
	assert.Equal(t, "-1", Zero.Decrement().String())
	assert.Equal(t, "10", MustParse("9").Increment().String())
}
