package bigint

import (
	"math"
	"math/big"
	"strings"
)

// Int is an arbitrary-precision signed decimal integer stored in its
// canonical lexical form: "0", or an optional '-' followed by digits
// without a leading zero. Policy documents carry numbers as source
// text, so keeping the string as the primary representation avoids a
// parse/serialize round trip on every tree rewrite.
type Int struct {
	digits string
}

// Zero and One are shared constants for the two most common values.
var (
	Zero = Int{digits: "0"}
	One  = Int{digits: "1"}
)

// IsInt reports whether s is a valid decimal integer literal.
func IsInt(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Parse converts a decimal literal into an Int, normalizing the sign
// and stripping leading zeros.
func Parse(s string) (Int, bool) {
	if !IsInt(s) {
		return Zero, false
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return Zero, true
	}
	if neg {
		return Int{digits: "-" + s}, true
	}
	return Int{digits: s}, true
}

// MustParse is Parse for literals already validated by the lexer.
func MustParse(s string) Int {
	v, ok := Parse(s)
	if !ok {
		panic("bigint: invalid integer literal " + s)
	}
	return v
}

// FromInt64 converts a fixed-width integer.
func FromInt64(v int64) Int {
	return Int{digits: big.NewInt(v).String()}
}

// FromSize converts a non-negative length or index.
func FromSize(v int) Int {
	return FromInt64(int64(v))
}

// String returns the canonical lexical form.
func (a Int) String() string {
	if a.digits == "" {
		return "0"
	}
	return a.digits
}

// IsZero reports whether the value is zero.
func (a Int) IsZero() bool {
	return a.digits == "" || a.digits == "0"
}

// IsNegative reports whether the value is below zero.
func (a Int) IsNegative() bool {
	return len(a.digits) > 0 && a.digits[0] == '-'
}

// Int64 converts to a fixed-width integer. The second result is false
// when the value does not fit.
func (a Int) Int64() (int64, bool) {
	v := a.big()
	if !v.IsInt64() {
		return 0, false
	}
	return v.Int64(), true
}

// Size converts to a non-negative int for use as a length or index.
// The second result is false on negative values or overflow.
func (a Int) Size() (int, bool) {
	v, ok := a.Int64()
	if !ok || v < 0 || v > math.MaxInt {
		return 0, false
	}
	return int(v), true
}

// Add returns a + b.
func (a Int) Add(b Int) Int {
	return fromBig(new(big.Int).Add(a.big(), b.big()))
}

// Sub returns a - b.
func (a Int) Sub(b Int) Int {
	return fromBig(new(big.Int).Sub(a.big(), b.big()))
}

// Mul returns a * b.
func (a Int) Mul(b Int) Int {
	return fromBig(new(big.Int).Mul(a.big(), b.big()))
}

// Div returns a / b truncated toward zero. The second result is false
// when b is zero; the caller surfaces the division error.
func (a Int) Div(b Int) (Int, bool) {
	if b.IsZero() {
		return Zero, false
	}
	return fromBig(new(big.Int).Quo(a.big(), b.big())), true
}

// Mod returns a % b with the sign of a. The second result is false
// when b is zero.
func (a Int) Mod(b Int) (Int, bool) {
	if b.IsZero() {
		return Zero, false
	}
	return fromBig(new(big.Int).Rem(a.big(), b.big())), true
}

// Negate returns -a.
func (a Int) Negate() Int {
	if a.IsZero() {
		return Zero
	}
	if a.IsNegative() {
		return Int{digits: a.digits[1:]}
	}
	return Int{digits: "-" + a.String()}
}

// Increment returns a + 1.
func (a Int) Increment() Int {
	return a.Add(One)
}

// Decrement returns a - 1.
func (a Int) Decrement() Int {
	return a.Sub(One)
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater
// than b.
func (a Int) Cmp(b Int) int {
	return a.big().Cmp(b.big())
}

// Equal reports value equality.
func (a Int) Equal(b Int) bool {
	return a.String() == b.String()
}

// Float64 converts to a float, for mixed int/float arithmetic.
func (a Int) Float64() float64 {
	f, _ := new(big.Float).SetInt(a.big()).Float64()
	return f
}

func (a Int) big() *big.Int {
	v, ok := new(big.Int).SetString(a.String(), 10)
	if !ok {
		// digits is kept canonical by every constructor
		panic("bigint: corrupt digit string " + a.digits)
	}
	return v
}

func fromBig(v *big.Int) Int {
	return Int{digits: v.String()}
}
