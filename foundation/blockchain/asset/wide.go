package asset

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Wide is an unsigned 256 bit integer with value semantics. It holds the
// quantities that overflow 64 bits such as squared rshares and balance-seconds.
type Wide struct {
	v uint256.Int
}

// WideFrom constructs a Wide from an unsigned value.
func WideFrom(u uint64) Wide {
	var w Wide
	w.v.SetUint64(u)
	return w
}

// WideFromInt constructs a Wide from a signed value, clamping negatives to zero.
func WideFromInt(i int64) Wide {
	if i < 0 {
		return Wide{}
	}
	return WideFrom(uint64(i))
}

// Int returns a copy of the underlying value for use in uint256 arithmetic.
func (w Wide) Int() *uint256.Int {
	c := w.v
	return &c
}

// WideOf wraps a uint256 value.
func WideOf(i *uint256.Int) Wide {
	return Wide{v: *i}
}

// IsZero reports whether the value is zero.
func (w Wide) IsZero() bool {
	return w.v.IsZero()
}

// Cmp compares w and o and returns -1, 0, or +1.
func (w Wide) Cmp(o Wide) int {
	return w.v.Cmp(&o.v)
}

// Add returns w + o.
func (w Wide) Add(o Wide) Wide {
	var r Wide
	r.v.Add(&w.v, &o.v)
	return r
}

// Sub returns w - o, or zero when o is larger than w.
func (w Wide) Sub(o Wide) Wide {
	if w.v.Lt(&o.v) {
		return Wide{}
	}
	var r Wide
	r.v.Sub(&w.v, &o.v)
	return r
}

// Mul returns w * o.
func (w Wide) Mul(o Wide) Wide {
	var r Wide
	r.v.Mul(&w.v, &o.v)
	return r
}

// Div returns floor(w / o). Division by zero returns zero.
func (w Wide) Div(o Wide) Wide {
	var r Wide
	r.v.Div(&w.v, &o.v)
	return r
}

// Int64 returns the value as an int64, saturating at math.MaxInt64.
func (w Wide) Int64() int64 {
	if !w.v.IsUint64() || w.v.Uint64() > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(w.v.Uint64())
}

// Uint64 returns the value as a uint64, saturating at math.MaxUint64.
func (w Wide) Uint64() uint64 {
	if !w.v.IsUint64() {
		return math.MaxUint64
	}
	return w.v.Uint64()
}

// Sqrt returns floor(sqrt(w)).
func (w Wide) Sqrt() Wide {
	var r Wide
	r.v.Sqrt(&w.v)
	return r
}

// String returns the decimal representation.
func (w Wide) String() string {
	return w.v.Dec()
}

// MarshalJSON renders the value as a quoted decimal string.
func (w Wide) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(w.v.Dec())), nil
}

// UnmarshalJSON parses a quoted decimal string.
func (w *Wide) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		s = string(data)
	}
	return w.v.SetFromDecimal(s)
}

// =============================================================================

// Rshares is a signed 256 bit quantity of vote weighted shares, stored in two's
// complement form.
type Rshares struct {
	v uint256.Int
}

// RsharesFrom constructs an Rshares value from a signed amount.
func RsharesFrom(i int64) Rshares {
	var r Rshares
	if i >= 0 {
		r.v.SetUint64(uint64(i))
		return r
	}
	r.v.SetUint64(uint64(-i))
	r.v.Neg(&r.v)
	return r
}

// Add returns r + o.
func (r Rshares) Add(o Rshares) Rshares {
	var s Rshares
	s.v.Add(&r.v, &o.v)
	return s
}

// Sub returns r - o.
func (r Rshares) Sub(o Rshares) Rshares {
	var s Rshares
	s.v.Sub(&r.v, &o.v)
	return s
}

// Sign returns -1, 0, or +1 depending on the sign of r.
func (r Rshares) Sign() int {
	return r.v.Sign()
}

// Positive returns the magnitude of r when it is positive and zero otherwise.
func (r Rshares) Positive() Wide {
	if r.v.Sign() <= 0 {
		return Wide{}
	}
	return Wide{v: r.v}
}

// Abs returns the magnitude of r.
func (r Rshares) Abs() Wide {
	var w Wide
	w.v.Abs(&r.v)
	return w
}

// String returns the signed decimal representation.
func (r Rshares) String() string {
	if r.v.Sign() < 0 {
		var a uint256.Int
		a.Abs(&r.v)
		return "-" + a.Dec()
	}
	return r.v.Dec()
}

// MarshalJSON renders the value as a quoted signed decimal string.
func (r Rshares) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.String())), nil
}

// UnmarshalJSON parses a quoted signed decimal string.
func (r *Rshares) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		s = string(data)
	}

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var v uint256.Int
	if err := v.SetFromDecimal(s); err != nil {
		return err
	}
	if neg {
		v.Neg(&v)
	}

	r.v = v
	return nil
}

// =============================================================================

// ErrMulDivOverflow is returned when a mul-div result does not fit in 64 bits.
var ErrMulDivOverflow = errors.New("mul-div result overflows int64")

// MulDiv returns floor(a * b / c) computed with a full precision intermediate
// product. All inputs must be non-negative and c must be positive.
func MulDiv(a, b, c int64) (int64, error) {
	if a < 0 || b < 0 || c <= 0 {
		return 0, errors.New("mul-div requires non-negative operands and a positive divisor")
	}

	x := uint256.NewInt(uint64(a))
	y := uint256.NewInt(uint64(b))
	d := uint256.NewInt(uint64(c))

	r, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow || !r.IsUint64() || r.Uint64() > math.MaxInt64 {
		return 0, ErrMulDivOverflow
	}

	return int64(r.Uint64()), nil
}

// MustMulDiv is MulDiv for operands already known to be in range, such as a
// fraction of an existing balance. It saturates rather than failing.
func MustMulDiv(a, b, c int64) int64 {
	r, err := MulDiv(a, b, c)
	if err != nil {
		if errors.Is(err, ErrMulDivOverflow) {
			return math.MaxInt64
		}
		return 0
	}
	return r
}

// CeilDiv returns ceil(a / b) for a non-negative a and positive b.
func CeilDiv(a, b int64) int64 {
	if b <= 0 || a <= 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
