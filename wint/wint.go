// Package wint implements fixed-width two's-complement scalar values.
//
// A Val is a bit pattern interpreted under a Type, which carries a width
// between 1 and 64 bits, a signedness, and a pointer flag. All arithmetic
// is exact: operations that can leave the representable domain report the
// direction of the overflow and return the truncated (wrapped) pattern, so
// callers choose between wrapping and saturating semantics themselves.
package wint

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Type describes the domain a Val lives in.
type Type struct {
	Bits    uint8
	Signed  bool
	Pointer bool
}

// Common types. Bool is the 1-bit unsigned type; its only values are 0 and 1.
var (
	Bool   = Type{Bits: 1}
	Int8   = Type{Bits: 8, Signed: true}
	Int16  = Type{Bits: 16, Signed: true}
	Int32  = Type{Bits: 32, Signed: true}
	Int64  = Type{Bits: 64, Signed: true}
	Uint8  = Type{Bits: 8}
	Uint16 = Type{Bits: 16}
	Uint32 = Type{Bits: 32}
	Uint64 = Type{Bits: 64}
	Ptr    = Type{Bits: 64, Pointer: true}
)

func (t Type) valid() bool { return t.Bits >= 1 && t.Bits <= 64 }

func (t Type) mask() uint64 {
	if t.Bits == 64 {
		return ^uint64(0)
	}
	return 1<<t.Bits - 1
}

// Min returns the smallest representable value of t.
func (t Type) Min() Val {
	if t.Signed {
		return Val{t, 1 << (t.Bits - 1)}
	}
	return Val{t, 0}
}

// Max returns the largest representable value of t.
func (t Type) Max() Val {
	if t.Signed {
		return Val{t, t.mask() >> 1}
	}
	return Val{t, t.mask()}
}

func (t Type) String() string {
	switch {
	case t.Pointer:
		return "ptr"
	case t.Bits == 1 && !t.Signed:
		return "bool"
	case t.Signed:
		return fmt.Sprintf("i%d", t.Bits)
	default:
		return fmt.Sprintf("u%d", t.Bits)
	}
}

// TypeFromString parses the textual names used by the IR: i8..i64, u8..u64,
// bool and ptr.
func TypeFromString(s string) (Type, bool) {
	switch s {
	case "bool":
		return Bool, true
	case "ptr":
		return Ptr, true
	case "i8":
		return Int8, true
	case "i16":
		return Int16, true
	case "i32":
		return Int32, true
	case "i64":
		return Int64, true
	case "u8":
		return Uint8, true
	case "u16":
		return Uint16, true
	case "u32":
		return Uint32, true
	case "u64":
		return Uint64, true
	}
	return Type{}, false
}

// Overflow reports whether an operation left the representable domain, and
// in which direction.
type Overflow int8

const (
	Underflow Overflow = -1
	None      Overflow = 0
	Above     Overflow = 1
)

func (o Overflow) String() string {
	switch o {
	case Underflow:
		return "underflow"
	case Above:
		return "overflow"
	default:
		return "none"
	}
}

// Val is a value of a fixed-width scalar type. The zero Val is the zero
// value of the zero Type and is not usable; construct Vals with New,
// FromBits, or the Type bound methods.
type Val struct {
	typ  Type
	bits uint64
}

// New constructs the value of typ whose two's-complement pattern is the
// truncation of v.
func New[T constraints.Integer](typ Type, v T) Val {
	if !typ.valid() {
		panic(fmt.Sprintf("wint: invalid type %+v", typ))
	}
	return Val{typ, uint64(int64(v)) & typ.mask()}
}

// FromBits constructs the value of typ with the given raw pattern. Bits
// outside the type's width are discarded.
func FromBits(typ Type, pattern uint64) Val {
	if !typ.valid() {
		panic(fmt.Sprintf("wint: invalid type %+v", typ))
	}
	return Val{typ, pattern & typ.mask()}
}

func Zero(typ Type) Val     { return FromBits(typ, 0) }
func One(typ Type) Val      { return FromBits(typ, 1) }
func Two(typ Type) Val      { return FromBits(typ, 2) }
func MinusOne(typ Type) Val { return FromBits(typ, ^uint64(0)) }

// Mask returns the value of typ with the low width bits set, or its
// complement if negate is true.
func Mask(typ Type, width uint, negate bool) Val {
	var m uint64
	if width >= 64 {
		m = ^uint64(0)
	} else {
		m = 1<<width - 1
	}
	if negate {
		m = ^m
	}
	return FromBits(typ, m)
}

// Bit returns the value of typ with only bit pos set.
func Bit(typ Type, pos uint) Val {
	if pos >= 64 {
		return Zero(typ)
	}
	return FromBits(typ, 1<<pos)
}

func (v Val) Type() Type { return v.typ }

// Bits returns the raw two's-complement pattern, zero-extended to 64 bits.
func (v Val) Bits() uint64 { return v.bits }

// Int64 returns the value sign-extended to 64 bits. For unsigned 64-bit
// values with the top bit set the result is negative; use Uint64 instead.
func (v Val) Int64() int64 { return int64(v.sext()) }

// Uint64 returns the value zero-extended to 64 bits.
func (v Val) Uint64() uint64 { return v.bits }

func (v Val) sext() uint64 {
	if v.typ.Bits == 64 {
		return v.bits
	}
	if v.bits&(1<<(v.typ.Bits-1)) != 0 {
		return v.bits | ^v.typ.mask()
	}
	return v.bits
}

func (v Val) negative() bool {
	return v.bits&(1<<(v.typ.Bits-1)) != 0
}

func (v Val) IsZero() bool { return v.bits == 0 }

func (v Val) IsOne() bool { return v.bits == 1 }

// IsMin reports whether v is the smallest value of its type.
func (v Val) IsMin() bool { return v == v.typ.Min() }

// IsMax reports whether v is the largest value of its type.
func (v Val) IsMax() bool { return v == v.typ.Max() }

// Sign returns -1, 0 or 1 under the type's own signedness.
func (v Val) Sign() int {
	if v.bits == 0 {
		return 0
	}
	if v.typ.Signed && v.negative() {
		return -1
	}
	return 1
}

// Cmp compares v and o under their type's signedness. Both values must
// have the same type.
func (v Val) Cmp(o Val) int {
	v.check(o)
	return v.CmpSign(o, v.typ.Signed)
}

// CmpSign compares the two patterns under an explicit signedness,
// regardless of the type's own.
func (v Val) CmpSign(o Val, signed bool) int {
	v.check(o)
	if signed {
		a, b := int64(v.sext()), int64(o.sext())
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	switch {
	case v.bits < o.bits:
		return -1
	case v.bits > o.bits:
		return 1
	}
	return 0
}

func (v Val) Min(o Val) Val {
	if v.Cmp(o) <= 0 {
		return v
	}
	return o
}

func (v Val) Max(o Val) Val {
	if v.Cmp(o) >= 0 {
		return v
	}
	return o
}

func (v Val) check(o Val) {
	if v.typ != o.typ {
		panic(fmt.Sprintf("wint: mixed types %s and %s", v.typ, o.typ))
	}
}

// Add returns the truncated sum and the overflow direction.
func (v Val) Add(o Val) (Val, Overflow) {
	v.check(o)
	full, carry := bits.Add64(v.bits, o.bits, 0)
	r := Val{v.typ, full & v.typ.mask()}
	if v.typ.Signed {
		if v.negative() == o.negative() && v.negative() != r.negative() {
			if v.negative() {
				return r, Underflow
			}
			return r, Above
		}
		return r, None
	}
	if carry != 0 || full > v.typ.mask() {
		return r, Above
	}
	return r, None
}

// Sub returns the truncated difference and the overflow direction.
func (v Val) Sub(o Val) (Val, Overflow) {
	v.check(o)
	full, _ := bits.Sub64(v.bits, o.bits, 0)
	r := Val{v.typ, full & v.typ.mask()}
	if v.typ.Signed {
		if v.negative() != o.negative() && r.negative() == o.negative() {
			if o.negative() {
				return r, Above
			}
			return r, Underflow
		}
		return r, None
	}
	if v.bits < o.bits {
		return r, Underflow
	}
	return r, None
}

// Mul returns the truncated product and the overflow direction.
func (v Val) Mul(o Val) (Val, Overflow) {
	v.check(o)
	w := WideMul(v, o)
	r := w.Trunc(v.typ)
	if !v.typ.Signed {
		// An unsigned product can exceed even the signed 128-bit space,
		// so it has to be compared unsigned. It cannot underflow.
		if w.CmpU(v.typ.Max().Wide()) > 0 {
			return r, Above
		}
		return r, None
	}
	switch {
	case w.Cmp(v.typ.Max().Wide()) > 0:
		return r, Above
	case w.Cmp(v.typ.Min().Wide()) < 0:
		return r, Underflow
	}
	return r, None
}

// Neg returns 0 - v.
func (v Val) Neg() (Val, Overflow) {
	return Zero(v.typ).Sub(v)
}

// Abs returns the absolute value under the type's signedness. The minimum
// of a signed type has no representable absolute value; it wraps to itself.
func (v Val) Abs() Val {
	if v.typ.Signed && v.negative() {
		r, _ := v.Neg()
		return r
	}
	return v
}

func (v Val) And(o Val) Val { v.check(o); return Val{v.typ, v.bits & o.bits} }
func (v Val) Or(o Val) Val  { v.check(o); return Val{v.typ, v.bits | o.bits} }
func (v Val) Xor(o Val) Val { v.check(o); return Val{v.typ, v.bits ^ o.bits} }
func (v Val) Not() Val      { return Val{v.typ, ^v.bits & v.typ.mask()} }

// Lsh shifts left by n bits, discarding bits shifted out of the width.
func (v Val) Lsh(n uint) Val {
	if n >= 64 {
		return Zero(v.typ)
	}
	return Val{v.typ, (v.bits << n) & v.typ.mask()}
}

// Rsh shifts right by n bits; arithmetic for signed types, logical for
// unsigned ones.
func (v Val) Rsh(n uint) Val {
	if n >= uint(v.typ.Bits) {
		n = uint(v.typ.Bits) - 1
		if !v.typ.Signed {
			return Zero(v.typ)
		}
	}
	if v.typ.Signed {
		return Val{v.typ, uint64(int64(v.sext())>>n) & v.typ.mask()}
	}
	return Val{v.typ, v.bits >> n}
}

// DivTrunc divides truncating toward zero. o must be nonzero. The only
// overflowing case is min / -1 for signed types.
func (v Val) DivTrunc(o Val) (Val, Overflow) {
	q, _ := v.divmod(o)
	if v.typ.Signed && v.IsMin() && o == MinusOne(v.typ) {
		return q, Above
	}
	return q, None
}

// DivFloor divides rounding toward negative infinity.
func (v Val) DivFloor(o Val) (Val, Overflow) {
	q, ovf := v.DivTrunc(o)
	r := v.ModTrunc(o)
	if !r.IsZero() && v.typ.Signed && v.negative() != o.negative() {
		q, _ = q.Sub(One(v.typ))
	}
	return q, ovf
}

// DivCeil divides rounding toward positive infinity.
func (v Val) DivCeil(o Val) (Val, Overflow) {
	q, ovf := v.DivTrunc(o)
	r := v.ModTrunc(o)
	if !r.IsZero() && (!v.typ.Signed || v.negative() == o.negative()) {
		var o2 Overflow
		q, o2 = q.Add(One(v.typ))
		if o2 != None {
			ovf = o2
		}
	}
	return q, ovf
}

// DivRound divides rounding to nearest, ties away from zero.
func (v Val) DivRound(o Val) (Val, Overflow) {
	q, ovf := v.DivTrunc(o)
	r := v.ModTrunc(o)
	if r.IsZero() {
		return q, ovf
	}
	// |r| < |o|, so the magnitudes compare without wrapping
	ra, oa := r.Abs().Bits(), o.Abs().Bits()
	if oa-ra <= ra {
		if !v.typ.Signed || v.negative() == o.negative() {
			q, _ = q.Add(One(v.typ))
		} else {
			q, _ = q.Sub(One(v.typ))
		}
	}
	return q, ovf
}

// ModTrunc returns the remainder of truncating division. o must be nonzero.
func (v Val) ModTrunc(o Val) Val {
	_, r := v.divmod(o)
	return r
}

func (v Val) divmod(o Val) (Val, Val) {
	v.check(o)
	if o.IsZero() {
		panic("wint: division by zero")
	}
	if v.typ.Signed {
		a, b := int64(v.sext()), int64(o.sext())
		if a == -1<<63 && b == -1 {
			// the quotient wraps; Go would fault
			return Val{v.typ, v.bits}, Zero(v.typ)
		}
		return New(v.typ, a/b), New(v.typ, a%b)
	}
	return Val{v.typ, v.bits / o.bits}, Val{v.typ, v.bits % o.bits}
}

// Cast reinterprets v in the type to. Widening extends under the source
// type's signedness; narrowing truncates.
func (v Val) Cast(to Type) Val {
	if !to.valid() {
		panic(fmt.Sprintf("wint: invalid type %+v", to))
	}
	if v.typ.Signed {
		return Val{to, v.sext() & to.mask()}
	}
	return Val{to, v.bits & to.mask()}
}

// LeadingZeros returns the number of zero bits above the most significant
// one bit, within the type's width.
func (v Val) LeadingZeros() int {
	return bits.LeadingZeros64(v.bits) - (64 - int(v.typ.Bits))
}

// TrailingZeros returns the number of zero bits below the least significant
// one bit; for zero it returns the type's width.
func (v Val) TrailingZeros() int {
	if v.bits == 0 {
		return int(v.typ.Bits)
	}
	return bits.TrailingZeros64(v.bits)
}

func (v Val) OnesCount() int { return bits.OnesCount64(v.bits) }

// FloorLog2 returns the position of the most significant one bit, or -1
// for zero.
func (v Val) FloorLog2() int {
	if v.bits == 0 {
		return -1
	}
	return int(v.typ.Bits) - 1 - v.LeadingZeros()
}

// ExactLog2 returns the base-2 logarithm if v is a power of two, else -1.
func (v Val) ExactLog2() int {
	if v.bits == 0 || v.bits&(v.bits-1) != 0 {
		return -1
	}
	return v.FloorLog2()
}

// LeadingRedundantSignBits returns the number of leading bits equal to the
// sign bit, not counting the sign bit itself.
func (v Val) LeadingRedundantSignBits() int {
	p := v.sext()
	if int64(p) < 0 {
		p = ^p
	}
	n := bits.LeadingZeros64(p) - (64 - int(v.typ.Bits))
	if n == int(v.typ.Bits) {
		// all bits equal the sign bit
		return int(v.typ.Bits) - 1
	}
	return n - 1
}

// OnlySignBit reports whether exactly the sign bit is set.
func (v Val) OnlySignBit() bool {
	return v.bits == 1<<(v.typ.Bits-1)
}

func (v Val) String() string {
	if v.typ.Signed {
		return fmt.Sprintf("%d", int64(v.sext()))
	}
	return fmt.Sprintf("%d", v.bits)
}
