// Package irange implements multi-range interval sets over fixed-width
// scalar types.
//
// A Range is an ordered list of disjoint, non-adjacent, inclusive
// [lower, upper] pairs. Two sentinel states exist: undefined, the empty
// set, meaning the value is provably unreachable; and varying, the full
// domain, meaning nothing is known. Varying has no distinguished
// representation, it is simply the single pair spanning the whole type.
//
// Ranges have value semantics. Mutating methods replace the backing pair
// list instead of writing through it, so copies made by assignment stay
// independent.
package irange

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
	"honnef.co/go/ranger/wint"
)

// MaxPairs caps the number of sub-range pairs a Range may hold. When an
// operation would exceed the cap, the pairs past it are blended into the
// last kept pair, trading precision for a bounded representation. Raising
// it trades memory and time for precision. It is set once at startup, from
// configuration; see config.Apply.
var MaxPairs = 255

// Range is a set of integers representable in a fixed-width scalar type.
type Range struct {
	typ   wint.Type
	pairs []wint.Val // len is even; empty means undefined
}

// Undefined returns the empty range of typ.
func Undefined(typ wint.Type) Range {
	return Range{typ: typ}
}

// Varying returns the full-domain range of typ.
func Varying(typ wint.Type) Range {
	return Range{typ, []wint.Val{typ.Min(), typ.Max()}}
}

// New returns the single-pair range [lo, hi]. The bounds must be ordered
// and of type typ.
func New(typ wint.Type, lo, hi wint.Val) Range {
	if lo.Type() != typ || hi.Type() != typ {
		panic(fmt.Sprintf("irange: bounds of type %s, %s in range of type %s", lo.Type(), hi.Type(), typ))
	}
	if lo.Cmp(hi) > 0 {
		panic(fmt.Sprintf("irange: unordered bounds [%s, %s]", lo, hi))
	}
	return Range{typ, []wint.Val{lo, hi}}
}

// NewInt is New with the bounds truncated from ordinary integers.
func NewInt[T constraints.Integer](typ wint.Type, lo, hi T) Range {
	return New(typ, wint.New(typ, lo), wint.New(typ, hi))
}

// FromVal returns the singleton range {v}.
func FromVal(v wint.Val) Range {
	return New(v.Type(), v, v)
}

// Anti returns the complement of [lo, hi] within the domain of typ.
func Anti(typ wint.Type, lo, hi wint.Val) Range {
	r := New(typ, lo, hi)
	r.Invert()
	return r
}

// Zero returns {0}.
func Zero(typ wint.Type) Range {
	return FromVal(wint.Zero(typ))
}

// Nonzero returns the complement of {0}.
func Nonzero(typ wint.Type) Range {
	return Anti(typ, wint.Zero(typ), wint.Zero(typ))
}

// True, False and TrueAndFalse are the three non-undefined boolean ranges.
func True() Range         { return FromVal(wint.One(wint.Bool)) }
func False() Range        { return FromVal(wint.Zero(wint.Bool)) }
func TrueAndFalse() Range { return Varying(wint.Bool) }

// Type returns the scalar type the range is over. It stays meaningful for
// the sentinel states.
func (r Range) Type() wint.Type { return r.typ }

// Undefined reports whether the range is the empty set.
func (r Range) Undefined() bool { return len(r.pairs) == 0 }

// Varying reports whether the range spans the full domain of its type.
func (r Range) Varying() bool {
	return len(r.pairs) == 2 && r.pairs[0] == r.typ.Min() && r.pairs[1] == r.typ.Max()
}

// NumPairs returns the number of sub-range pairs.
func (r Range) NumPairs() int { return len(r.pairs) / 2 }

// Pair returns the i-th sub-range's inclusive bounds.
func (r Range) Pair(i int) (lo, hi wint.Val) {
	return r.pairs[2*i], r.pairs[2*i+1]
}

// LowerBound returns the smallest member. The range must not be undefined.
func (r Range) LowerBound() wint.Val {
	r.checkDefined()
	return r.pairs[0]
}

// UpperBound returns the largest member. The range must not be undefined.
func (r Range) UpperBound() wint.Val {
	r.checkDefined()
	return r.pairs[len(r.pairs)-1]
}

func (r Range) checkDefined() {
	if len(r.pairs) == 0 {
		panic("irange: bounds of an undefined range")
	}
}

// Contains reports whether v is a member of the range.
func (r Range) Contains(v wint.Val) bool {
	for i := 0; i < r.NumPairs(); i++ {
		lo, hi := r.Pair(i)
		if v.Cmp(lo) >= 0 && v.Cmp(hi) <= 0 {
			return true
		}
	}
	return false
}

// Singleton returns the sole member, if the range has exactly one.
func (r Range) Singleton() (wint.Val, bool) {
	if len(r.pairs) == 2 && r.pairs[0] == r.pairs[1] {
		return r.pairs[0], true
	}
	return wint.Val{}, false
}

// ZeroP reports whether the range is exactly {0}.
func (r Range) ZeroP() bool {
	v, ok := r.Singleton()
	return ok && v.IsZero()
}

// NonzeroP reports whether the range provably excludes zero.
func (r Range) NonzeroP() bool {
	return !r.Undefined() && !r.Contains(wint.Zero(r.typ))
}

// Equal reports whether two ranges are the same set over the same type.
func (r Range) Equal(o Range) bool {
	if r.typ != o.typ || len(r.pairs) != len(o.pairs) {
		return false
	}
	for i, v := range r.pairs {
		if v != o.pairs[i] {
			return false
		}
	}
	return true
}

// SetUndefined empties the range in place, keeping its type.
func (r *Range) SetUndefined() {
	r.pairs = nil
}

// SetVarying resets the range to the full domain of typ.
func (r *Range) SetVarying(typ wint.Type) {
	*r = Varying(typ)
}

// Union grows the range to include all members of o. Union with undefined
// is identity, union with varying is varying. If the merged pair count
// exceeds MaxPairs the tail pairs are blended together.
func (r *Range) Union(o Range) {
	if o.Undefined() {
		return
	}
	if r.Undefined() {
		*r = Range{o.typ, append([]wint.Val(nil), o.pairs...)}
		return
	}
	r.check(o)
	if r.Varying() {
		return
	}
	if o.Varying() {
		r.SetVarying(r.typ)
		return
	}

	// Merge the two sorted pair lists, blending pairs that overlap or are
	// adjacent.
	out := make([]wint.Val, 0, len(r.pairs)+len(o.pairs))
	i, j := 0, 0
	for i < len(r.pairs) || j < len(o.pairs) {
		var lo, hi wint.Val
		if j >= len(o.pairs) || (i < len(r.pairs) && r.pairs[i].Cmp(o.pairs[j]) <= 0) {
			lo, hi = r.pairs[i], r.pairs[i+1]
			i += 2
		} else {
			lo, hi = o.pairs[j], o.pairs[j+1]
			j += 2
		}
		if n := len(out); n > 0 && mergeable(out[n-1], lo) {
			if hi.Cmp(out[n-1]) > 0 {
				out[n-1] = hi
			}
		} else {
			out = append(out, lo, hi)
		}
	}
	r.pairs = cap2(out)
}

// mergeable reports whether a pair starting at lo belongs in the same
// blended pair as one ending at hi, i.e. lo <= succ(hi).
func mergeable(hi, lo wint.Val) bool {
	if lo.Cmp(hi) <= 0 {
		return true
	}
	if hi.IsMax() {
		return false
	}
	// The in-order successor is the raw pattern plus one for every width,
	// signed or not, once the type maximum is excluded. Adding One would
	// misfire on the 1-bit signed type, where One is the value -1.
	succ := wint.FromBits(hi.Type(), hi.Bits()+1)
	return lo.Cmp(succ) <= 0
}

// cap2 enforces MaxPairs by blending everything past the cap into the last
// kept pair. No analysis is done as to which blends lose the least
// precision.
func cap2(pairs []wint.Val) []wint.Val {
	if len(pairs) > 2*MaxPairs {
		pairs[2*MaxPairs-1] = pairs[len(pairs)-1]
		pairs = pairs[:2*MaxPairs]
	}
	return pairs
}

// Intersect shrinks the range to the members it shares with o. Intersect
// with varying is identity, with undefined it is undefined. A disjoint
// result becomes undefined.
func (r *Range) Intersect(o Range) {
	if r.Undefined() {
		return
	}
	if o.Undefined() {
		r.SetUndefined()
		return
	}
	r.check(o)
	if o.Varying() {
		return
	}
	if r.Varying() {
		*r = Range{o.typ, append([]wint.Val(nil), o.pairs...)}
		return
	}

	var out []wint.Val
	i, j := 0, 0
	for i < len(r.pairs) && j < len(o.pairs) {
		lo := r.pairs[i].Max(o.pairs[j])
		hi := r.pairs[i+1].Min(o.pairs[j+1])
		if lo.Cmp(hi) <= 0 {
			out = append(out, lo, hi)
		}
		// advance whichever pair ends first
		if r.pairs[i+1].Cmp(o.pairs[j+1]) <= 0 {
			i += 2
		} else {
			j += 2
		}
	}
	r.pairs = cap2(out)
}

// Invert replaces the range with its complement within the type's domain.
// The complement of undefined is varying and vice versa. Invert is
// involutory as long as the pair count stays under MaxPairs.
func (r *Range) Invert() {
	if r.Undefined() {
		r.SetVarying(r.typ)
		return
	}
	if r.Varying() {
		r.SetUndefined()
		return
	}

	min, max := r.typ.Min(), r.typ.Max()
	one := wint.One(r.typ)
	var out []wint.Val
	if r.pairs[0] != min {
		pred, _ := r.pairs[0].Sub(one)
		out = append(out, min, pred)
	}
	for i := 1; i < r.NumPairs(); i++ {
		lo, _ := r.pairs[2*i-1].Add(one)
		hi, _ := r.pairs[2*i].Sub(one)
		out = append(out, lo, hi)
	}
	if r.pairs[len(r.pairs)-1] != max {
		succ, _ := r.pairs[len(r.pairs)-1].Add(one)
		out = append(out, succ, max)
	}
	r.pairs = cap2(out)
}

func (r Range) check(o Range) {
	if r.typ != o.typ {
		panic(fmt.Sprintf("irange: mixed types %s and %s", r.typ, o.typ))
	}
}

func (r Range) String() string {
	if r.Undefined() {
		return "⊥"
	}
	var sb strings.Builder
	for i := 0; i < r.NumPairs(); i++ {
		if i > 0 {
			sb.WriteString(" ∪ ")
		}
		lo, hi := r.Pair(i)
		if lo == hi {
			fmt.Fprintf(&sb, "{%s}", lo)
		} else {
			fmt.Fprintf(&sb, "[%s, %s]", lo, hi)
		}
	}
	return sb.String()
}
