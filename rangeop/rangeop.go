// Package rangeop implements the per-operator range transfer functions.
//
// Every operation of the IR has an entry in one of two tables, one for
// integral and boolean types and one for pointer types. An entry supplies
// up to four functions:
//
//   - fold: the forward transfer, computing the result range from the two
//     operand ranges. When absent, the default decomposes both operands
//     into their sub-range pairs and unions the wiFold of every pair
//     combination, short-circuiting once the union reaches varying.
//   - wiFold: the per-pair primitive folding one [lb, ub] × [lb, ub]
//     combination. When absent it answers varying.
//   - op1Range, op2Range: the backward transfers, recovering a feasible
//     range for one operand from the result's range and the other
//     operand's range. When absent they report no information.
//
// Unary operations are folded with the second operand set to the varying
// range of the result's type; casts read their target type from it.
package rangeop

import (
	"fmt"

	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
	"honnef.co/go/ranger/wint"
)

type foldFunc func(typ wint.Type, lh, rh irange.Range) irange.Range
type wiFoldFunc func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range
type invFunc func(typ wint.Type, lhs, other irange.Range) (irange.Range, bool)

type operator struct {
	fold     foldFunc
	wiFold   wiFoldFunc
	op1Range invFunc
	op2Range invFunc
}

// flagWrapv forces signed types to wrap on overflow for the duration of a
// FoldWrapv call, the way overflow-checked builtins need. The engine is
// single-threaded (see the package ranger docs), so a package variable
// suffices.
var flagWrapv bool

// overflowWraps reports whether arithmetic in typ wraps on overflow.
// Unsigned types always wrap; signed and pointer overflow is undefined
// unless wrapping has been forced.
func overflowWraps(typ wint.Type) bool {
	if typ.Pointer {
		return flagWrapv
	}
	return !typ.Signed || flagWrapv
}

// NonCallExceptions, when set, keeps division by a possibly-zero divisor
// varying rather than treating the zero-divisor region as unreachable,
// so a trap cannot be miscompiled into dead code. Set from configuration.
var NonCallExceptions bool

func lookup(op mir.Op, typ wint.Type) *operator {
	if op >= mir.NumOps {
		return nil
	}
	if typ.Pointer {
		return pointerTable[op]
	}
	return integralTable[op]
}

// Handled reports whether op has a transfer function for typ.
func Handled(op mir.Op, typ wint.Type) bool {
	return lookup(op, typ) != nil
}

// Fold forward-evaluates op over the operand ranges, producing the result
// range over typ. The operation must be handled for typ.
func Fold(op mir.Op, typ wint.Type, lh, rh irange.Range) irange.Range {
	h := lookup(op, typ)
	if h == nil {
		panic(fmt.Sprintf("rangeop: folding unhandled operation %s on %s", op, typ))
	}
	return h.foldRange(typ, lh, rh)
}

// FoldWrapv is Fold with signed overflow forced to wrap for the duration
// of the call.
func FoldWrapv(op mir.Op, typ wint.Type, lh, rh irange.Range) irange.Range {
	saved := flagWrapv
	flagWrapv = true
	r := Fold(op, typ, lh, rh)
	flagWrapv = saved
	return r
}

// Op1Range recovers a range for the first operand, of type typ, given the
// result's range and the second operand's range. ok is false when the
// operation provides no backward transfer.
func Op1Range(op mir.Op, typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	h := lookup(op, typ)
	if h == nil || h.op1Range == nil {
		return irange.Range{}, false
	}
	return h.op1Range(typ, lhs, op2)
}

// Op2Range is Op1Range for the second operand.
func Op2Range(op mir.Op, typ wint.Type, lhs, op1 irange.Range) (irange.Range, bool) {
	h := lookup(op, typ)
	if h == nil || h.op2Range == nil {
		return irange.Range{}, false
	}
	return h.op2Range(typ, lhs, op1)
}

func (o *operator) foldRange(typ wint.Type, lh, rh irange.Range) irange.Range {
	if o.fold != nil {
		return o.fold(typ, lh, rh)
	}
	return foldPairs(o.wiFold, typ, lh, rh)
}

// foldPairs is the generic forward transfer: every pair combination of
// the operands is folded with wi and the results unioned, short-circuiting
// once the union reaches varying. It is a free function so operators can
// fold through each other without initialization cycles.
func foldPairs(wi wiFoldFunc, typ wint.Type, lh, rh irange.Range) irange.Range {
	if wi == nil {
		return irange.Varying(typ)
	}
	if lh.Undefined() || rh.Undefined() {
		// If the caller cares about a real result for an unreachable
		// operand, it should have passed varying instead.
		return irange.Varying(typ)
	}

	// With single pairs on both sides, fold directly.
	if lh.NumPairs() == 1 && rh.NumPairs() == 1 {
		lhLB, lhUB := lh.Pair(0)
		rhLB, rhUB := rh.Pair(0)
		return wi(typ, lhLB, lhUB, rhLB, rhUB)
	}

	r := irange.Undefined(typ)
	for x := 0; x < lh.NumPairs(); x++ {
		for y := 0; y < rh.NumPairs(); y++ {
			lhLB, lhUB := lh.Pair(x)
			rhLB, rhUB := rh.Pair(y)
			r.Union(wi(typ, lhLB, lhUB, rhLB, rhUB))
			if r.Varying() {
				return r
			}
		}
	}
	return r
}

// fromOverflowedBounds builds a range from truncated bounds known to have
// wrapped: the complement of [wmax+1, wmin-1]. If the complement covers
// everything or its bounds are unordered, the result is varying.
func fromOverflowedBounds(typ wint.Type, wmin, wmax wint.Val) irange.Range {
	one := wint.One(typ)
	covers := false
	tem := wmin
	tmin, _ := wmax.Add(one)
	if tmin.Cmp(wmax) < 0 {
		covers = true
	}
	tmax, _ := tem.Sub(one)
	if tmax.Cmp(tem) > 0 {
		covers = true
	}
	if covers || tmin.Cmp(tmax) > 0 {
		return irange.Varying(typ)
	}
	return irange.Anti(typ, tmin, tmax)
}

// withOverflow builds a range from computed bounds and the overflow each
// incurred. Wrapping types truncate: both-or-neither overflow keeps a
// normal range unless truncation reordered the bounds; exactly one
// overflow becomes the complement-range construction when expressible.
// Non-wrapping types saturate, and identical overflow of both bounds
// means the operation cannot happen at all.
func withOverflow(typ wint.Type, wmin, wmax wint.Val, minOvf, maxOvf wint.Overflow) irange.Range {
	// For one bit precision, if max != min the range covers all values.
	if typ.Bits == 1 && wmin != wmax {
		return irange.Varying(typ)
	}

	if overflowWraps(typ) {
		if (minOvf != wint.None) == (maxOvf != wint.None) {
			// If the truncated limits are swapped, we wrapped around and
			// cover the entire range.
			if wmin.Cmp(wmax) > 0 {
				return irange.Varying(typ)
			}
			return irange.New(typ, wmin, wmax)
		}
		if (minOvf == wint.Underflow && maxOvf == wint.None) ||
			(maxOvf == wint.Above && minOvf == wint.None) {
			return fromOverflowedBounds(typ, wmin, wmax)
		}
		return irange.Varying(typ)
	}

	if (minOvf == wint.Above && maxOvf == wint.Above) ||
		(minOvf == wint.Underflow && maxOvf == wint.Underflow) {
		return irange.Undefined(typ)
	}

	lb, ub := wmin, wmax
	switch minOvf {
	case wint.Underflow:
		lb = typ.Min()
	case wint.Above:
		lb = typ.Max()
	}
	switch maxOvf {
	case wint.Underflow:
		ub = typ.Min()
	case wint.Above:
		ub = typ.Max()
	}
	return irange.New(typ, lb, ub)
}

// possiblyReversed canonicalizes bounds that may be swapped: [10, 5]
// becomes [MIN, 5] ∪ [10, MAX].
func possiblyReversed(typ wint.Type, lb, ub wint.Val) irange.Range {
	if lb.Cmp(ub) > 0 {
		return fromOverflowedBounds(typ, lb, ub)
	}
	return irange.New(typ, lb, ub)
}

type boolState int

const (
	brsFalse boolState = iota
	brsTrue
	brsEmpty
	brsFull
)

// getBoolState summarizes a boolean result range. For brsEmpty and brsFull
// it also returns the equivalent range over valType.
func getBoolState(lhs irange.Range, valType wint.Type) (boolState, irange.Range) {
	// No result means unexecutable.
	if lhs.Undefined() {
		return brsEmpty, irange.Undefined(valType)
	}
	if lhs.ZeroP() {
		return brsFalse, irange.Range{}
	}
	if lhs.Contains(wint.Zero(lhs.Type())) {
		return brsFull, irange.Varying(valType)
	}
	return brsTrue, irange.Range{}
}
