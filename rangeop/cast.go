package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

// The conversion operator reads its target type from the second operand,
// which callers pass as the varying range of the result type.

var opCast = &operator{
	fold:     castFold,
	op1Range: castOp1,
}

// Cast converts r to the type to. It is the plain conversion entry point
// for callers outside the operator tables. Unlike the table fold it maps
// the empty range to the empty range; a conversion cannot invent members.
func Cast(r irange.Range, to wint.Type) irange.Range {
	if r.Undefined() {
		return irange.Undefined(to)
	}
	return castFold(to, r, irange.Varying(to))
}

func truncatingCast(inner, outer wint.Type) bool {
	return outer.Bits < inner.Bits
}

func castFoldPair(index int, inner, outer irange.Range) irange.Range {
	outerType := outer.Type()
	innerLB, innerUB := inner.Pair(index)

	// A truncating cast can be accommodated if the span of the pair
	// still fits in the target's width.
	if truncatingCast(inner.Type(), outerType) {
		span, _ := innerUB.Sub(innerLB)
		if !span.Rsh(uint(outerType.Bits)).IsZero() {
			return irange.Varying(outerType)
		}
	}
	min := innerLB.Cast(outerType)
	max := innerUB.Cast(outerType)
	return possiblyReversed(outerType, min, max)
}

func castFold(typ wint.Type, inner, outer irange.Range) irange.Range {
	if inner.Undefined() || outer.Undefined() {
		return irange.Varying(typ)
	}

	r := castFoldPair(0, inner, outer)
	for x := 1; x < inner.NumPairs(); x++ {
		r.Union(castFoldPair(x, inner, outer))
		if r.Varying() {
			return r
		}
	}
	return r
}

// signedMax and signedMin return the extreme patterns of typ's width
// under a signed reading, as values of typ itself.
func signedMax(typ wint.Type) wint.Val {
	return wint.FromBits(typ, wint.Type{Bits: typ.Bits, Signed: true}.Max().Bits())
}

func signedMin(typ wint.Type) wint.Val {
	return wint.FromBits(typ, wint.Type{Bits: typ.Bits, Signed: true}.Min().Bits())
}

func castOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	if lhs.Undefined() {
		return irange.Undefined(typ), true
	}
	lhsType := lhs.Type()

	if truncatingCast(op2.Type(), lhsType) {
		if lhs.Varying() {
			return irange.Varying(typ), true
		}

		// Insert the LHS as an unsigned value so it does not trigger
		// the sign bit of the larger type.
		convertedLhs := Cast(lhs, wint.Type{Bits: lhsType.Bits})
		convertedLhs = Cast(convertedLhs, typ)

		// Start with the positive signed outer range of the type, and
		// union in the unsigned image.
		lim := wint.Bit(typ, uint(lhsType.Bits))
		r := irange.New(typ, lim, signedMax(typ))
		r.Union(convertedLhs)

		// The maximal negative number outside of the LHS bits, added to
		// the unsigned LHS ranges, gives the negative image.
		lim = wint.Mask(typ, uint(lhsType.Bits), true)
		limRange := irange.FromVal(lim)
		lhsNeg := foldPairs(plusWiFold, typ, convertedLhs, limRange)
		// Union with the entire negative range of the outer type, then
		// munge the signed and unsigned portions together.
		pred, _ := lim.Sub(wint.One(typ))
		neg := irange.New(typ, signedMin(typ), pred)
		neg.Union(lhsNeg)
		r.Union(neg)

		// And intersect with any known value passed in.
		r.Intersect(op2)
		return r, true
	}

	var tmp irange.Range
	if lhsType.Bits == typ.Bits {
		tmp = lhs
	} else {
		// The cast does not truncate, so the operand is restricted to
		// the image of its type in the LHS type.
		tmp = Cast(irange.Varying(typ), lhsType)
		tmp.Intersect(lhs)
	}
	return Cast(tmp, typ), true
}
