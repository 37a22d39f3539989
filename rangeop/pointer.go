package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

// DeleteNullPointerChecks declares that no valid object lives at address
// zero, so offsetting a non-null pointer cannot produce null.
var DeleteNullPointerChecks = true

// Pointer ranges only track nullness with any precision; arithmetic on
// them folds to zero, nonzero or varying.

func pairIncludesZero(lb, ub wint.Val) bool {
	// The bounds may belong to the offset operand, not the pointer, so the
	// zero has to come from their own type.
	zero := wint.Zero(lb.Type())
	signed := lb.Type().Signed
	return lb.CmpSign(zero, signed) <= 0 && ub.CmpSign(zero, signed) >= 0
}

func pairIsZero(lb, ub wint.Val) bool {
	return lb.IsZero() && ub.IsZero()
}

var opPointerPlus = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		// A non-null pointer plus a known offset stays non-null, unless
		// pointers wrap or an object may live at address zero. Negative
		// offsets can back up across null even then.
		if (!pairIncludesZero(lhLB, lhUB) || !pairIncludesZero(rhLB, rhUB)) &&
			!overflowWraps(typ) &&
			(DeleteNullPointerChecks || rhUB.CmpSign(wint.Zero(rhUB.Type()), true) >= 0) {
			return irange.Nonzero(typ)
		}
		if pairIsZero(lhLB, lhUB) && pairIsZero(rhLB, rhUB) {
			return irange.Zero(typ)
		}
		return irange.Varying(typ)
	},
}

var opPtrMinMax = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		if !pairIncludesZero(lhLB, lhUB) && !pairIncludesZero(rhLB, rhUB) {
			return irange.Nonzero(typ)
		}
		if pairIsZero(lhLB, lhUB) && pairIsZero(rhLB, rhUB) {
			return irange.Zero(typ)
		}
		return irange.Varying(typ)
	},
}

var opPointerAnd = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		// Masking null with anything, or anything with null, is null.
		if pairIsZero(lhLB, lhUB) || pairIsZero(rhLB, rhUB) {
			return irange.Zero(typ)
		}
		return irange.Varying(typ)
	},
}

var opPointerOr = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		if !pairIncludesZero(lhLB, lhUB) && !pairIncludesZero(rhLB, rhUB) {
			return irange.Nonzero(typ)
		}
		if pairIsZero(lhLB, lhUB) && pairIsZero(rhLB, rhUB) {
			return irange.Zero(typ)
		}
		return irange.Varying(typ)
	},
	op1Range: pointerOrOp1,
	op2Range: pointerOrOp1,
}

// If an OR of pointers is null, both pointers were null.
func pointerOrOp1(typ wint.Type, lhs, _ irange.Range) (irange.Range, bool) {
	if v, ok := lhs.Singleton(); ok && v.IsZero() {
		return irange.Zero(typ), true
	}
	return irange.Varying(typ), true
}

// FoldAddr evaluates taking the address of a location whose base pointer
// has range base. The address is null exactly when the base is null and
// the offset folds away.
func FoldAddr(typ wint.Type, base irange.Range) irange.Range {
	if base.Undefined() {
		return irange.Varying(typ)
	}
	if v, ok := base.Singleton(); ok && v.IsZero() {
		return irange.Zero(typ)
	}
	if !base.Contains(wint.Zero(base.Type())) {
		return irange.Nonzero(typ)
	}
	return irange.Varying(typ)
}
