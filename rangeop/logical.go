package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

var opLogicalAnd = &operator{
	fold:     logicalAndFold,
	op1Range: logicalAndOp1,
	op2Range: logicalAndOp1,
}

func logicalAndFold(typ wint.Type, lh, rh irange.Range) irange.Range {
	if lh.Undefined() || rh.Undefined() {
		return irange.Varying(typ)
	}

	// 0 && anything is 0.
	if (lh.LowerBound().IsZero() && lh.UpperBound().IsZero()) ||
		(lh.LowerBound().IsZero() && rh.UpperBound().IsZero()) {
		return irange.False()
	}
	if lh.Contains(wint.Zero(lh.Type())) || rh.Contains(wint.Zero(rh.Type())) {
		// To reach this point there must be a logical 1 on each side,
		// the only remaining question is whether there is a zero.
		return irange.TrueAndFalse()
	}
	return irange.True()
}

func logicalAndOp1(typ wint.Type, lhs, _ irange.Range) (irange.Range, bool) {
	if state, _ := getBoolState(lhs, typ); state == brsTrue {
		// A true result means both sides of the AND must be true.
		return irange.True(), true
	}
	// Any other result means only one side has to be false; the other
	// side can be anything.
	return irange.TrueAndFalse(), true
}

var opLogicalOr = &operator{
	fold:     logicalOrFold,
	op1Range: logicalOrOp1,
	op2Range: logicalOrOp1,
}

func logicalOrFold(typ wint.Type, lh, rh irange.Range) irange.Range {
	if lh.Undefined() || rh.Undefined() {
		return irange.Varying(typ)
	}
	r := lh
	r.Union(rh)
	return r
}

func logicalOrOp1(typ wint.Type, lhs, _ irange.Range) (irange.Range, bool) {
	if state, _ := getBoolState(lhs, typ); state == brsFalse {
		// A false result means both sides of the OR must be false.
		return irange.False(), true
	}
	// Any other result means only one side has to be true; the other
	// side can be anything.
	return irange.TrueAndFalse(), true
}

// Folding a logical NOT, oddly enough, involves doing nothing on the
// forward pass through. During the initial walk backwards, the NOT
// reversed the desired outcome on the way back, so on the way forward
// the range simply inverts:
//
//	b2 = x1 < 20
//	b3 = lnot b2
//	br b3
//
// To determine the true branch, walking backward:
//
//	br b3           br {1}
//	b3 = lnot b2    {1} = lnot {0}
//	b2 = x1 < 20    {0} = x1 < 20, false, so x1 = [20, 255]
var opLogicalNot = &operator{
	fold: func(typ wint.Type, lh, rh irange.Range) irange.Range {
		if lh.Undefined() || rh.Undefined() {
			return irange.Varying(typ)
		}
		r := lh
		if !lh.Varying() && !lh.Undefined() {
			r.Invert()
		}
		return r
	},
	op1Range: func(typ wint.Type, lhs, _ irange.Range) (irange.Range, bool) {
		r := lhs
		if !lhs.Varying() && !lhs.Undefined() {
			r.Invert()
		}
		return r, true
	},
}
