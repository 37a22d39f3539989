package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

// The six relational operators produce boolean ranges. Folding compares
// the operands' bound extremes; the backward transfers rebuild a
// half-open constraint on the operand with the successor/predecessor
// constructions below.

// buildLt is the range satisfying X < val: [MIN, val-1]. If val-1
// underflows the test was X < MIN, which nothing satisfies.
func buildLt(typ wint.Type, val wint.Val) irange.Range {
	lim, ovf := val.Sub(wint.One(typ))
	if ovf != wint.None {
		return irange.Undefined(typ)
	}
	return irange.New(typ, typ.Min(), lim)
}

// buildLe is the range satisfying X <= val: [MIN, val].
func buildLe(typ wint.Type, val wint.Val) irange.Range {
	return irange.New(typ, typ.Min(), val)
}

// buildGt is the range satisfying X > val: [val+1, MAX]. If val+1
// overflows the test was X > MAX, which nothing satisfies.
func buildGt(typ wint.Type, val wint.Val) irange.Range {
	lim, ovf := val.Add(wint.One(typ))
	if ovf != wint.None {
		return irange.Undefined(typ)
	}
	return irange.New(typ, lim, typ.Max())
}

// buildGe is the range satisfying X >= val: [val, MAX].
func buildGe(typ wint.Type, val wint.Val) irange.Range {
	return irange.New(typ, val, typ.Max())
}

var opEqual = &operator{
	fold: func(typ wint.Type, op1, op2 irange.Range) irange.Range {
		if op1.Undefined() || op2.Undefined() {
			return irange.Varying(typ)
		}
		// Only two singletons compare decisively for equality.
		v1, ok1 := op1.Singleton()
		v2, ok2 := op2.Singleton()
		if ok1 && ok2 {
			if v1 == v2 {
				return irange.True()
			}
			return irange.False()
		}
		// Disjoint ranges can never be equal.
		tmp := op1
		tmp.Intersect(op2)
		if tmp.Undefined() {
			return irange.False()
		}
		return irange.TrueAndFalse()
	},
	op1Range: equalOp1,
	op2Range: equalOp1,
}

func equalOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	switch state, r := getBoolState(lhs, typ); state {
	case brsFalse:
		// A false result only tells us something when the other operand
		// is a constant.
		if _, ok := op2.Singleton(); ok {
			inv := op2
			inv.Invert()
			return inv, true
		}
		return irange.Varying(typ), true
	case brsTrue:
		return op2, true
	default:
		return r, true
	}
}

var opNotEqual = &operator{
	fold: func(typ wint.Type, op1, op2 irange.Range) irange.Range {
		if op1.Undefined() || op2.Undefined() {
			return irange.Varying(typ)
		}
		v1, ok1 := op1.Singleton()
		v2, ok2 := op2.Singleton()
		if ok1 && ok2 {
			if v1 != v2 {
				return irange.True()
			}
			return irange.False()
		}
		tmp := op1
		tmp.Intersect(op2)
		if tmp.Undefined() {
			return irange.True()
		}
		return irange.TrueAndFalse()
	},
	op1Range: notEqualOp1,
	op2Range: notEqualOp1,
}

func notEqualOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	switch state, r := getBoolState(lhs, typ); state {
	case brsTrue:
		if _, ok := op2.Singleton(); ok {
			inv := op2
			inv.Invert()
			return inv, true
		}
		return irange.Varying(typ), true
	case brsFalse:
		return op2, true
	default:
		return r, true
	}
}

var opLt = &operator{
	fold: func(typ wint.Type, op1, op2 irange.Range) irange.Range {
		if op1.Undefined() || op2.Undefined() {
			return irange.Varying(typ)
		}
		switch {
		case op1.UpperBound().Cmp(op2.LowerBound()) < 0:
			return irange.True()
		case op1.LowerBound().Cmp(op2.UpperBound()) >= 0:
			return irange.False()
		}
		return irange.TrueAndFalse()
	},
	op1Range: func(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
		if op2.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsTrue:
			return buildLt(typ, op2.UpperBound()), true
		case brsFalse:
			return buildGe(typ, op2.LowerBound()), true
		default:
			return r, true
		}
	},
	op2Range: func(typ wint.Type, lhs, op1 irange.Range) (irange.Range, bool) {
		if op1.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsFalse:
			return buildLe(typ, op1.UpperBound()), true
		case brsTrue:
			return buildGt(typ, op1.LowerBound()), true
		default:
			return r, true
		}
	},
}

var opLe = &operator{
	fold: func(typ wint.Type, op1, op2 irange.Range) irange.Range {
		if op1.Undefined() || op2.Undefined() {
			return irange.Varying(typ)
		}
		switch {
		case op1.UpperBound().Cmp(op2.LowerBound()) <= 0:
			return irange.True()
		case op1.LowerBound().Cmp(op2.UpperBound()) > 0:
			return irange.False()
		}
		return irange.TrueAndFalse()
	},
	op1Range: func(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
		if op2.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsTrue:
			return buildLe(typ, op2.UpperBound()), true
		case brsFalse:
			return buildGt(typ, op2.LowerBound()), true
		default:
			return r, true
		}
	},
	op2Range: func(typ wint.Type, lhs, op1 irange.Range) (irange.Range, bool) {
		if op1.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsFalse:
			return buildLt(typ, op1.UpperBound()), true
		case brsTrue:
			return buildGe(typ, op1.LowerBound()), true
		default:
			return r, true
		}
	},
}

var opGt = &operator{
	fold: func(typ wint.Type, op1, op2 irange.Range) irange.Range {
		if op1.Undefined() || op2.Undefined() {
			return irange.Varying(typ)
		}
		switch {
		case op1.LowerBound().Cmp(op2.UpperBound()) > 0:
			return irange.True()
		case op1.UpperBound().Cmp(op2.LowerBound()) <= 0:
			return irange.False()
		}
		return irange.TrueAndFalse()
	},
	op1Range: func(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
		if op2.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsTrue:
			return buildGt(typ, op2.LowerBound()), true
		case brsFalse:
			return buildLe(typ, op2.UpperBound()), true
		default:
			return r, true
		}
	},
	op2Range: func(typ wint.Type, lhs, op1 irange.Range) (irange.Range, bool) {
		if op1.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsFalse:
			return buildGe(typ, op1.LowerBound()), true
		case brsTrue:
			return buildLt(typ, op1.UpperBound()), true
		default:
			return r, true
		}
	},
}

var opGe = &operator{
	fold: func(typ wint.Type, op1, op2 irange.Range) irange.Range {
		if op1.Undefined() || op2.Undefined() {
			return irange.Varying(typ)
		}
		switch {
		case op1.LowerBound().Cmp(op2.UpperBound()) >= 0:
			return irange.True()
		case op1.UpperBound().Cmp(op2.LowerBound()) < 0:
			return irange.False()
		}
		return irange.TrueAndFalse()
	},
	op1Range: func(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
		if op2.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsTrue:
			return buildGe(typ, op2.LowerBound()), true
		case brsFalse:
			return buildLt(typ, op2.UpperBound()), true
		default:
			return r, true
		}
	},
	op2Range: func(typ wint.Type, lhs, op1 irange.Range) (irange.Range, bool) {
		if op1.Undefined() {
			return irange.Varying(typ), true
		}
		switch state, r := getBoolState(lhs, typ); state {
		case brsFalse:
			return buildGt(typ, op1.LowerBound()), true
		case brsTrue:
			return buildLe(typ, op1.UpperBound()), true
		default:
			return r, true
		}
	},
}
