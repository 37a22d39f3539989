package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

// Adjacent pairs of {+, -} transfers solve each other: if lhs = X + op2
// then X = lhs - op2. The inversions below fold through foldPairs with
// the sibling's per-pair primitive.

var opPlus = &operator{
	wiFold:   plusWiFold,
	op1Range: plusOp1,
	op2Range: plusOp1,
}

func plusWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	newLB, ovLB := lhLB.Add(rhLB)
	newUB, ovUB := lhUB.Add(rhUB)
	return withOverflow(typ, newLB, newUB, ovLB, ovUB)
}

func plusOp1(typ wint.Type, lhs, other irange.Range) (irange.Range, bool) {
	return foldPairs(minusWiFold, typ, lhs, other), true
}

var opMinus = &operator{
	wiFold:   minusWiFold,
	op1Range: minusOp1,
	op2Range: minusOp2,
}

func minusWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	newLB, ovLB := lhLB.Sub(rhUB)
	newUB, ovUB := lhUB.Sub(rhLB)
	return withOverflow(typ, newLB, newUB, ovLB, ovUB)
}

func minusOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	return foldPairs(plusWiFold, typ, lhs, op2), true
}

// If lhs = op1 - X then X = op1 - lhs.
func minusOp2(typ wint.Type, lhs, op1 irange.Range) (irange.Range, bool) {
	return foldPairs(minusWiFold, typ, op1, lhs), true
}

var opMin = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		newLB := lhLB.Min(rhLB)
		newUB := lhUB.Min(rhUB)
		return withOverflow(typ, newLB, newUB, wint.None, wint.None)
	},
}

var opMax = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		newLB := lhLB.Max(rhLB)
		newUB := lhUB.Max(rhUB)
		return withOverflow(typ, newLB, newUB, wint.None, wint.None)
	},
}

// An overflowFunc computes one corner of a cross product. It reports an
// overflow that has no representable result; overflow with a usable
// saturated result is folded into the returned value instead.
type overflowFunc func(typ wint.Type, w0, w1 wint.Val) (wint.Val, bool)

// crossProduct folds a pair combination by evaluating the four corner
// operations and spanning from their minimum to their maximum. Any corner
// whose overflow cannot be represented makes the result varying.
func crossProduct(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val, over overflowFunc) irange.Range {
	var cp1, cp2, cp3, cp4 wint.Val
	var bad bool

	if cp1, bad = over(typ, lhLB, rhLB); bad {
		return irange.Varying(typ)
	}
	if lhLB == lhUB {
		cp3 = cp1
	} else if cp3, bad = over(typ, lhUB, rhLB); bad {
		return irange.Varying(typ)
	}
	if rhLB == rhUB {
		cp4 = cp3
	} else if cp4, bad = over(typ, lhUB, rhUB); bad {
		return irange.Varying(typ)
	}
	if lhLB == lhUB {
		cp2 = cp4
	} else if cp2, bad = over(typ, lhLB, rhUB); bad {
		return irange.Varying(typ)
	}

	if cp1.Cmp(cp2) > 0 {
		cp1, cp2 = cp2, cp1
	}
	if cp3.Cmp(cp4) > 0 {
		cp3, cp4 = cp4, cp3
	}
	resLB := cp1.Min(cp3)
	resUB := cp2.Max(cp4)
	return withOverflow(typ, resLB, resUB, wint.None, wint.None)
}

var opMult = &operator{
	wiFold:   multWiFold,
	op1Range: multOp1,
	op2Range: multOp1,
}

func multOverflow(typ wint.Type, w0, w1 wint.Val) (wint.Val, bool) {
	res, ovf := w0.Mul(w1)
	if ovf != wint.None && !overflowWraps(typ) {
		// The sign of the overflow is given by the signs of the operands.
		if !typ.Signed || (w0.Sign() < 0) == (w1.Sign() < 0) {
			return typ.Max(), false
		}
		return typ.Min(), false
	}
	return res, ovf != wint.None
}

func multOp1(typ wint.Type, lhs, other irange.Range) (irange.Range, bool) {
	// We can't solve 0 = X * N by dividing by N with a wrapping type.
	// For 0 = X * 2, X could be 0 or MIN; for 4 = X * 2, X could be 2
	// or 2^(prec-1)+2.
	if overflowWraps(typ) {
		return irange.Range{}, false
	}
	if v, ok := other.Singleton(); ok && !v.IsZero() {
		return foldPairs(divTruncWiFold, typ, lhs, other), true
	}
	return irange.Range{}, false
}

func multWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	if !overflowWraps(typ) {
		return crossProduct(typ, lhLB, lhUB, rhLB, rhUB, multOverflow)
	}

	// Overflow wraps, so compute the products exactly at double
	// precision and see whether the span still fits in the type.
	prec := uint(typ.Bits)
	sizem1 := wint.WideMask(prec)
	size := sizem1.Add(wint.WideFromInt64(1))
	min0, max0 := lhLB.Wide(), lhUB.Wide()
	min1, max1 := rhLB.Wide(), rhUB.Wide()

	// Canonicalize unsigned intervals so each straddles zero in at most
	// one direction.
	if !typ.Signed {
		if size.CmpU(min0.Add(max0)) < 0 {
			min0 = min0.Sub(size)
			max0 = max0.Sub(size)
		}
		if size.CmpU(min1.Add(max1)) < 0 {
			min1 = min1.Sub(size)
			max1 = max1.Sub(size)
		}
	}

	prod0 := min0.Mul(min1)
	prod1 := min0.Mul(max1)
	prod2 := max0.Mul(min1)
	prod3 := max0.Mul(max1)

	// Sort the products so the minimum lands in prod0 and the maximum
	// in prod3.
	if prod0.Cmp(prod3) > 0 {
		prod0, prod3 = prod3, prod0
	}
	if prod1.Cmp(prod2) > 0 {
		prod1, prod2 = prod2, prod1
	}
	if prod0.Cmp(prod1) > 0 {
		prod0, prod1 = prod1, prod0
	}
	if prod2.Cmp(prod3) > 0 {
		prod2, prod3 = prod3, prod2
	}

	// diff = max - min
	prod2 = prod3.Sub(prod0)
	if prod2.CmpU(sizem1) >= 0 {
		// The range covers all values.
		return irange.Varying(typ)
	}

	newLB := prod0.Trunc(typ)
	newUB := prod3.Trunc(typ)
	return possiblyReversed(typ, newLB, newUB)
}

var (
	opDivTrunc = &operator{wiFold: divTruncWiFold}
	opDivFloor = &operator{wiFold: divFloorWiFold}
	opDivCeil  = &operator{wiFold: divCeilWiFold}
	opDivRound = &operator{wiFold: divRoundWiFold}
)

func divTruncWiFold(typ wint.Type, a, b, c, d wint.Val) irange.Range {
	return divWiFold(wint.Val.DivTrunc, typ, a, b, c, d)
}
func divFloorWiFold(typ wint.Type, a, b, c, d wint.Val) irange.Range {
	return divWiFold(wint.Val.DivFloor, typ, a, b, c, d)
}
func divCeilWiFold(typ wint.Type, a, b, c, d wint.Val) irange.Range {
	return divWiFold(wint.Val.DivCeil, typ, a, b, c, d)
}
func divRoundWiFold(typ wint.Type, a, b, c, d wint.Val) irange.Range {
	return divWiFold(wint.Val.DivRound, typ, a, b, c, d)
}

func divWiFold(quot func(wint.Val, wint.Val) (wint.Val, wint.Overflow), typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	over := func(typ wint.Type, w0, w1 wint.Val) (wint.Val, bool) {
		if w1.IsZero() {
			return wint.Val{}, true
		}
		res, ovf := quot(w0, w1)
		if ovf != wint.None && !overflowWraps(typ) {
			// The only case is MIN / -1 = MAX+1; saturate.
			return typ.Max(), false
		}
		return res, ovf != wint.None
	}

	// If the divisor is known nonzero, just do the division.
	if !includesZero(rhLB, rhUB) {
		return crossProduct(typ, lhLB, lhUB, rhLB, rhUB, over)
	}

	// With non-call exceptions a trapping division by zero must not be
	// folded away.
	if NonCallExceptions {
		return irange.Varying(typ)
	}

	// Definitely dividing by zero.
	if rhLB.IsZero() && rhUB.IsZero() {
		return irange.Varying(typ)
	}

	// Perform the division in two parts, [LB, -1] and [1, UB], skipping
	// the division by zero.
	r := irange.Undefined(typ)
	if rhLB.Sign() < 0 {
		r = crossProduct(typ, lhLB, lhUB, rhLB, wint.MinusOne(typ), over)
	}
	if rhUB.Sign() > 0 {
		r.Union(crossProduct(typ, lhLB, lhUB, wint.One(typ), rhUB, over))
	}
	return r
}

func includesZero(lb, ub wint.Val) bool {
	return lb.Sign() <= 0 && ub.Sign() >= 0
}

// Division known to be remainder-free divides like truncating division,
// but inverts precisely: [6, 12] = X / {3} gives X = [18, 36] with no
// endpoint slop.
var opDivExact = &operator{
	wiFold:   divTruncWiFold,
	op1Range: exactDivOp1,
}

func exactDivOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	if v, ok := op2.Singleton(); ok && !v.IsZero() {
		return foldPairs(multWiFold, typ, lhs, op2), true
	}
	return irange.Range{}, false
}

var opTruncMod = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
		// Mod 0 is undefined; give up.
		if rhLB.IsZero() && rhUB.IsZero() {
			return irange.Varying(typ)
		}

		// ABS(A % B) < ABS(B) and either 0 <= A%B <= A or A <= A%B <= 0.
		newUB, _ := rhUB.Sub(wint.One(typ))
		var newLB wint.Val
		if typ.Signed {
			tmp, _ := wint.MinusOne(typ).Sub(rhLB)
			if tmp.CmpSign(newUB, true) > 0 {
				newUB = tmp
			}
			newLB, _ = newUB.Neg()
			tmp = lhLB
			if tmp.CmpSign(wint.Zero(typ), true) > 0 {
				tmp = wint.Zero(typ)
			}
			if tmp.CmpSign(newLB, true) > 0 {
				newLB = tmp
			}
		} else {
			newLB = wint.Zero(typ)
		}
		tmp := lhUB
		if typ.Signed && tmp.Sign() < 0 {
			tmp = wint.Zero(typ)
		}
		newUB = newUB.Min(tmp)

		return withOverflow(typ, newLB, newUB, wint.None, wint.None)
	},
}
