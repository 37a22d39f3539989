package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

var opNegate = &operator{
	fold:     negateFold,
	op1Range: negateOp1,
}

func negateFold(typ wint.Type, lh, rh irange.Range) irange.Range {
	if lh.Undefined() || rh.Undefined() {
		return irange.Varying(typ)
	}
	// -X is simply 0 - X.
	return foldPairs(minusWiFold, typ, irange.Zero(typ), lh)
}

// Negation is involutory.
func negateOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	return negateFold(typ, lhs, op2), true
}

var opAbs = &operator{
	wiFold:   absWiFold,
	op1Range: absOp1,
}

func absWiFold(typ wint.Type, lhLB, lhUB, _, _ wint.Val) irange.Range {
	// Pass through LH for the easy cases.
	if !typ.Signed || lhLB.Sign() >= 0 {
		return irange.New(typ, lhLB, lhUB)
	}

	// -MIN = MIN when wrapping, so no useful range exists.
	minValue, maxValue := typ.Min(), typ.Max()
	if overflowWraps(typ) && lhLB == minValue {
		return irange.Varying(typ)
	}

	// The absolute value may flip the range around if it included
	// negative values.
	var min, max wint.Val
	if lhLB == minValue {
		// ABS([MIN, MIN]) isn't representable; keep it as [MIN, MIN],
		// the traditional result.
		if lhUB == minValue {
			return irange.New(typ, minValue, minValue)
		}
		min = maxValue
	} else {
		min = lhLB.Abs()
	}
	if lhUB == minValue {
		max = maxValue
	} else {
		max = lhUB.Abs()
	}

	// If the range contains zero, the minimum of the result is zero.
	if lhLB.Sign() <= 0 && lhUB.Sign() >= 0 {
		if min.Cmp(max) > 0 {
			max = min
		}
		min = wint.Zero(typ)
	} else if min.Cmp(max) > 0 {
		// If the range was reversed, swap min and max.
		min, max = max, min
	}

	// If the limits are still swapped, one of them wrapped around. All
	// we know is that the result is positive.
	if min.Cmp(max) > 0 {
		min = wint.Zero(typ)
		max = maxValue
	}
	return irange.New(typ, min, max)
}

func absOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	if lhs.Undefined() || op2.Undefined() {
		return irange.Varying(typ), true
	}
	if !typ.Signed {
		return lhs, true
	}
	// Start with the positives because negatives are an impossible
	// result.
	positives := irange.New(typ, wint.Zero(typ), typ.Max())
	positives.Intersect(lhs)
	r := positives
	// Then add the negation of each pair:
	// ABS(op1) = [5, 20] yields op1 = [-20, -5] ∪ [5, 20].
	for i := 0; i < positives.NumPairs(); i++ {
		lo, hi := positives.Pair(i)
		nlo, _ := hi.Neg()
		nhi, _ := lo.Neg()
		r.Union(irange.New(typ, nlo, nhi))
	}
	return r, true
}

// The result type of opAbsu is the unsigned type of the operand's width;
// the operand bounds are still interpreted in their signed type.
var opAbsu = &operator{
	wiFold: func(typ wint.Type, lhLB, lhUB, _, _ wint.Val) irange.Range {
		var newLB, newUB wint.Val

		// Pass through the easy cases.
		if lhLB.Sign() >= 0 {
			newLB, newUB = lhLB, lhUB
		} else {
			newLB = lhLB.Abs()
			newUB = lhUB.Abs()

			// If the range contains zero, the minimum of the result
			// is zero.
			if lhUB.Sign() >= 0 {
				if newLB.CmpSign(newUB, false) > 0 {
					newUB = newLB
				}
				newLB = wint.Zero(lhLB.Type())
			} else {
				newLB, newUB = newUB, newLB
			}
		}

		return irange.New(typ, wint.FromBits(typ, newLB.Bits()), wint.FromBits(typ, newUB.Bits()))
	},
}

var opIdentity = &operator{
	fold: func(_ wint.Type, lh, _ irange.Range) irange.Range {
		return lh
	},
	op1Range: func(_ wint.Type, lhs, _ irange.Range) (irange.Range, bool) {
		return lhs, true
	},
}
