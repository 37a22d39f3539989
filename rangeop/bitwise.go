package rangeop

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/wint"
)

// shiftOutOfRange filters shift counts. Shifting by anything outside
// [0, prec) is undefined behavior, so such a count yields no information.
func shiftOutOfRange(typ wint.Type, op irange.Range) (irange.Range, bool) {
	if op.Undefined() {
		return irange.Undefined(typ), true
	}
	prec := wint.New(op.Type(), int64(typ.Bits))
	if op.LowerBound().Sign() < 0 || op.UpperBound().Cmp(prec) >= 0 {
		return irange.Varying(typ), true
	}
	return irange.Range{}, false
}

var opLshift = &operator{
	fold:     lshiftFold,
	op1Range: lshiftOp1,
}

func lshiftFold(typ wint.Type, op1, op2 irange.Range) irange.Range {
	if r, done := shiftOutOfRange(typ, op2); done {
		return r
	}

	// Transform left shifts by constants into multiplies.
	if v, ok := op2.Singleton(); ok {
		mult := irange.FromVal(wint.Bit(typ, uint(v.Uint64())))

		// Force wrapping multiplication.
		saved := flagWrapv
		flagWrapv = true
		r := foldPairs(multWiFold, typ, op1, mult)
		flagWrapv = saved
		return r
	}
	return foldPairs(lshiftWiFold, typ, op1, op2)
}

func lshiftWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	prec := int(typ.Bits)
	overflowPos := prec
	if typ.Signed {
		overflowPos = prec - 1
	}
	boundShift := overflowPos - int(rhUB.Int64())
	// If boundShift == prec, the bound computation wraps to zero. For
	// that to happen rhUB needs to be zero, making op2 a singleton,
	// which lshiftFold already transformed into a multiply.
	bound := wint.Bit(typ, uint(boundShift))
	bm1, _ := bound.Sub(wint.One(typ))
	complement := bm1.Not()
	inBounds := false

	if !typ.Signed {
		lowBound, highBound := bound, complement
		if lhUB.CmpSign(lowBound, false) < 0 {
			// [5, 6] << [1, 2] == [10, 24]: shifting out only zeroes,
			// the value increases monotonically.
			inBounds = true
		} else if highBound.CmpSign(lhLB, false) < 0 {
			// [0xffffff00, 0xffffffff] << [1, 2]
			// == [0xfffffc00, 0xfffffffe]: shifting out only ones, the
			// value decreases monotonically.
			inBounds = true
		}
	} else {
		// [-1, 1] << [1, 2] == [-4, 4]
		lowBound, highBound := complement, bound
		if lhUB.CmpSign(highBound, true) < 0 && lowBound.CmpSign(lhLB, true) < 0 {
			inBounds = true
		}
	}

	if inBounds {
		return crossProduct(typ, lhLB, lhUB, rhLB, rhUB, lshiftOverflow)
	}
	return irange.Varying(typ)
}

func lshiftOverflow(typ wint.Type, w0, w1 wint.Val) (wint.Val, bool) {
	// Whether shifts can overflow is unclear from the C standard;
	// ignore overflow here.
	if w1.Sign() < 0 {
		return w0.Rsh(uint(-w1.Int64())), false
	}
	return w0.Lsh(uint(w1.Uint64())), false
}

func lshiftOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	v, ok := op2.Singleton()
	if !ok || v.Sign() < 0 {
		return irange.Range{}, false
	}
	shift := uint(v.Uint64())
	if shift >= uint(typ.Bits) {
		return irange.Range{}, false
	}
	if shift == 0 {
		return lhs, true
	}

	// Work completely in unsigned mode to start.
	utype := wint.Type{Bits: typ.Bits}
	var r irange.Range
	if typ.Signed {
		tmp := Cast(lhs, utype)
		r = rshiftFold(utype, tmp, op2)
	} else {
		r = rshiftFold(utype, lhs, op2)
	}

	// Start with the ranges which can produce the LHS by right shifting
	// the result by the shift amount:
	//    [0x08, 0xF0] = op1 << 2 starts with
	//    [00001000, 11110000] = op1 << 2
	//    [0x02, 0x4C] aka [00000010, 00111100]
	//
	// Then create a range from the LB with the least significant upper
	// bit set, to the upper bound with all the bits set. That is
	// [0x42, 0xFC] aka [01000010, 11111100] in the example.
	//
	// Ideally this is done per subrange, but lump them all for now.
	lowBits := uint(utype.Bits) - shift
	upMask := wint.Mask(utype, lowBits, true)
	newUB := upMask.Or(r.UpperBound())
	newLB := r.LowerBound().Or(wint.Bit(utype, lowBits))
	r.Union(irange.New(utype, newLB, newUB))

	if utype != typ {
		r = Cast(r, typ)
	}
	return r, true
}

var opRshift = &operator{
	fold:     rshiftFold,
	op1Range: rshiftOp1,
}

func rshiftFold(typ wint.Type, op1, op2 irange.Range) irange.Range {
	if r, done := shiftOutOfRange(typ, op2); done {
		return r
	}
	return foldPairs(rshiftWiFold, typ, op1, op2)
}

func rshiftWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	return crossProduct(typ, lhLB, lhUB, rhLB, rhUB, rshiftOverflow)
}

func rshiftOverflow(typ wint.Type, w0, w1 wint.Val) (wint.Val, bool) {
	if w1.Sign() < 0 {
		return w0.Lsh(uint(-w1.Int64())), false
	}
	return w0.Rsh(uint(w1.Uint64())), false
}

func rshiftOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	v, ok := op2.Singleton()
	if !ok || v.Sign() < 0 || uint(v.Uint64()) >= uint(typ.Bits) {
		return irange.Range{}, false
	}
	shift := uint(v.Uint64())

	// Folding the original operation may discard some impossible ranges
	// from the LHS.
	lhsRefined := rshiftFold(typ, irange.Varying(typ), op2)
	lhsRefined.Intersect(lhs)
	if lhsRefined.Undefined() {
		return irange.Undefined(typ), true
	}

	//    LHS
	// 0000 0111 = OP1 >> 3
	//
	// OP1 is anything from 0011 1000 to 0011 1111. That is, a range
	// from LHS<<3 plus a mask of the 3 bits we shifted on the right
	// hand side (0x07).
	shiftRange := irange.FromVal(v)
	lb := lshiftFold(typ, lhsRefined, shiftRange)
	mask := wint.MinusOne(typ).Lsh(shift).Not()
	maskRange := irange.New(typ, wint.Zero(typ), mask)
	ub := foldPairs(plusWiFold, typ, lb, maskRange)
	r := lb
	r.Union(ub)
	if !lhsRefined.Contains(wint.Zero(typ)) {
		maskRange.Invert()
		r.Intersect(maskRange)
	}
	return r, true
}

// zeroNonzeroBits computes two bit masks for [lb, ub]. A bit unset in
// maybe means the bit is 0 for all members; a bit set in mustbe means the
// bit is 1 for all members.
func zeroNonzeroBits(typ wint.Type, lb, ub wint.Val) (maybe, mustbe wint.Val) {
	if lb == ub {
		return lb, lb
	}
	if lb.Sign() >= 0 || ub.Sign() < 0 {
		xorMask := lb.Xor(ub)
		maybe = lb.Or(ub)
		mustbe = lb.And(ub)
		if !xorMask.IsZero() {
			mask := wint.Mask(typ, uint(xorMask.FloorLog2()), false)
			maybe = maybe.Or(mask)
			mustbe = mustbe.And(mask.Not())
		}
		return maybe, mustbe
	}
	return wint.MinusOne(typ), wint.Zero(typ)
}

// optimizeAndOr handles [LB, UB] op Z for a singleton Z whose pattern
// preserves enough bits to fold directly into [LB op Z, UB op Z].
func optimizeAndOr(typ wint.Type, or bool, lhLB, lhUB, rhLB, rhUB wint.Val) (irange.Range, bool) {
	// Calculate the singleton mask among the ranges, if any.
	var mask, lower, upper wint.Val
	switch {
	case rhLB == rhUB:
		mask, lower, upper = rhLB, lhLB, lhUB
	case lhLB == lhUB:
		mask, lower, upper = lhLB, rhLB, rhUB
	default:
		return irange.Range{}, false
	}

	// If Z (for AND; its complement for OR) has n consecutive least
	// significant bits cleared followed by m consecutive bits set
	// immediately above, and either m + n == precision or
	// (x >> (m+n)) == (y >> (m+n)): the low n bits of every member are
	// cleared or set, the m bits above are preserved, and all bits
	// above those agree across the range.
	w := mask
	if or {
		w = w.Not()
	}
	prec := int(typ.Bits)
	var m, n int
	if w.IsZero() {
		n = prec
	} else {
		n = w.TrailingZeros()
		w = w.Or(wint.Mask(typ, uint(n), false)).Not()
		if w.IsZero() {
			m = prec - n
		} else {
			m = w.TrailingZeros() - n
		}
	}
	newMask := wint.Mask(typ, uint(m+n), true)
	if newMask.And(lower) != newMask.And(upper) {
		return irange.Range{}, false
	}

	var resLB, resUB wint.Val
	if or {
		resLB, resUB = lower.Or(mask), upper.Or(mask)
	} else {
		resLB, resUB = lower.And(mask), upper.And(mask)
	}
	return withOverflow(typ, resLB, resUB, wint.None, wint.None), true
}

var opBitAnd = &operator{
	wiFold:   bitAndWiFold,
	op1Range: bitAndOp1,
	op2Range: bitAndOp1,
}

func bitAndWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	if r, ok := optimizeAndOr(typ, false, lhLB, lhUB, rhLB, rhUB); ok {
		return r
	}

	maybeLH, mustbeLH := zeroNonzeroBits(typ, lhLB, lhUB)
	maybeRH, mustbeRH := zeroNonzeroBits(typ, rhLB, rhUB)
	newLB := mustbeLH.And(mustbeRH)
	newUB := maybeLH.And(maybeRH)

	// If both inputs contain only negative values, the result maximum
	// truncates to the smaller of the input maxima.
	if lhUB.Sign() < 0 && rhUB.Sign() < 0 {
		newUB = newUB.Min(lhUB)
		newUB = newUB.Min(rhUB)
	}
	// If either input contains only non-negative values, the result
	// maximum truncates to that input's maximum.
	if lhLB.Sign() >= 0 {
		newUB = newUB.Min(lhUB)
	}
	if rhLB.Sign() >= 0 {
		newUB = newUB.Min(rhUB)
	}
	// A signed value ANDed with a constant sign bit gives [-INF, 0]
	// rather than [-INF, +INF].
	if newLB.Cmp(newUB) > 0 {
		signBit := wint.Bit(typ, uint(typ.Bits-1))
		if typ.Signed &&
			((lhLB == lhUB && lhLB == signBit) ||
				(rhLB == rhUB && rhLB == signBit)) {
			newLB = typ.Min()
			newUB = wint.Zero(typ)
		}
	}
	// If the limits are still swapped around, return varying.
	if newLB.Cmp(newUB) > 0 {
		return irange.Varying(typ)
	}
	return withOverflow(typ, newLB, newUB, wint.None, wint.None)
}

func nonzeroFromMask(typ wint.Type, lhs irange.Range) irange.Range {
	if !lhs.Contains(wint.Zero(lhs.Type())) {
		return irange.Nonzero(typ)
	}
	return irange.Varying(typ)
}

// maskedIncrement returns the smallest value greater than val whose bits
// are a subset of mask, adjusted by sgnbit for signed orderings, or val
// itself if no such value exists.
func maskedIncrement(valIn, mask, sgnbit wint.Val, prec uint) wint.Val {
	typ := valIn.Type()
	one := wint.One(typ)
	bit := one
	val := valIn.Xor(sgnbit)
	for i := uint(0); i < prec; i++ {
		if !mask.And(bit).IsZero() {
			low, _ := bit.Sub(one)
			sum, _ := val.Add(bit)
			res := sum.And(low.Not()).And(mask)
			if res.CmpSign(val, false) > 0 {
				return res.Xor(sgnbit)
			}
		}
		bit, _ = bit.Add(bit)
	}
	return valIn
}

// simpleAndSolver solves one contiguous chunk of LHS = X & MASK for X.
func simpleAndSolver(typ wint.Type, lhs, op2 irange.Range) irange.Range {
	if _, ok := op2.Singleton(); !ok {
		return nonzeroFromMask(typ, lhs)
	}
	prec := uint(typ.Bits)
	cst2v := op2.LowerBound()
	cst2n := cst2v.Sign() < 0
	sgnbit := wint.Zero(typ)
	if cst2n {
		sgnbit = wint.Bit(typ, prec-1)
	}

	// Solve [lhs.LowerBound(), +INF] = x & MASK.
	//
	// The minimum unsigned value with (VAL & CST2) == VAL is VAL and the
	// maximum is ~0. For signed orderings with the mask's MSB clear the
	// same reasoning holds; with MSB set the maximum becomes ~0U/2.
	valv := lhs.LowerBound()
	minv := valv.And(cst2v)
	weKnowNothing := false
	if minv != valv {
		// If (VAL & CST2) != VAL, X & CST2 can't equal VAL.
		minv = maskedIncrement(valv, cst2v, sgnbit, prec)
		if minv == valv {
			// Nothing known on this bound; conservatively solve for
			// the other end point.
			weKnowNothing = true
		}
	}
	width := prec
	if cst2n {
		width = prec - 1
	}
	maxv := wint.Mask(typ, width, false)
	var r irange.Range
	if weKnowNothing {
		r = irange.Varying(typ)
	} else {
		r = possiblyReversed(typ, minv, maxv)
	}

	// Solve [-INF, lhs.UpperBound()] = x & MASK.
	//
	// The minimum unsigned value is 0 and the maximum is VAL | ~CST2 if
	// (VAL & CST2) == VAL; otherwise find the smallest VAL2 with
	// VAL2 > VAL && (VAL2 & CST2) == VAL2 and use (VAL2 - 1) | ~CST2.
	valv = lhs.UpperBound()
	minv = valv.And(cst2v)
	if minv == valv {
		maxv = valv
	} else {
		maxv = maskedIncrement(valv, cst2v, sgnbit, prec)
		if maxv == valv {
			// Nothing known on either bound.
			if weKnowNothing {
				return irange.Undefined(typ)
			}
			return r
		}
		maxv, _ = maxv.Sub(wint.One(typ))
	}
	maxv = maxv.Or(cst2v.Not())
	upperBits := possiblyReversed(typ, sgnbit, maxv)
	r.Intersect(upperBits)
	return r
}

func bitAndOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	if typ == wint.Bool {
		return logicalAndOp1(typ, lhs, op2)
	}

	r := irange.Undefined(typ)
	for i := 0; i < lhs.NumPairs(); i++ {
		lo, hi := lhs.Pair(i)
		chunk := irange.New(lhs.Type(), lo, hi)
		r.Union(simpleAndSolver(typ, chunk, op2))
	}
	if r.Undefined() {
		r = nonzeroFromMask(typ, lhs)
	}
	return r, true
}

var opBitOr = &operator{
	wiFold:   bitOrWiFold,
	op1Range: bitOrOp1,
	op2Range: bitOrOp1,
}

func bitOrWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	if r, ok := optimizeAndOr(typ, true, lhLB, lhUB, rhLB, rhUB); ok {
		return r
	}

	maybeLH, mustbeLH := zeroNonzeroBits(typ, lhLB, lhUB)
	maybeRH, mustbeRH := zeroNonzeroBits(typ, rhLB, rhUB)
	newLB := mustbeLH.Or(mustbeRH)
	newUB := maybeLH.Or(maybeRH)

	// If both inputs contain only non-negative values, the result
	// minimum grows to the larger of the input minima.
	if lhLB.Sign() >= 0 && rhLB.Sign() >= 0 {
		newLB = newLB.Max(lhLB)
		newLB = newLB.Max(rhLB)
	}
	// If either input contains only negative values, the result minimum
	// grows to that input's minimum.
	if lhUB.Sign() < 0 {
		newLB = newLB.Max(lhLB)
	}
	if rhUB.Sign() < 0 {
		newLB = newLB.Max(rhLB)
	}
	if newLB.Cmp(newUB) > 0 {
		return irange.Varying(typ)
	}
	return withOverflow(typ, newLB, newUB, wint.None, wint.None)
}

func bitOrOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	// If this is really a logical operation, solve it as one.
	if typ == wint.Bool {
		return logicalOrOp1(typ, lhs, op2)
	}

	// Nothing is known about bitwise OR of ranges beyond the zero case.
	if lhs.ZeroP() {
		return irange.Zero(typ), true
	}
	return irange.Varying(typ), true
}

var opBitXor = &operator{
	wiFold:   bitXorWiFold,
	op1Range: bitXorOp1,
	op2Range: bitXorOp1,
}

func bitXorWiFold(typ wint.Type, lhLB, lhUB, rhLB, rhUB wint.Val) irange.Range {
	maybeLH, mustbeLH := zeroNonzeroBits(typ, lhLB, lhUB)
	maybeRH, mustbeRH := zeroNonzeroBits(typ, rhLB, rhUB)

	zeroBits := mustbeLH.And(mustbeRH).Or(maybeLH.Or(maybeRH).Not())
	oneBits := mustbeLH.And(maybeRH.Not()).Or(mustbeRH.And(maybeLH.Not()))
	newUB := zeroBits.Not()
	newLB := oneBits

	// If the range has all positive or all negative values, the result
	// is better than varying.
	if newLB.Sign() < 0 || newUB.Sign() >= 0 {
		return withOverflow(typ, newLB, newUB, wint.None, wint.None)
	}
	return irange.Varying(typ)
}

func bitXorOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	if lhs.Undefined() || lhs.Varying() {
		return lhs, true
	}
	if typ == wint.Bool {
		switch state, r := getBoolState(lhs, typ); state {
		case brsTrue:
			switch {
			case op2.Varying():
				return irange.Varying(typ), true
			case op2.ZeroP():
				return irange.True(), true
			default:
				return irange.False(), true
			}
		case brsFalse:
			return op2, true
		default:
			return r, true
		}
	}
	return irange.Varying(typ), true
}

var opBitNot = &operator{
	fold:     bitNotFold,
	op1Range: bitNotOp1,
}

func bitNotFold(typ wint.Type, lh, rh irange.Range) irange.Range {
	if lh.Undefined() || rh.Undefined() {
		return irange.Varying(typ)
	}
	// ~X is simply -1 - X.
	minusOne := irange.FromVal(wint.MinusOne(typ))
	return foldPairs(minusWiFold, typ, minusOne, lh)
}

// Bitwise NOT is involutory, so the inversion folds again.
func bitNotOp1(typ wint.Type, lhs, op2 irange.Range) (irange.Range, bool) {
	return bitNotFold(typ, lhs, op2), true
}
