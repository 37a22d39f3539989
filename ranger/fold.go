package ranger

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
	"honnef.co/go/ranger/rangeop"
	"honnef.co/go/ranger/wint"
)

// LoopBounds supplies externally computed bounds for loop phis, such as
// iteration counts from a loop analysis.
type LoopBounds interface {
	// PhiBounds returns a range known to contain every value phi takes.
	PhiBounds(phi *mir.Phi) (irange.Range, bool)
}

// A Folder evaluates single statements over operand ranges drawn from a
// Source. The zero value is ready to use.
type Folder struct {
	// Bounds, when set, refines the result of every non-pointer phi.
	Bounds LoopBounds
	// Final marks evaluation after all folding opportunities have been
	// spent; constant_p then resolves to 0 for anything not yet constant.
	Final bool
}

// FoldStmt computes the range instr produces. It returns false when the
// statement kind cannot be evaluated; operand resolution failures instead
// degrade the affected operand to varying.
func (f *Folder) FoldStmt(instr mir.Instr, src Source) (irange.Range, bool) {
	switch instr := instr.(type) {
	case *mir.Const:
		return irange.FromVal(instr.X), true
	case *mir.BinOp:
		return f.rangeOfBinOp(instr, src), true
	case *mir.UnOp:
		return f.rangeOfUnOp(instr, src), true
	case *mir.Phi:
		return f.rangeOfPhi(instr, src), true
	case *mir.Call:
		return f.rangeOfCall(instr, src)
	case *mir.Select:
		return f.rangeOfSelect(instr, src), true
	case *mir.Addr:
		src.RegisterDependency(instr, instr.X)
		base := f.operand(instr.X, src)
		return rangeop.FoldAddr(instr.Type(), base), true
	default:
		return irange.Range{}, false
	}
}

// operand resolves one operand, degrading to varying when the source has
// nothing to say.
func (f *Folder) operand(v mir.Value, src Source) irange.Range {
	if r, ok := src.RangeOf(v); ok {
		return r
	}
	return irange.Varying(v.Type())
}

func (f *Folder) rangeOfBinOp(instr *mir.BinOp, src Source) irange.Range {
	typ := instr.Type()
	if !rangeop.Handled(instr.Op, typ) {
		return irange.Varying(typ)
	}
	src.RegisterDependency(instr, instr.X)
	src.RegisterDependency(instr, instr.Y)
	lh := f.operand(instr.X, src)
	rh := f.operand(instr.Y, src)
	return rangeop.Fold(instr.Op, typ, lh, rh)
}

func (f *Folder) rangeOfUnOp(instr *mir.UnOp, src Source) irange.Range {
	typ := instr.Type()
	if !rangeop.Handled(instr.Op, typ) {
		return irange.Varying(typ)
	}
	src.RegisterDependency(instr, instr.X)
	lh := f.operand(instr.X, src)
	// Unary operations take the varying of the result type as their
	// second operand; casts read the target type from it.
	return rangeop.Fold(instr.Op, typ, lh, irange.Varying(typ))
}

// rangeOfPhi unions the argument range per incoming edge, stopping early
// once nothing more can be learned.
func (f *Folder) rangeOfPhi(phi *mir.Phi, src Source) irange.Range {
	typ := phi.Type()
	r := irange.Undefined(typ)
	b := phi.Block()
	for i, arg := range phi.Edges {
		e := mir.Edge{From: b.Preds[i], To: b}
		argRange, ok := src.RangeOfPhiArg(arg, e)
		if !ok {
			argRange = irange.Varying(typ)
		}
		r.Union(argRange)
		if _, isConst := arg.(*mir.Const); !isConst {
			src.RegisterDependency(phi, arg)
		}
		if r.Varying() {
			break
		}
	}
	if f.Bounds != nil && !typ.Pointer {
		if lr, ok := f.Bounds.PhiBounds(phi); ok {
			r.Intersect(lr)
		}
	}
	return r
}

func (f *Folder) rangeOfSelect(instr *mir.Select, src Source) irange.Range {
	cond := f.operand(instr.Cond, src)
	r1 := f.operand(instr.Then, src)
	r2 := f.operand(instr.Else, src)

	// If the condition is known, choose the appropriate arm.
	if _, ok := cond.Singleton(); ok {
		if cond.ZeroP() {
			return r2
		}
		return r1
	}
	r1.Union(r2)
	return r1
}

func (f *Folder) rangeOfCall(call *mir.Call, src Source) (irange.Range, bool) {
	typ := call.Type()
	arg := call.Args[0]

	switch call.Builtin {
	case mir.ConstantP:
		if f.Final {
			return irange.Zero(typ), true
		}
		if r, ok := src.RangeOf(arg); ok {
			if _, single := r.Singleton(); single {
				return irange.FromVal(wint.One(typ)), true
			}
		}
		return irange.Range{}, false

	case mir.Ffs, mir.Popcount:
		// ffs and popcount return [0, prec].
		prec := int(arg.Type().Bits)
		mini, maxi := 0, prec
		r := f.operand(arg, src)
		// If arg is non-zero, then ffs and popcount are non-zero.
		if !r.Contains(wint.Zero(arg.Type())) {
			mini = 1
		}
		// If some high bits are known to be zero, decrease the maximum.
		if !r.Undefined() {
			if r.Type().Signed {
				r = rangeop.Cast(r, wint.Type{Bits: r.Type().Bits})
			}
			maxi = r.UpperBound().FloorLog2() + 1
		}
		return irange.NewInt(typ, mini, maxi), true

	case mir.Parity:
		return irange.NewInt(typ, 0, 1), true

	case mir.Clz, mir.ClzZero:
		// clz returns [0, prec-1], except when the argument is 0. The
		// plain variant treats a zero argument as undefined behavior; the
		// zero-defined variant returns prec for it.
		argType := arg.Type()
		prec := int(argType.Bits)
		mini, maxi := 0, prec-1
		if call.Builtin == mir.ClzZero {
			maxi = prec
		}
		r := f.operand(arg, src)
		if !r.Undefined() {
			// From clz of the minimum we can compute the result maximum.
			lb := r.LowerBound()
			if lb.CmpSign(wint.Zero(argType), argType.Signed) > 0 {
				maxi = prec - 1 - lb.FloorLog2()
			} else if !r.Contains(wint.Zero(argType)) {
				mini = 0
				maxi = prec - 1
			}
			// From clz of the maximum we can compute the result minimum.
			ub := r.UpperBound()
			if ub == wint.Zero(argType) {
				// The argument is [0, 0]; only the zero-defined variant
				// has an answer for it.
				if maxi == prec {
					mini = prec
				}
			} else {
				mini = prec - 1 - ub.FloorLog2()
			}
		}
		return irange.NewInt(typ, mini, maxi), true

	case mir.Ctz, mir.CtzZero:
		// ctz returns [0, prec-1], with the same treatment of a zero
		// argument as clz. The zero-defined variant returns prec.
		argType := arg.Type()
		prec := int(argType.Bits)
		mini, maxi := 0, prec-1
		if call.Builtin == mir.CtzZero {
			maxi = prec
		}
		r := f.operand(arg, src)
		if !r.Undefined() {
			// If arg is non-zero, then use [0, prec - 1].
			if !r.Contains(wint.Zero(argType)) {
				mini = 0
				maxi = prec - 1
			}
			ub := r.UpperBound()
			if ub == wint.Zero(argType) {
				if maxi == prec {
					mini = prec
				}
			} else if maxi != prec {
				// If the value at zero is prec and 0 is in the range, the
				// upper bound cannot be lowered without splitting the
				// result into [0, floor_log2(max)] and [prec, prec].
				maxi = ub.FloorLog2()
			}
		}
		return irange.NewInt(typ, mini, maxi), true

	case mir.Clrsb:
		prec := int(arg.Type().Bits)
		return irange.NewInt(typ, 0, prec-1), true

	case mir.CheckedAdd:
		return f.rangeOfCheckedCall(call, mir.Add, src), true
	case mir.CheckedSub:
		return f.rangeOfCheckedCall(call, mir.Sub, src), true
	case mir.CheckedMul:
		return f.rangeOfCheckedCall(call, mir.Mul, src), true

	case mir.Strlen:
		// The maximum length leaves room for the terminating NUL in the
		// largest representable object.
		if typ.Bits == 64 {
			max := wint.Type{Bits: 64, Signed: true}.Max()
			max, _ = max.Sub(wint.New(max.Type(), 2))
			return irange.New(typ, wint.Zero(typ), wint.FromBits(typ, max.Bits())), true
		}
		return irange.Range{}, false

	default:
		return irange.Range{}, false
	}
}

// rangeOfCheckedCall folds overflow-checked arithmetic. The arithmetic is
// treated as wrapping; a singleton result is widened back to varying so a
// check that merely wasn't folded earlier is not optimized away.
func (f *Folder) rangeOfCheckedCall(call *mir.Call, op mir.Op, src Source) irange.Range {
	typ := call.Type()
	lh := f.operand(call.Args[0], src)
	rh := f.operand(call.Args[1], src)
	r := rangeop.FoldWrapv(op, typ, lh, rh)
	if _, ok := r.Singleton(); ok {
		return irange.Varying(typ)
	}
	return r
}

// FoldStmt evaluates instr using only globally known operand ranges.
func FoldStmt(instr mir.Instr) (irange.Range, bool) {
	var f Folder
	return f.FoldStmt(instr, newListSource(nil, nil))
}

// FoldStmtWith evaluates instr with the supplied operand ranges, in
// operand order. Missing trailing ranges resolve globally.
func FoldStmtWith(instr mir.Instr, ranges ...irange.Range) (irange.Range, bool) {
	var f Folder
	return f.FoldStmt(instr, newListSource(nil, ranges))
}

// FoldStmtOnEdge evaluates instr as if it were reached over e, resolving
// operands through q.
func FoldStmtOnEdge(q Query, instr mir.Instr, e mir.Edge) (irange.Range, bool) {
	var f Folder
	return f.FoldStmt(instr, &edgeSource{e: e, q: q})
}
