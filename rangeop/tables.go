package rangeop

import "honnef.co/go/ranger/mir"

// The tables are the only place operators are reachable from; everything
// else goes through lookup. Missing entries mean the operation carries no
// range information for that type class.

var integralTable = [mir.NumOps]*operator{
	mir.Add:      opPlus,
	mir.Sub:      opMinus,
	mir.Mul:      opMult,
	mir.DivTrunc: opDivTrunc,
	mir.DivFloor: opDivFloor,
	mir.DivCeil:  opDivCeil,
	mir.DivRound: opDivRound,
	mir.DivExact: opDivExact,
	mir.Mod:      opTruncMod,
	mir.Min:      opMin,
	mir.Max:      opMax,
	mir.BitAnd:   opBitAnd,
	mir.BitOr:    opBitOr,
	mir.BitXor:   opBitXor,
	mir.Lsh:      opLshift,
	mir.Rsh:      opRshift,

	mir.Eq: opEqual,
	mir.Ne: opNotEqual,
	mir.Lt: opLt,
	mir.Le: opLe,
	mir.Gt: opGt,
	mir.Ge: opGe,

	mir.LogicalAnd: opLogicalAnd,
	mir.LogicalOr:  opLogicalOr,
	mir.LogicalNot: opLogicalNot,

	mir.Neg:    opNegate,
	mir.BitNot: opBitNot,
	mir.Abs:    opAbs,
	mir.Absu:   opAbsu,
	mir.Cast:   opCast,
	mir.Copy:   opIdentity,
}

var pointerTable = [mir.NumOps]*operator{
	mir.PtrPlus: opPointerPlus,
	mir.Min:     opPtrMinMax,
	mir.Max:     opPtrMinMax,
	mir.BitAnd:  opPointerAnd,
	mir.BitOr:   opPointerOr,
	mir.BitXor:  opBitXor,
	mir.BitNot:  opBitNot,

	mir.Eq: opEqual,
	mir.Ne: opNotEqual,
	mir.Lt: opLt,
	mir.Le: opLe,
	mir.Gt: opGt,
	mir.Ge: opGe,

	mir.Cast: opCast,
	mir.Copy: opIdentity,
}
