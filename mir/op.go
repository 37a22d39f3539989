package mir

import "fmt"

// Op identifies the operation a statement performs. The set is closed;
// the range-operator tables are indexed by it.
type Op uint8

const (
	BadOp Op = iota

	// binary arithmetic
	Add
	Sub
	Mul
	DivTrunc
	DivFloor
	DivCeil
	DivRound
	DivExact // division known to be remainder-free
	Mod
	Min
	Max
	BitAnd
	BitOr
	BitXor
	Lsh
	Rsh
	PtrPlus

	// comparisons; result type is bool
	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	// logical operations on bools
	LogicalAnd
	LogicalOr
	LogicalNot

	// unary
	Neg
	BitNot
	Abs
	Absu // absolute value yielding the unsigned type of the same width
	Cast
	Copy

	NumOps
)

var opNames = [NumOps]string{
	BadOp:      "badop",
	Add:        "add",
	Sub:        "sub",
	Mul:        "mul",
	DivTrunc:   "div",
	DivFloor:   "divf",
	DivCeil:    "divc",
	DivRound:   "divr",
	DivExact:   "dive",
	Mod:        "mod",
	Min:        "min",
	Max:        "max",
	BitAnd:     "and",
	BitOr:      "or",
	BitXor:     "xor",
	Lsh:        "shl",
	Rsh:        "shr",
	PtrPlus:    "ptradd",
	Eq:         "eq",
	Ne:         "ne",
	Lt:         "lt",
	Le:         "le",
	Gt:         "gt",
	Ge:         "ge",
	LogicalAnd: "land",
	LogicalOr:  "lor",
	LogicalNot: "lnot",
	Neg:        "neg",
	BitNot:     "not",
	Abs:        "abs",
	Absu:       "absu",
	Cast:       "cast",
	Copy:       "copy",
}

func (op Op) String() string {
	if op >= NumOps {
		return fmt.Sprintf("op(%d)", uint8(op))
	}
	return opNames[op]
}

// OpFromString resolves the textual IR spelling of an operation.
func OpFromString(s string) (Op, bool) {
	for op, name := range opNames {
		if Op(op) != BadOp && name == s {
			return Op(op), true
		}
	}
	return BadOp, false
}

// Comparison reports whether op is one of the six relational operators.
func (op Op) Comparison() bool {
	return op >= Eq && op <= Ge
}

// Unary reports whether op takes a single operand.
func (op Op) Unary() bool {
	return op == LogicalNot || (op >= Neg && op <= Copy)
}
