package mir

import "fmt"

// Builtin identifies a recognized intrinsic function.
type Builtin uint8

const (
	BadBuiltin Builtin = iota

	Popcount // number of set bits
	Ffs      // one-based index of the least significant set bit, 0 at 0
	Parity   // parity of the number of set bits
	Clz      // leading zero count, undefined at 0
	ClzZero  // leading zero count, width at 0
	Ctz      // trailing zero count, undefined at 0
	CtzZero  // trailing zero count, width at 0
	Clrsb    // redundant leading sign bit count
	Strlen   // length of the string the argument points to

	// Overflow-checked arithmetic; the result is the wrapped value.
	CheckedAdd
	CheckedSub
	CheckedMul

	ConstantP // whether the argument folded to a constant

	NumBuiltins
)

var builtinNames = [NumBuiltins]string{
	BadBuiltin: "badbuiltin",
	Popcount:   "popcount",
	Ffs:        "ffs",
	Parity:     "parity",
	Clz:        "clz",
	ClzZero:    "clz0",
	Ctz:        "ctz",
	CtzZero:    "ctz0",
	Clrsb:      "clrsb",
	Strlen:     "strlen",
	CheckedAdd: "add_ovf",
	CheckedSub: "sub_ovf",
	CheckedMul: "mul_ovf",
	ConstantP:  "constant_p",
}

func (b Builtin) String() string {
	if b >= NumBuiltins {
		return fmt.Sprintf("builtin(%d)", uint8(b))
	}
	return builtinNames[b]
}

// BuiltinFromString resolves the textual spelling of a builtin.
func BuiltinFromString(s string) (Builtin, bool) {
	for b, name := range builtinNames {
		if Builtin(b) != BadBuiltin && name == s {
			return Builtin(b), true
		}
	}
	return BadBuiltin, false
}

// NumArgs returns how many arguments the builtin takes.
func (b Builtin) NumArgs() int {
	switch b {
	case CheckedAdd, CheckedSub, CheckedMul:
		return 2
	default:
		return 1
	}
}
