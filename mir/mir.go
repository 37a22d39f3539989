// Package mir defines a small SSA intermediate representation for integer
// and pointer computations, plus a textual format for writing programs by
// hand.
//
// A Function is a list of Blocks; a Block is a list of register-defining
// Instrs followed by exactly one Control transfer. Every operand is a
// Value: a Param, or an Instr defined elsewhere in the function. Constants
// are materialized by Const instructions, so operand lists never carry
// literals.
package mir

import (
	"fmt"
	"strings"

	"honnef.co/go/ranger/wint"
)

// Value is an SSA value: something a range can be computed for.
type Value interface {
	Name() string
	Type() wint.Type
	String() string
}

// Param is a function parameter. It has no defining statement; nothing is
// known about it on entry.
type Param struct {
	name string
	typ  wint.Type
}

func (p *Param) Name() string    { return p.name }
func (p *Param) Type() wint.Type { return p.typ }
func (p *Param) String() string  { return fmt.Sprintf("%s %s", p.name, p.typ) }

// Instr is a Value defined by an instruction in some block.
type Instr interface {
	Value
	Block() *Block
	Operands() []Value
}

// register carries the parts common to all instructions.
type register struct {
	name string
	typ  wint.Type
	blk  *Block
}

func (r *register) Name() string    { return r.name }
func (r *register) Type() wint.Type { return r.typ }
func (r *register) Block() *Block   { return r.blk }

// Const materializes a constant.
type Const struct {
	register
	X wint.Val
}

func (c *Const) Operands() []Value { return nil }
func (c *Const) String() string {
	return fmt.Sprintf("%s = const %s %s", c.name, c.typ, c.X)
}

// BinOp computes Op(X, Y).
type BinOp struct {
	register
	Op   Op
	X, Y Value
}

func (b *BinOp) Operands() []Value { return []Value{b.X, b.Y} }
func (b *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", b.name, b.Op, b.X.Name(), b.Y.Name())
}

// UnOp computes Op(X). For Cast the instruction's type is the target type;
// for Absu it is the unsigned type of X's width; for LogicalNot it is bool.
type UnOp struct {
	register
	Op Op
	X  Value
}

func (u *UnOp) Operands() []Value { return []Value{u.X} }
func (u *UnOp) String() string {
	if u.Op == Cast {
		return fmt.Sprintf("%s = cast %s %s", u.name, u.typ, u.X.Name())
	}
	return fmt.Sprintf("%s = %s %s", u.name, u.Op, u.X.Name())
}

// Phi merges one value per predecessor edge. Edges is aligned with the
// block's Preds.
type Phi struct {
	register
	Edges []Value
}

func (p *Phi) Operands() []Value { return p.Edges }
func (p *Phi) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = phi %s [", p.name, p.typ)
	for i, e := range p.Edges {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", p.blk.Preds[i].Label, e.Name())
	}
	sb.WriteString("]")
	return sb.String()
}

// ArgOnEdge returns the value the phi takes when control arrives over e.
func (p *Phi) ArgOnEdge(e Edge) (Value, bool) {
	if e.To != p.blk {
		return nil, false
	}
	for i, pred := range p.blk.Preds {
		if pred == e.From {
			return p.Edges[i], true
		}
	}
	return nil, false
}

// Call invokes a recognized intrinsic. Calls to anything else are not
// representable; their results would be varying anyway.
type Call struct {
	register
	Builtin Builtin
	Args    []Value
}

func (c *Call) Operands() []Value { return c.Args }
func (c *Call) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s = call %s %s", c.name, c.typ, c.Builtin)
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" ")
		sb.WriteString(a.Name())
	}
	return sb.String()
}

// Select picks Then if Cond is true, Else otherwise.
type Select struct {
	register
	Cond, Then, Else Value
}

func (s *Select) Operands() []Value { return []Value{s.Cond, s.Then, s.Else} }
func (s *Select) String() string {
	return fmt.Sprintf("%s = select %s, %s, %s", s.name, s.Cond.Name(), s.Then.Name(), s.Else.Name())
}

// Addr takes the address of a location based at pointer X.
type Addr struct {
	register
	X Value
}

func (a *Addr) Operands() []Value { return []Value{a.X} }
func (a *Addr) String() string {
	return fmt.Sprintf("%s = addr %s", a.name, a.X.Name())
}

// Control is a block's terminator.
type Control interface {
	Operands() []Value
	String() string
}

// If transfers to Succs[0] when Cond is true and Succs[1] otherwise.
type If struct {
	Cond Value
	blk  *Block
}

func (i *If) Operands() []Value { return []Value{i.Cond} }
func (i *If) String() string {
	return fmt.Sprintf("br %s, %s, %s", i.Cond.Name(), i.blk.Succs[0].Label, i.blk.Succs[1].Label)
}

// Jump transfers to Succs[0].
type Jump struct {
	blk *Block
}

func (j *Jump) Operands() []Value { return nil }
func (j *Jump) String() string    { return "jmp " + j.blk.Succs[0].Label }

// Ret leaves the function. X may be nil.
type Ret struct {
	X Value
}

func (r *Ret) Operands() []Value {
	if r.X == nil {
		return nil
	}
	return []Value{r.X}
}
func (r *Ret) String() string {
	if r.X == nil {
		return "ret"
	}
	return "ret " + r.X.Name()
}

// Block is a basic block. The entry block is Blocks[0] and has no
// predecessors.
type Block struct {
	Index   int
	Label   string
	Instrs  []Instr
	Control Control
	Preds   []*Block
	Succs   []*Block
}

func (b *Block) String() string { return b.Label }

// OutEdge returns the i'th outgoing edge.
func (b *Block) OutEdge(i int) Edge { return Edge{b, b.Succs[i]} }

// Edge is a control transfer between two blocks.
type Edge struct {
	From, To *Block
}

func (e Edge) String() string { return e.From.Label + "->" + e.To.Label }

// Function is a parsed function.
type Function struct {
	Name   string
	Params []*Param
	Blocks []*Block

	values map[string]Value
}

// Value looks up a value by name.
func (f *Function) Value(name string) (Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Values returns all named values of the function, parameters first, then
// instructions in block and program order.
func (f *Function) Values() []Value {
	out := make([]Value, 0, len(f.values))
	for _, p := range f.Params {
		out = append(out, p)
	}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			out = append(out, instr)
		}
	}
	return out
}

// Block looks up a block by label.
func (f *Function) Block(label string) (*Block, bool) {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b, true
		}
	}
	return nil, false
}

func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("func ")
	sb.WriteString(f.Name)
	sb.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(") {\n")
	for _, b := range f.Blocks {
		sb.WriteString(b.Label)
		sb.WriteString(":\n")
		for _, instr := range b.Instrs {
			sb.WriteString("\t")
			sb.WriteString(instr.String())
			sb.WriteString("\n")
		}
		sb.WriteString("\t")
		sb.WriteString(b.Control.String())
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}
