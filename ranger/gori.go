package ranger

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
	"honnef.co/go/ranger/rangeop"
)

// gori generates outgoing range information: given a branch, it computes
// the range the taken edge imposes on a value by inverting the operations
// on the condition's def chain. It also records which values each
// statement's result was computed from, as evaluation discovers them.
type gori struct {
	deps map[mir.Value][]mir.Value
}

func newGori() *gori {
	return &gori{deps: map[mir.Value][]mir.Value{}}
}

func (g *gori) registerDependency(lhs, rhs mir.Value) {
	for _, d := range g.deps[lhs] {
		if d == rhs {
			return
		}
	}
	g.deps[lhs] = append(g.deps[lhs], rhs)
}

func (g *gori) dependencies(v mir.Value) []mir.Value {
	return g.deps[v]
}

// inChain reports whether name feeds the computation of v through
// invertible operations. Phis, calls and selects end a chain.
func (g *gori) inChain(v, name mir.Value) bool {
	if v == name {
		return true
	}
	switch v := v.(type) {
	case *mir.BinOp:
		return g.inChain(v.X, name) || g.inChain(v.Y, name)
	case *mir.UnOp:
		return g.inChain(v.X, name)
	}
	return false
}

// HasEdgeRange reports whether traversing e can refine name.
func (g *gori) HasEdgeRange(e mir.Edge, name mir.Value) bool {
	if _, isConst := name.(*mir.Const); isConst {
		return false
	}
	ctrl, ok := e.From.Control.(*mir.If)
	if !ok {
		return false
	}
	return g.inChain(ctrl.Cond, name)
}

// OutgoingEdgeRange computes the range e's branch imposes on name. Other
// operands on the def chain are resolved through q at the end of e.From.
func (g *gori) OutgoingEdgeRange(q Query, e mir.Edge, name mir.Value) (irange.Range, bool) {
	if !g.HasEdgeRange(e, name) {
		return irange.Range{}, false
	}
	ctrl := e.From.Control.(*mir.If)
	lhs := irange.False()
	if e.To == e.From.Succs[0] {
		lhs = irange.True()
	}
	return g.computeOperandRange(q, e, ctrl.Cond, lhs, name)
}

// resolve returns what is known about v at the end of e.From.
func (g *gori) resolve(q Query, e mir.Edge, v mir.Value) irange.Range {
	if c, ok := v.(*mir.Const); ok {
		return irange.FromVal(c.X)
	}
	if r, ok := q.RangeOnExit(e.From, v); ok {
		return r
	}
	return irange.Varying(v.Type())
}

// computeOperandRange recovers a range for name given that def evaluates
// to lhs, recursing down whichever operand chain leads to name.
func (g *gori) computeOperandRange(q Query, e mir.Edge, def mir.Value, lhs irange.Range, name mir.Value) (irange.Range, bool) {
	// An unexecutable edge means every range on it is empty.
	if lhs.Undefined() {
		return irange.Undefined(name.Type()), true
	}
	if def == name {
		return lhs, true
	}

	var op mir.Op
	var x, y mir.Value
	switch def := def.(type) {
	case *mir.BinOp:
		op, x, y = def.Op, def.X, def.Y
	case *mir.UnOp:
		op, x = def.Op, def.X
	default:
		return irange.Range{}, false
	}

	if y == nil {
		// Unary operations hand the operand's own range to the inverse in
		// the second operand slot.
		xr, ok := rangeop.Op1Range(op, x.Type(), lhs, g.resolve(q, e, x))
		if !ok {
			return irange.Range{}, false
		}
		return g.operandChain(q, e, x, xr, name)
	}

	inX := g.inChain(x, name)
	inY := g.inChain(y, name)
	switch {
	case inX && inY:
		r1, ok1 := g.computeThrough(q, e, op, x, y, lhs, name, true)
		r2, ok2 := g.computeThrough(q, e, op, x, y, lhs, name, false)
		switch {
		case ok1 && ok2:
			r1.Intersect(r2)
			return r1, true
		case ok1:
			return r1, true
		case ok2:
			return r2, true
		}
		return irange.Range{}, false
	case inX:
		return g.computeThrough(q, e, op, x, y, lhs, name, true)
	case inY:
		return g.computeThrough(q, e, op, x, y, lhs, name, false)
	}
	return irange.Range{}, false
}

// computeThrough inverts one side of a binary operation and continues down
// that operand's chain.
func (g *gori) computeThrough(q Query, e mir.Edge, op mir.Op, x, y mir.Value, lhs irange.Range, name mir.Value, first bool) (irange.Range, bool) {
	if first {
		xr, ok := rangeop.Op1Range(op, x.Type(), lhs, g.resolve(q, e, y))
		if !ok {
			return irange.Range{}, false
		}
		return g.operandChain(q, e, x, xr, name)
	}
	yr, ok := rangeop.Op2Range(op, y.Type(), lhs, g.resolve(q, e, x))
	if !ok {
		return irange.Range{}, false
	}
	return g.operandChain(q, e, y, yr, name)
}

// operandChain narrows the recovered range with what is already known
// about the operand, then recurses if name lies deeper in the chain.
func (g *gori) operandChain(q Query, e mir.Edge, operand mir.Value, recovered irange.Range, name mir.Value) (irange.Range, bool) {
	recovered.Intersect(g.resolve(q, e, operand))
	return g.computeOperandRange(q, e, operand, recovered, name)
}
