// Package ranger computes value ranges on demand over mir functions.
//
// The Folder evaluates a single statement from the ranges of its operands;
// where those operand ranges come from is abstracted behind the Source
// interface, so the same evaluation code serves queries at a statement, on
// a control flow edge, or over caller-supplied ranges. The Ranger is the
// query engine proper: it resolves operands through the def chain and the
// CFG, caching what it learns per instance.
//
// The engine is single-threaded: a Ranger must not be used from multiple
// goroutines at once.
package ranger

import (
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
)

// Query resolves ranges of values at various program points.
type Query interface {
	// RangeOfExpr returns the range of v as used at statement at. A nil
	// at asks for the global range.
	RangeOfExpr(v mir.Value, at mir.Instr) (irange.Range, bool)
	// RangeOfStmt returns the range instr computes for v, its result.
	RangeOfStmt(instr mir.Instr, v mir.Value) (irange.Range, bool)
	// RangeOnEdge returns the range of v on the edge e.
	RangeOnEdge(e mir.Edge, v mir.Value) (irange.Range, bool)
	// RangeOnEntry returns the range of v on entry to block b.
	RangeOnEntry(b *mir.Block, v mir.Value) (irange.Range, bool)
	// RangeOnExit returns the range of v at the end of block b.
	RangeOnExit(b *mir.Block, v mir.Value) (irange.Range, bool)
}

// Source supplies operand ranges to the Folder. Implementations decide
// what program point the operands are evaluated at.
type Source interface {
	// RangeOf returns the range of operand v.
	RangeOf(v mir.Value) (irange.Range, bool)
	// RangeOfPhiArg returns the range of v used as a phi argument on e.
	RangeOfPhiArg(v mir.Value, e mir.Edge) (irange.Range, bool)
	// RegisterDependency records that lhs was computed from rhs.
	RegisterDependency(lhs, rhs mir.Value)
	// Query returns the query the source resolves through, or nil.
	Query() Query
}

// globalRange is what is known about v with no context at all.
func globalRange(v mir.Value) irange.Range {
	if c, ok := v.(*mir.Const); ok {
		return irange.FromVal(c.X)
	}
	return irange.Varying(v.Type())
}

// baseSource provides the default no-op dependency registration.
type baseSource struct{}

func (baseSource) RegisterDependency(lhs, rhs mir.Value) {}

// edgeSource picks operand ranges up off an edge.
type edgeSource struct {
	baseSource
	e mir.Edge
	q Query
}

func (s *edgeSource) RangeOf(v mir.Value) (irange.Range, bool) {
	return s.q.RangeOnEdge(s.e, v)
}

func (s *edgeSource) RangeOfPhiArg(v mir.Value, e mir.Edge) (irange.Range, bool) {
	// Edge to edge recalculations are not supported.
	if e != s.e {
		panic("ranger: phi argument queried on a foreign edge")
	}
	return s.q.RangeOnEdge(e, v)
}

func (s *edgeSource) Query() Query { return s.q }

// stmtSource evaluates operands as they occur at a statement.
type stmtSource struct {
	baseSource
	at mir.Instr
	q  Query
}

func (s *stmtSource) RangeOf(v mir.Value) (irange.Range, bool) {
	return s.q.RangeOfExpr(v, s.at)
}

func (s *stmtSource) RangeOfPhiArg(v mir.Value, e mir.Edge) (irange.Range, bool) {
	es := edgeSource{e: e, q: s.q}
	return es.RangeOf(v)
}

func (s *stmtSource) Query() Query { return s.q }

// dependSource is a stmtSource that also registers dependencies with a
// gori instance. This is mostly an internal API.
type dependSource struct {
	stmtSource
	g *gori
}

func (s *dependSource) RegisterDependency(lhs, rhs mir.Value) {
	s.g.registerDependency(lhs, rhs)
}

// listSource hands out ranges from a caller-supplied list, in operand
// order. Operands past the end of the list resolve through the query, or
// to their global range without one.
type listSource struct {
	baseSource
	list  []irange.Range
	index int
	q     Query
}

func newListSource(q Query, list []irange.Range) *listSource {
	return &listSource{list: list, q: q}
}

func (s *listSource) RangeOf(v mir.Value) (irange.Range, bool) {
	if s.index >= len(s.list) {
		if s.q != nil {
			return s.q.RangeOfExpr(v, nil)
		}
		return globalRange(v), true
	}
	r := s.list[s.index]
	s.index++
	if !r.Undefined() && r.Type() != v.Type() {
		panic("ranger: supplied range type does not match the operand")
	}
	return r, true
}

func (s *listSource) RangeOfPhiArg(v mir.Value, e mir.Edge) (irange.Range, bool) {
	return s.RangeOf(v)
}

func (s *listSource) Query() Query { return s.q }
