package ranger

import (
	"fmt"
	"io"

	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
)

const traceBump = 2

// Tracer wraps a Query and writes every call and its result to Out,
// indented by call nesting. It answers queries by delegating to Q.
type Tracer struct {
	Q   Query
	Out io.Writer

	indent int
	count  uint
}

func (t *Tracer) header(format string, args ...interface{}) uint {
	t.count++
	fmt.Fprintf(t.Out, " %-7d%*s", t.count, t.indent, "")
	fmt.Fprintf(t.Out, format, args...)
	fmt.Fprintln(t.Out)
	t.indent += traceBump
	return t.count
}

func (t *Tracer) trailer(idx uint, caller string, ok bool, v mir.Value, r irange.Range) {
	t.indent -= traceBump
	fmt.Fprintf(t.Out, " %-7d%*s", idx, t.indent, "")
	if ok {
		fmt.Fprintf(t.Out, "TRUE : (%d) %s (%s) %s\n", idx, caller, v.Name(), r)
	} else {
		fmt.Fprintf(t.Out, "FALSE : (%d) %s (%s)\n", idx, caller, v.Name())
	}
}

func (t *Tracer) RangeOfExpr(v mir.Value, at mir.Instr) (irange.Range, bool) {
	where := "<nil>"
	if at != nil {
		where = at.String()
	}
	idx := t.header("range_of_expr (%s) at %s", v.Name(), where)
	r, ok := t.Q.RangeOfExpr(v, at)
	t.trailer(idx, "range_of_expr", ok, v, r)
	return r, ok
}

func (t *Tracer) RangeOfStmt(instr mir.Instr, v mir.Value) (irange.Range, bool) {
	idx := t.header("range_of_stmt (%s) at %s", v.Name(), instr)
	r, ok := t.Q.RangeOfStmt(instr, v)
	t.trailer(idx, "range_of_stmt", ok, v, r)
	return r, ok
}

func (t *Tracer) RangeOnEdge(e mir.Edge, v mir.Value) (irange.Range, bool) {
	idx := t.header("range_on_edge (%s) on edge %s", v.Name(), e)
	r, ok := t.Q.RangeOnEdge(e, v)
	t.trailer(idx, "range_on_edge", ok, v, r)
	return r, ok
}

func (t *Tracer) RangeOnEntry(b *mir.Block, v mir.Value) (irange.Range, bool) {
	idx := t.header("range_on_entry (%s) to %s", v.Name(), b.Label)
	r, ok := t.Q.RangeOnEntry(b, v)
	t.trailer(idx, "range_on_entry", ok, v, r)
	return r, ok
}

func (t *Tracer) RangeOnExit(b *mir.Block, v mir.Value) (irange.Range, bool) {
	idx := t.header("range_on_exit (%s) from %s", v.Name(), b.Label)
	r, ok := t.Q.RangeOnExit(b, v)
	t.trailer(idx, "range_on_exit", ok, v, r)
	return r, ok
}
