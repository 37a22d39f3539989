package ranger

import (
	"log"

	"honnef.co/go/ranger/config"
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
	"honnef.co/go/ranger/rangeop"
)

const debugging = false

func debugf(f string, args ...interface{}) {
	if debugging {
		log.Printf(f, args...)
	}
}

// NonNullHook lets a client assert that a pointer is dereferenced in a
// block, which makes it non-null there unless traps can be observed.
type NonNullHook interface {
	NonNullDeref(v mir.Value, b *mir.Block) bool
}

// entryKey identifies a cached on-entry range.
type entryKey struct {
	b *mir.Block
	v mir.Value
}

// Ranger is the demand-driven query engine over a single function. All
// caches are owned by the instance; two Rangers never share state.
type Ranger struct {
	Folder

	// NonNull, when set, upgrades varying pointers to non-null in blocks
	// that dereference them.
	NonNull NonNullHook

	fn       *mir.Function
	gori     *gori
	maxDepth int

	global  map[mir.Value]irange.Range
	onEntry map[entryKey]irange.Range

	// In-flight queries, for cutting dependency cycles.
	active      map[mir.Value]bool
	entryActive map[entryKey]bool
	depth       int
}

// New returns a Ranger for fn, configured by conf. The configuration is
// applied globally; see config.Apply.
func New(fn *mir.Function, conf config.Config) *Ranger {
	config.Apply(conf)
	return &Ranger{
		fn:          fn,
		gori:        newGori(),
		maxDepth:    conf.MaxDepth,
		global:      map[mir.Value]irange.Range{},
		onEntry:     map[entryKey]irange.Range{},
		active:      map[mir.Value]bool{},
		entryActive: map[entryKey]bool{},
	}
}

// Func returns the function the Ranger answers queries about.
func (rr *Ranger) Func() *mir.Function { return rr.fn }

// Dependencies returns the values v has been observed to be computed
// from. The list grows as queries evaluate more of the function.
func (rr *Ranger) Dependencies(v mir.Value) []mir.Value {
	return rr.gori.dependencies(v)
}

// RangeOfExpr returns the range of v as used at statement at. With a nil
// at only global knowledge is consulted.
func (rr *Ranger) RangeOfExpr(v mir.Value, at mir.Instr) (irange.Range, bool) {
	if c, ok := v.(*mir.Const); ok {
		return irange.FromVal(c.X), true
	}
	if at == nil {
		if r, ok := rr.global[v]; ok {
			return r, true
		}
		return globalRange(v), true
	}
	b := at.Block()
	if def, ok := v.(mir.Instr); ok && def.Block() == b {
		// The definition dominates every use we can be asked about, so
		// the range at the statement is the range the definition computes.
		r, ok := rr.RangeOfStmt(def, v)
		if !ok {
			return irange.Range{}, false
		}
		rr.adjustNonNull(&r, v, b)
		return r, true
	}
	return rr.RangeOnEntry(b, v)
}

// RangeOfStmt returns the range instr computes for its result v.
func (rr *Ranger) RangeOfStmt(instr mir.Instr, v mir.Value) (irange.Range, bool) {
	if v != mir.Value(instr) {
		return irange.Range{}, false
	}
	if r, ok := rr.global[v]; ok {
		return r, true
	}
	if rr.active[v] {
		// Mid-cycle the best answer is no answer.
		return irange.Varying(v.Type()), true
	}
	rr.active[v] = true
	debugf("fold %s", instr)
	src := &dependSource{stmtSource{at: instr, q: rr}, rr.gori}
	tmp, ok := rr.FoldStmt(instr, src)
	if !ok {
		tmp = irange.Varying(v.Type())
	}
	// Starting from what was known before keeps recomputation monotonic:
	// a range can only ever narrow.
	r := globalRange(v)
	r.Intersect(tmp)
	delete(rr.active, v)
	rr.global[v] = r
	debugf("fold %s = %s", instr.Name(), r)
	return r, true
}

// RangeOnEdge returns the range of v on edge e, refined by the branch
// that creates the edge.
func (rr *Ranger) RangeOnEdge(e mir.Edge, v mir.Value) (irange.Range, bool) {
	if c, ok := v.(*mir.Const); ok {
		return irange.FromVal(c.X), true
	}
	r, ok := rr.RangeOnExit(e.From, v)
	if !ok {
		return irange.Range{}, false
	}
	if er, ok := rr.gori.OutgoingEdgeRange(rr, e, v); ok {
		debugf("edge %s refines %s to %s", e, v.Name(), er)
		r.Intersect(er)
	}
	return r, true
}

// RangeOnEntry returns the range of v on entry to b: the definition's
// range narrowed by every path leading here.
func (rr *Ranger) RangeOnEntry(b *mir.Block, v mir.Value) (irange.Range, bool) {
	r := rr.rangeOfDef(v)
	if er, ok := rr.blockRange(b, v); ok {
		r.Intersect(er)
	}
	rr.adjustNonNull(&r, v, b)
	return r, true
}

// RangeOnExit returns the range of v at the end of b.
func (rr *Ranger) RangeOnExit(b *mir.Block, v mir.Value) (irange.Range, bool) {
	if def, ok := v.(mir.Instr); ok && def.Block() == b {
		return rr.RangeOfStmt(def, v)
	}
	return rr.RangeOnEntry(b, v)
}

// rangeOfDef is the range of v's definition, with no block context.
func (rr *Ranger) rangeOfDef(v mir.Value) irange.Range {
	if def, ok := v.(mir.Instr); ok {
		if r, ok := rr.RangeOfStmt(def, v); ok {
			return r
		}
	}
	return globalRange(v)
}

// blockRange computes the entry refinement of v at b: the union of v's
// range over all incoming edges. It reports false when there is nothing
// to refine with, including when a dependency cycle or the depth limit
// cuts the walk short.
func (rr *Ranger) blockRange(b *mir.Block, v mir.Value) (irange.Range, bool) {
	if len(b.Preds) == 0 {
		return irange.Range{}, false
	}
	if def, ok := v.(mir.Instr); ok && def.Block() == b {
		return irange.Range{}, false
	}
	key := entryKey{b, v}
	if r, ok := rr.onEntry[key]; ok {
		return r, true
	}
	if rr.entryActive[key] || rr.depth >= rr.maxDepth {
		return irange.Range{}, false
	}
	rr.entryActive[key] = true
	rr.depth++

	r := irange.Undefined(v.Type())
	for _, pred := range b.Preds {
		er, ok := rr.RangeOnEdge(mir.Edge{From: pred, To: b}, v)
		if !ok {
			er = irange.Varying(v.Type())
		}
		r.Union(er)
		if r.Varying() {
			break
		}
	}

	rr.depth--
	delete(rr.entryActive, key)
	rr.onEntry[key] = r
	debugf("entry %s %s = %s", b.Label, v.Name(), r)
	return r, true
}

func (rr *Ranger) adjustNonNull(r *irange.Range, v mir.Value, b *mir.Block) {
	if rr.NonNull == nil || rangeop.NonCallExceptions {
		return
	}
	if !v.Type().Pointer || !r.Varying() {
		return
	}
	if rr.NonNull.NonNullDeref(v, b) {
		*r = irange.Nonzero(v.Type())
	}
}
