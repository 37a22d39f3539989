package ranger

import (
	"fmt"
	"io"

	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
)

// Seed queries every statement of fn once, so that a later Dump has
// something to report. On its own a Ranger only computes what is asked of
// it.
func Seed(q Query, fn *mir.Function) {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			q.RangeOfStmt(instr, instr)
		}
	}
}

// Export returns the non-varying global ranges learned so far, keyed by
// value name. Pointers that never narrowed but are known to be
// dereferenced still export as non-null.
func (rr *Ranger) Export() map[string]irange.Range {
	out := map[string]irange.Range{}
	for v, r := range rr.global {
		if def, ok := v.(mir.Instr); ok {
			rr.adjustNonNull(&r, v, def.Block())
		}
		if !r.Varying() {
			out[v.Name()] = r
		}
	}
	return out
}

// Dump writes everything the Ranger has learned about fn to w, block by
// block, followed by the surviving global ranges.
func (rr *Ranger) Dump(w io.Writer) {
	for _, b := range rr.fn.Blocks {
		rr.DumpBlock(w, b)
	}
	fmt.Fprintf(w, "\nNon-varying global ranges:\n")
	fmt.Fprintf(w, "=========================:\n")
	for _, v := range rr.fn.Values() {
		if r, ok := rr.global[v]; ok && !r.Varying() {
			fmt.Fprintf(w, "%s  : %s\n", v.Name(), r)
		}
	}
}

// DumpBlock writes what is known about block b: cached on-entry ranges,
// the IL, non-varying ranges the block defines, and the refinements its
// outgoing edges provide.
func (rr *Ranger) DumpBlock(w io.Writer, b *mir.Block) {
	fmt.Fprintf(w, "\n=========== BB %d (%s) ============\n", b.Index, b.Label)
	for _, v := range rr.fn.Values() {
		if r, ok := rr.onEntry[entryKey{b, v}]; ok && !r.Varying() {
			fmt.Fprintf(w, "%s  [%s] on entry\n", v.Name(), r)
		}
	}
	for _, instr := range b.Instrs {
		fmt.Fprintf(w, "    %s\n", instr)
	}
	fmt.Fprintf(w, "    %s\n", b.Control)

	for _, instr := range b.Instrs {
		if r, ok := rr.global[mir.Value(instr)]; ok && !r.Varying() {
			fmt.Fprintf(w, "%s : %s\n", instr.Name(), r)
		}
	}

	_, isBranch := b.Control.(*mir.If)
	for i := range b.Succs {
		e := b.OutEdge(i)
		for _, v := range rr.fn.Values() {
			if !rr.gori.HasEdgeRange(e, v) {
				continue
			}
			// Only report names this block actually knows something
			// about, matching what a query through here would have used.
			if !rr.definedIn(v, b) && !rr.cachedAround(e, v) {
				continue
			}
			r, ok := rr.RangeOnEdge(e, v)
			if !ok || r.Varying() {
				continue
			}
			if isBranch {
				arm := "(F)"
				if i == 0 {
					arm = "(T)"
				}
				fmt.Fprintf(w, "%s -> %s %s %s : %s\n", b.Label, e.To.Label, arm, v.Name(), r)
			} else {
				fmt.Fprintf(w, "%s -> %s %s : %s\n", b.Label, e.To.Label, v.Name(), r)
			}
		}
	}
}

func (rr *Ranger) definedIn(v mir.Value, b *mir.Block) bool {
	def, ok := v.(mir.Instr)
	return ok && def.Block() == b
}

func (rr *Ranger) cachedAround(e mir.Edge, v mir.Value) bool {
	if _, ok := rr.onEntry[entryKey{e.From, v}]; ok {
		return true
	}
	_, ok := rr.onEntry[entryKey{e.To, v}]
	return ok
}
