package ranger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"honnef.co/go/ranger/config"
	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/mir"
	"honnef.co/go/ranger/wint"
)

func parseProgram(t *testing.T, name string) *mir.Function {
	t.Helper()
	arch, err := txtar.ParseFile(filepath.Join("testdata", "programs.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range arch.Files {
		if f.Name != name {
			continue
		}
		fn, err := mir.ParseFunction(string(f.Data))
		if err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		return fn
	}
	t.Fatalf("no program %s in the archive", name)
	return nil
}

func newRanger(t *testing.T, name string) (*Ranger, *mir.Function) {
	t.Helper()
	fn := parseProgram(t, name)
	t.Cleanup(func() { config.Apply(config.Default()) })
	return New(fn, config.Default()), fn
}

func val(t *testing.T, fn *mir.Function, name string) mir.Value {
	t.Helper()
	v, ok := fn.Value(name)
	if !ok {
		t.Fatalf("no value %s", name)
	}
	return v
}

func instr(t *testing.T, fn *mir.Function, name string) mir.Instr {
	t.Helper()
	i, ok := val(t, fn, name).(mir.Instr)
	if !ok {
		t.Fatalf("%s is not an instruction", name)
	}
	return i
}

func block(t *testing.T, fn *mir.Function, label string) *mir.Block {
	t.Helper()
	b, ok := fn.Block(label)
	if !ok {
		t.Fatalf("no block %s", label)
	}
	return b
}

func edge(t *testing.T, fn *mir.Function, from, to string) mir.Edge {
	return mir.Edge{From: block(t, fn, from), To: block(t, fn, to)}
}

const (
	minInt32 = -1 << 31
	maxInt32 = 1<<31 - 1
)

func i32rng(lo, hi int64) irange.Range {
	return irange.NewInt(wint.Int32, lo, hi)
}

func TestBranchRefinement(t *testing.T) {
	rr, fn := newRanger(t, "branch.mir")
	x := val(t, fn, "x")

	r, ok := rr.RangeOnEdge(edge(t, fn, "entry", "small"), x)
	if !ok || !r.Equal(i32rng(minInt32, 9)) {
		t.Errorf("x on entry->small = %s, %v", r, ok)
	}
	r, ok = rr.RangeOnEdge(edge(t, fn, "entry", "big"), x)
	if !ok || !r.Equal(i32rng(10, maxInt32)) {
		t.Errorf("x on entry->big = %s, %v", r, ok)
	}

	// Both branches have been taken by the time mid runs.
	r, ok = rr.RangeOnEntry(block(t, fn, "mid"), x)
	if !ok || !r.Equal(i32rng(0, 9)) {
		t.Errorf("x on entry to mid = %s, %v", r, ok)
	}

	y := instr(t, fn, "y")
	r, ok = rr.RangeOfStmt(y, y)
	if !ok || !r.Equal(i32rng(10, 19)) {
		t.Errorf("y = %s, %v", r, ok)
	}

	// The merge at out sees every path and learns nothing.
	r, ok = rr.RangeOnEntry(block(t, fn, "out"), x)
	if !ok || !r.Varying() {
		t.Errorf("x on entry to out = %s, %v", r, ok)
	}
}

func TestLoopTermination(t *testing.T) {
	rr, fn := newRanger(t, "loop.mir")
	i := val(t, fn, "i")

	r, ok := rr.RangeOnEntry(block(t, fn, "done"), i)
	if !ok || !r.Equal(i32rng(10, 10)) {
		t.Errorf("i at done = %s, %v", r, ok)
	}
	r, ok = rr.RangeOfExpr(i, nil)
	if !ok || !r.Equal(i32rng(minInt32+1, 10)) {
		t.Errorf("global i = %s, %v", r, ok)
	}
	r, ok = rr.RangeOnEntry(block(t, fn, "body"), i)
	if !ok || !r.Equal(i32rng(minInt32+1, 9)) {
		t.Errorf("i at body = %s, %v", r, ok)
	}

	next := val(t, fn, "next")
	r, ok = rr.RangeOfExpr(next, nil)
	if !ok || !r.Equal(i32rng(minInt32+1, 10)) {
		t.Errorf("global next = %s, %v", r, ok)
	}
}

type phiBoundsFunc func(phi *mir.Phi) (irange.Range, bool)

func (f phiBoundsFunc) PhiBounds(phi *mir.Phi) (irange.Range, bool) { return f(phi) }

func TestLoopBounds(t *testing.T) {
	rr, fn := newRanger(t, "loop.mir")
	rr.Bounds = phiBoundsFunc(func(phi *mir.Phi) (irange.Range, bool) {
		return i32rng(0, 5), true
	})

	// The hook only fires when the phi is folded, so the query has to be
	// at the definition; a nil-at query consults global knowledge alone.
	in := instr(t, fn, "i")
	r, ok := rr.RangeOfStmt(in, in)
	if !ok || !r.Equal(i32rng(0, 5)) {
		t.Errorf("bounded i = %s, %v", r, ok)
	}
	// The fold is cached, so from here on global knowledge carries the
	// bound too.
	r, ok = rr.RangeOfExpr(in, nil)
	if !ok || !r.Equal(i32rng(0, 5)) {
		t.Errorf("bounded i globally = %s, %v", r, ok)
	}
}

func TestBuiltins(t *testing.T) {
	rr, fn := newRanger(t, "builtins.mir")

	tests := []struct {
		name string
		want irange.Range
	}{
		{"m", irange.NewInt(wint.Uint16, 0, 255)},
		{"p", i32rng(0, 8)},
		{"z", i32rng(8, 16)},
		{"t", i32rng(0, 7)},
		{"s", i32rng(0, 1)},
		{"b", i32rng(0, 15)},
		{"n", irange.NewInt(wint.Uint64, 0, 1<<63-3)},
	}
	for _, tt := range tests {
		in := instr(t, fn, tt.name)
		r, ok := rr.RangeOfStmt(in, in)
		if !ok || !r.Equal(tt.want) {
			t.Errorf("%s = %s, want %s", tt.name, r, tt.want)
		}
	}
}

func TestCheckedCall(t *testing.T) {
	rr, fn := newRanger(t, "checked.mir")

	// A constant result would fold the overflow check away; it widens back
	// to varying instead.
	o := instr(t, fn, "o")
	r, ok := rr.RangeOfStmt(o, o)
	if !ok || !r.Varying() {
		t.Errorf("o = %s, %v", r, ok)
	}

	// A genuine range survives.
	o2 := instr(t, fn, "o2")
	r, ok = FoldStmtWith(o2, irange.NewInt(wint.Uint8, 0, 10))
	if !ok || !r.Equal(irange.NewInt(wint.Uint8, 100, 110)) {
		t.Errorf("o2 = %s, %v", r, ok)
	}
}

func TestSelect(t *testing.T) {
	fn := parseProgram(t, "select.mir")
	s := instr(t, fn, "s")

	r, ok := FoldStmtWith(s, irange.TrueAndFalse(), i32rng(0, 5), i32rng(10, 20))
	want := i32rng(0, 5)
	want.Union(i32rng(10, 20))
	if !ok || !r.Equal(want) {
		t.Errorf("unknown cond: %s, %v", r, ok)
	}

	r, ok = FoldStmtWith(s, irange.True(), i32rng(0, 5), i32rng(10, 20))
	if !ok || !r.Equal(i32rng(0, 5)) {
		t.Errorf("true cond: %s, %v", r, ok)
	}
	r, ok = FoldStmtWith(s, irange.False(), i32rng(0, 5), i32rng(10, 20))
	if !ok || !r.Equal(i32rng(10, 20)) {
		t.Errorf("false cond: %s, %v", r, ok)
	}
}

func TestCastChain(t *testing.T) {
	rr, fn := newRanger(t, "casts.mir")

	y := instr(t, fn, "y")
	r, ok := rr.RangeOfStmt(y, y)
	if !ok || !r.Equal(irange.NewInt(wint.Uint8, 0, 200)) {
		t.Errorf("y = %s, %v", r, ok)
	}

	z := instr(t, fn, "z")
	r, ok = rr.RangeOfStmt(z, z)
	want := irange.NewInt(wint.Int8, -128, -56)
	want.Union(irange.NewInt(wint.Int8, 0, 127))
	if !ok || !r.Equal(want) {
		t.Errorf("z = %s, %v", r, ok)
	}
}

func TestEdgeThroughChain(t *testing.T) {
	rr, fn := newRanger(t, "chain.mir")
	m := val(t, fn, "m")

	// On the taken edge the equality pins m down.
	r, ok := rr.RangeOnEdge(edge(t, fn, "entry", "yes"), m)
	if !ok || !r.Equal(irange.NewInt(wint.Uint32, 3, 3)) {
		t.Errorf("m on entry->yes = %s, %v", r, ok)
	}
	// On the other edge m merely loses one value.
	r, ok = rr.RangeOnEdge(edge(t, fn, "entry", "no"), m)
	if !ok || r.Contains(wint.New(wint.Uint32, 3)) || !r.Contains(wint.New(wint.Uint32, 2)) {
		t.Errorf("m on entry->no = %s, %v", r, ok)
	}
}

func TestEdgeThroughNot(t *testing.T) {
	rr, fn := newRanger(t, "notchain.mir")
	d := val(t, fn, "d")

	r, ok := rr.RangeOnEdge(edge(t, fn, "entry", "a"), d)
	if !ok || !r.Equal(irange.False()) {
		t.Errorf("d on entry->a = %s, %v", r, ok)
	}
	r, ok = rr.RangeOnEdge(edge(t, fn, "entry", "b"), d)
	if !ok || !r.Equal(irange.True()) {
		t.Errorf("d on entry->b = %s, %v", r, ok)
	}
}

type nonNullAll struct{}

func (nonNullAll) NonNullDeref(v mir.Value, b *mir.Block) bool { return true }

func TestNonNullHook(t *testing.T) {
	rr, fn := newRanger(t, "deref.mir")
	rr.NonNull = nonNullAll{}

	p := val(t, fn, "p")
	q := instr(t, fn, "q")

	r, ok := rr.RangeOfExpr(p, q)
	if !ok || r.Contains(wint.Zero(wint.Ptr)) {
		t.Errorf("p = %s, %v", r, ok)
	}
	r, ok = rr.RangeOfStmt(q, q)
	if !ok || r.Contains(wint.Zero(wint.Ptr)) {
		t.Errorf("q = %s, %v", r, ok)
	}
}

func TestNonNullHookDisabled(t *testing.T) {
	fn := parseProgram(t, "deref.mir")
	conf := config.Default()
	conf.NonCallExceptions = true
	t.Cleanup(func() { config.Apply(config.Default()) })
	rr := New(fn, conf)
	rr.NonNull = nonNullAll{}

	// With observable traps a dereference proves nothing.
	p := val(t, fn, "p")
	r, ok := rr.RangeOfExpr(p, instr(t, fn, "q"))
	if !ok || !r.Varying() {
		t.Errorf("p = %s, %v", r, ok)
	}
}

func TestFoldStmtOnEdge(t *testing.T) {
	rr, fn := newRanger(t, "branch.mir")
	y := instr(t, fn, "y")

	r, ok := FoldStmtOnEdge(rr, y, edge(t, fn, "small", "mid"))
	if !ok || !r.Equal(i32rng(10, 19)) {
		t.Errorf("y on small->mid = %s, %v", r, ok)
	}
}

func TestDependencies(t *testing.T) {
	rr, fn := newRanger(t, "branch.mir")
	y := instr(t, fn, "y")
	rr.RangeOfStmt(y, y)

	deps := rr.Dependencies(y)
	found := false
	for _, d := range deps {
		if d == val(t, fn, "x") {
			found = true
		}
	}
	if !found {
		t.Errorf("dependencies of y = %v", deps)
	}
}

func TestQueryCaching(t *testing.T) {
	rr, fn := newRanger(t, "loop.mir")
	i := val(t, fn, "i")

	r1, _ := rr.RangeOnEntry(block(t, fn, "done"), i)
	r2, _ := rr.RangeOnEntry(block(t, fn, "done"), i)
	if !r1.Equal(r2) {
		t.Errorf("repeated query changed the answer: %s then %s", r1, r2)
	}
}

func TestSeedExport(t *testing.T) {
	rr, fn := newRanger(t, "loop.mir")
	Seed(rr, fn)

	out := rr.Export()
	if r, ok := out["i"]; !ok || !r.Equal(i32rng(minInt32+1, 10)) {
		t.Errorf("exported i = %s, %v", r, ok)
	}
	if r, ok := out["zero"]; !ok || !r.Equal(i32rng(0, 0)) {
		t.Errorf("exported zero = %s, %v", r, ok)
	}
	// c never narrows past bool varying and is not reported.
	if r, ok := out["c"]; ok {
		t.Errorf("exported c = %s", r)
	}
}

func TestDump(t *testing.T) {
	rr, fn := newRanger(t, "loop.mir")
	Seed(rr, fn)
	rr.RangeOnEntry(block(t, fn, "done"), val(t, fn, "i"))

	var buf bytes.Buffer
	rr.Dump(&buf)
	out := buf.String()
	for _, want := range []string{
		"=========== BB 0 (entry) ============",
		"Non-varying global ranges:",
		"i  :",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump is missing %q:\n%s", want, out)
		}
	}
}

func TestTracer(t *testing.T) {
	rr, fn := newRanger(t, "branch.mir")
	var buf bytes.Buffer
	tr := &Tracer{Q: rr, Out: &buf}

	y := instr(t, fn, "y")
	r1, ok := tr.RangeOfStmt(y, y)
	if !ok {
		t.Fatal("traced query failed")
	}
	r2, _ := rr.RangeOfStmt(y, y)
	if !r1.Equal(r2) {
		t.Errorf("tracing changed the answer: %s vs %s", r1, r2)
	}

	out := buf.String()
	if !strings.Contains(out, "range_of_stmt (y)") {
		t.Errorf("trace is missing the header:\n%s", out)
	}
	if !strings.Contains(out, "TRUE : (1) range_of_stmt (y)") {
		t.Errorf("trace is missing the trailer:\n%s", out)
	}
}

func TestConstantP(t *testing.T) {
	fn, err := mir.ParseFunction(`
func f(x i32) {
entry:
	five = const i32 5
	a = call i32 constant_p five
	b = call i32 constant_p x
	ret
}
`)
	if err != nil {
		t.Fatal(err)
	}

	a := fn.Blocks[0].Instrs[1]
	b := fn.Blocks[0].Instrs[2]

	var f Folder
	if r, ok := f.FoldStmt(a, newListSource(nil, nil)); !ok || !r.Equal(i32rng(1, 1)) {
		t.Errorf("constant_p of a constant = %s, %v", r, ok)
	}
	if _, ok := f.FoldStmt(b, newListSource(nil, nil)); ok {
		t.Error("constant_p of an unknown folded early")
	}

	f.Final = true
	if r, ok := f.FoldStmt(b, newListSource(nil, nil)); !ok || !r.Equal(i32rng(0, 0)) {
		t.Errorf("late constant_p of an unknown = %s, %v", r, ok)
	}
}
