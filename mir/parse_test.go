package mir

import (
	"strings"
	"testing"

	"honnef.co/go/ranger/wint"
)

const clampSrc = `
func clamp(x i8) {
entry:
	lo = const i8 0
	hi = const i8 100
	c = lt x, lo
	br c, low, test
low:
	jmp join
test:
	c2 = gt x, hi
	r2 = select c2, hi, x
	jmp join
join:
	r = phi i8 [low: lo, test: r2]
	ret r
}
`

func TestParse(t *testing.T) {
	fn, err := ParseFunction(clampSrc)
	if err != nil {
		t.Fatal(err)
	}
	if fn.Name != "clamp" {
		t.Errorf("name %q", fn.Name)
	}
	if len(fn.Params) != 1 || fn.Params[0].Type() != wint.Int8 {
		t.Errorf("params %v", fn.Params)
	}
	if len(fn.Blocks) != 4 {
		t.Fatalf("%d blocks", len(fn.Blocks))
	}

	entry := fn.Blocks[0]
	if entry.Label != "entry" || len(entry.Preds) != 0 || len(entry.Succs) != 2 {
		t.Errorf("entry block %s preds %d succs %d", entry.Label, len(entry.Preds), len(entry.Succs))
	}

	// Comparisons are bool regardless of their operands.
	c, ok := fn.Value("c")
	if !ok || c.Type() != wint.Bool {
		t.Errorf("c = %v", c)
	}
	// Selects take the type of their arms.
	r2, ok := fn.Value("r2")
	if !ok || r2.Type() != wint.Int8 {
		t.Errorf("r2 = %v", r2)
	}

	join, _ := fn.Block("join")
	phi := join.Instrs[0].(*Phi)
	if len(phi.Edges) != 2 {
		t.Fatalf("phi has %d edges", len(phi.Edges))
	}
	// Phi arguments are aligned with predecessor order, not source order.
	for i, pred := range join.Preds {
		arg, ok := phi.ArgOnEdge(Edge{pred, join})
		if !ok || arg != phi.Edges[i] {
			t.Errorf("edge %s: %v, %v", pred, arg, ok)
		}
	}
	if _, ok := phi.ArgOnEdge(Edge{entry, join}); ok {
		t.Error("phi resolved an argument for a non-predecessor")
	}
}

func TestParsePushback(t *testing.T) {
	// Every loop in the parser peeks at its closing delimiter with a
	// failed accept followed by a rewind; the two together must back up
	// exactly one token, or the smallest possible inputs break.
	srcs := []string{
		"func f(x i32) {\nentry:\n\tret\n}\n",
		"func f() {\nentry:\n\tret\n}\n",
		"func f(a i8, b i8) {\nentry:\n\tc = add a, b\n\tret c\n}\n",
	}
	for _, src := range srcs {
		if _, err := ParseFunction(src); err != nil {
			t.Errorf("%q: %s", src, err)
		}
	}

	p := &parser{items: lex("x y")}
	p.next()
	p.rewind()
	p.rewind()
	if n := p.next(); n.val != "x" {
		t.Errorf("double rewind skipped to %q", n.val)
	}
}

func TestParseForwardReference(t *testing.T) {
	// Uses may precede definitions; types are inferred through the cycle
	// once the phi provides one.
	fn, err := ParseFunction(`
func count(n i32) {
entry:
	one = const i32 1
	jmp loop
loop:
	i = phi i32 [entry: one, loop: next]
	next = add i, one
	c = lt next, n
	br c, loop, done
done:
	ret i
}
`)
	if err != nil {
		t.Fatal(err)
	}
	next, _ := fn.Value("next")
	if next.Type() != wint.Int32 {
		t.Errorf("next has type %s", next.Type())
	}
}

func TestParseMultipleFunctions(t *testing.T) {
	fns, err := Parse(`
func a() {
entry:
	ret
}

func b() {
entry:
	ret
}
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 2 || fns[0].Name != "a" || fns[1].Name != "b" {
		t.Errorf("got %v", fns)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"empty input",
			"",
			"no functions",
		},
		{
			"duplicate function",
			"func f() {\nentry:\n\tret\n}\nfunc f() {\nentry:\n\tret\n}\n",
			"defined twice",
		},
		{
			"duplicate block",
			"func f() {\nentry:\n\tjmp entry2\nentry2:\n\tret\nentry2:\n\tret\n}",
			"block entry2 defined twice",
		},
		{
			"duplicate value",
			"func f() {\nentry:\n\tx = const i8 1\n\tx = const i8 2\n\tret\n}",
			"value x defined twice",
		},
		{
			"parameter shadowed",
			"func f(x i8) {\nentry:\n\tx = const i8 1\n\tret\n}",
			"defined twice",
		},
		{
			"unknown value",
			"func f() {\nentry:\n\ty = add x, x\n\tret\n}",
			"unknown value x",
		},
		{
			"unknown block",
			"func f() {\nentry:\n\tjmp nowhere\n}",
			"unknown block nowhere",
		},
		{
			"unknown op",
			"func f() {\nentry:\n\tx = frob x\n\tret\n}",
			"unknown operation frob",
		},
		{
			"unknown builtin",
			"func f() {\nentry:\n\tx = call i32 launch x\n\tret\n}",
			"unknown builtin launch",
		},
		{
			"unknown type",
			"func f(x i128) {\nentry:\n\tret\n}",
			"unknown type i128",
		},
		{
			"entry with predecessors",
			"func f() {\nentry:\n\tjmp entry\n}",
			"entry block entry has predecessors",
		},
		{
			"same branch targets",
			"func f(c bool) {\nentry:\n\tbr c, done, done\ndone:\n\tret\n}",
			"both branch targets are done",
		},
		{
			"non-bool branch",
			"func f(x i8) {\nentry:\n\tbr x, a, b\na:\n\tret\nb:\n\tret\n}",
			"branch condition must be bool",
		},
		{
			"phi arity",
			"func f(x i8) {\nentry:\n\tjmp join\njoin:\n\tp = phi i8 [entry: x, join: x]\n\tret\n}",
			"phi has 2 arguments",
		},
		{
			"phi duplicate edge",
			"func f(x i8) {\nentry:\n\tjmp join\njoin:\n\tp = phi i8 [entry: x, entry: x]\n\tret\n}",
			"phi lists block entry twice",
		},
		{
			"phi missing edge",
			"func f(c bool, x i8) {\nentry:\n\tbr c, a, join\na:\n\tjmp join\njoin:\n\tp = phi i8 [a: x, b: x]\n\tret\n}",
			"phi is missing an argument for predecessor entry",
		},
		{
			"phi type mismatch",
			"func f(x i8, y i16) {\nentry:\n\tjmp a\na:\n\tjmp join\njoin:\n\tp = phi i8 [a: y]\n\tret\n}",
			"phi argument for a has type i16, want i8",
		},
		{
			"mixed operand types",
			"func f(x i8, y i16) {\nentry:\n\tz = add x, y\n\tret\n}",
			"operand types i8 and i16 differ",
		},
		{
			"pointer shift",
			"func f(p ptr, n u64) {\nentry:\n\tq = shl p, n\n\tret\n}",
			"cannot shift pointers",
		},
		{
			"ptradd of non-pointer",
			"func f(x u64) {\nentry:\n\tq = ptradd x, x\n\tret\n}",
			"ptradd of non-pointer u64",
		},
		{
			"ptradd offset type",
			"func f(p ptr, n u32) {\nentry:\n\tq = ptradd p, n\n\tret\n}",
			"ptradd offset must be u64, got u32",
		},
		{
			"logical and of ints",
			"func f(x i8) {\nentry:\n\tc = land x, x\n\tret\n}",
			"land of non-bool operands",
		},
		{
			"abs of unsigned",
			"func f(x u8) {\nentry:\n\ty = abs x\n\tret\n}",
			"abs of non-signed operand u8",
		},
		{
			"select condition",
			"func f(x i8) {\nentry:\n\ty = select x, x, x\n\tret\n}",
			"select condition must be bool",
		},
		{
			"select arm types",
			"func f(c bool, x i8, y i16) {\nentry:\n\tz = select c, x, y\n\tret\n}",
			"select arms have types i8 and i16",
		},
		{
			"addr of non-pointer",
			"func f(x i8) {\nentry:\n\tp = addr x\n\tret\n}",
			"addr of non-pointer i8",
		},
		{
			"strlen of non-pointer",
			"func f(x i8) {\nentry:\n\tn = call u64 strlen x\n\tret\n}",
			"strlen of non-pointer i8",
		},
		{
			"checked add operand types",
			"func f(x i8) {\nentry:\n\ty = call i16 add_ovf x, x\n\tret\n}",
			"add_ovf operands must have the result type i16",
		},
		{
			"popcount of pointer",
			"func f(p ptr) {\nentry:\n\tn = call i32 popcount p\n\tret\n}",
			"popcount of pointer operand",
		},
		{
			"untypable cycle",
			"func f() {\nentry:\n\tjmp loop\nloop:\n\tx = add y, y\n\ty = add x, x\n\tjmp loop\n}",
			"cannot infer the type",
		},
		{
			"negative unsigned constant",
			"func f() {\nentry:\n\tx = const u8 -1\n\tret\n}",
			"negative constant -1 for unsigned type u8",
		},
		{
			"constant out of range",
			"func f() {\nentry:\n\tx = const i8 200\n\tret\n}",
			"constant 200 out of range for i8",
		},
		{
			"stray character",
			"func f() {\nentry:\n\tx = const i8 $5\n\tret\n}",
			`unexpected character '$'`,
		},
		{
			"missing assign",
			"func f() {\nentry:\n\tx const i8 1\n\tret\n}",
			"expected '='",
		},
		{
			"phi with no arguments",
			"func f() {\nentry:\n\tp = phi i8 []\n\tret\n}",
			"phi with no arguments",
		},
		{
			"function with no blocks",
			"func f() {\n}",
			"has no blocks",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if err == nil {
				t.Fatalf("parsed without error, want %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %q, want %q", err, tt.want)
			}
		})
	}
}

func TestParseHexAndComments(t *testing.T) {
	fn, err := ParseFunction(`
// leading comment
func f() { // trailing comment
entry:
	x = const u16 0xff88
	ret x
}
`)
	if err != nil {
		t.Fatal(err)
	}
	c := fn.Blocks[0].Instrs[0].(*Const)
	if c.X != wint.New(wint.Uint16, 0xff88) {
		t.Errorf("got %s", c.X)
	}
}

func TestRoundTrip(t *testing.T) {
	srcs := []string{
		clampSrc,
		`
func kitchen(p ptr, n u64, x i32, c bool) {
entry:
	m1 = const i32 -1
	q = ptradd p, n
	a = addr q
	y = cast u8 x
	z = absu x
	w = not x
	v = neg x
	t = call i32 popcount x
	o = call i32 add_ovf x, m1
	s = select c, x, m1
	l = call u64 strlen p
	b = lnot c
	d = lor b, c
	br d, one, two
one:
	jmp three
two:
	jmp three
three:
	r = phi i32 [one: x, two: m1]
	ret
}
`,
	}
	for _, src := range srcs {
		fn, err := ParseFunction(src)
		if err != nil {
			t.Fatal(err)
		}
		printed := fn.String()
		fn2, err := ParseFunction(printed)
		if err != nil {
			t.Fatalf("reparsing %q: %s", printed, err)
		}
		if printed != fn2.String() {
			t.Errorf("round trip changed the program:\n%s\n%s", printed, fn2.String())
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add(clampSrc)
	f.Add("func f() {\nentry:\n\tret\n}\n")
	f.Add("func f(x i8) {\nentry:\n\ty = add x, x\n\tret y\n}\n")
	f.Fuzz(func(t *testing.T, src string) {
		fns, err := Parse(src)
		if err != nil {
			return
		}
		// Whatever parses must print back into parseable form.
		for _, fn := range fns {
			if _, err := ParseFunction(fn.String()); err != nil {
				t.Errorf("%q does not reparse: %s", fn.String(), err)
			}
		}
	})
}
