package irange

import (
	"testing"

	"honnef.co/go/ranger/wint"
)

func rng(lo, hi int64) Range {
	return NewInt(wint.Int32, lo, hi)
}

func union(rs ...Range) Range {
	r := rs[0]
	for _, o := range rs[1:] {
		r.Union(o)
	}
	return r
}

func TestUnionOrdering(t *testing.T) {
	// ([10,20] U [5,8]) U [1,3] => [1,3][5,8][10,20].
	r0 := union(rng(10, 20), rng(5, 8), rng(1, 3))
	if want := union(rng(1, 3), rng(5, 8), rng(10, 20)); !r0.Equal(want) {
		t.Errorf("got %s, want %s", r0, want)
	}

	// [1,3][5,8][10,20] U [-5,0] => [-5,3][5,8][10,20].
	r0.Union(rng(-5, 0))
	if want := union(rng(-5, 3), rng(5, 8), rng(10, 20)); !r0.Equal(want) {
		t.Errorf("got %s, want %s", r0, want)
	}
}

func TestUnionOverlap(t *testing.T) {
	base := func() Range { return union(rng(10, 20), rng(30, 40), rng(50, 60)) }
	tests := []struct {
		add  Range
		want Range
	}{
		{rng(6, 35), union(rng(6, 40), rng(50, 60))},
		{rng(6, 60), rng(6, 60)},
		{rng(6, 70), rng(6, 70)},
		{rng(35, 70), union(rng(10, 20), rng(30, 70))},
		{rng(15, 35), union(rng(10, 40), rng(50, 60))},
		{rng(35, 35), base()},
		{rng(10, 10), base()},
		{rng(9, 9), union(rng(9, 20), rng(30, 40), rng(50, 60))},
		{Undefined(wint.Int32), base()},
	}
	for _, tt := range tests {
		r := base()
		r.Union(tt.add)
		if !r.Equal(tt.want) {
			t.Errorf("%s U %s = %s, want %s", base(), tt.add, r, tt.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	r := rng(10, 20)
	r.Intersect(rng(15, 30))
	if want := rng(15, 20); !r.Equal(want) {
		t.Errorf("got %s, want %s", r, want)
	}

	// ~[1,1] ^ ~[3,3] => [min,0][2,2][4,max], which contains 2.
	r = Anti(wint.Uint32, wint.New(wint.Uint32, 1), wint.New(wint.Uint32, 1))
	r.Intersect(Anti(wint.Uint32, wint.New(wint.Uint32, 3), wint.New(wint.Uint32, 3)))
	if !r.Contains(wint.New(wint.Uint32, 2)) {
		t.Errorf("%s lost 2", r)
	}
	if r.NumPairs() != 3 {
		t.Errorf("%s has %d pairs, want 3", r, r.NumPairs())
	}

	// Disjoint ranges intersect to undefined.
	r = rng(1, 5)
	r.Intersect(rng(10, 20))
	if !r.Undefined() {
		t.Errorf("disjoint intersection %s", r)
	}
}

func TestInvert(t *testing.T) {
	// NOT(255) is [0,254] in 8-bit land.
	not255 := Anti(wint.Uint8, wint.New(wint.Uint8, 255), wint.New(wint.Uint8, 255))
	if want := NewInt(wint.Uint8, 0, 254); !not255.Equal(want) {
		t.Errorf("~{255} = %s, want %s", not255, want)
	}

	// NOT(0) is [1,255].
	if want := NewInt(wint.Uint8, 1, 255); !Nonzero(wint.Uint8).Equal(want) {
		t.Errorf("~{0} = %s, want %s", Nonzero(wint.Uint8), want)
	}

	// ~[0,5] => [6,MAX] for u32.
	r := NewInt(wint.Uint32, 0, 5)
	r.Invert()
	if want := New(wint.Uint32, wint.New(wint.Uint32, 6), wint.Uint32.Max()); !r.Equal(want) {
		t.Errorf("~[0,5] = %s, want %s", r, want)
	}

	// ~[10,MAX] => [0,9].
	r = New(wint.Uint32, wint.New(wint.Uint32, 10), wint.Uint32.Max())
	r.Invert()
	if want := NewInt(wint.Uint32, 0, 9); !r.Equal(want) {
		t.Errorf("~[10,MAX] = %s, want %s", r, want)
	}

	// ~{5} is [MIN,4][6,MAX].
	anti5 := Anti(wint.Int32, wint.New(wint.Int32, 5), wint.New(wint.Int32, 5))
	want := New(wint.Int32, wint.Int32.Min(), wint.New(wint.Int32, 4))
	want.Union(New(wint.Int32, wint.New(wint.Int32, 6), wint.Int32.Max()))
	if !anti5.Equal(want) {
		t.Errorf("~{5} = %s, want %s", anti5, want)
	}

	// Inversion is involutory.
	r = union(rng(10, 20), rng(30, 40))
	r2 := r
	r2.Invert()
	r2.Invert()
	if !r.Equal(r2) {
		t.Errorf("double inversion of %s = %s", r, r2)
	}

	// The complements of the sentinels.
	r = Undefined(wint.Int32)
	r.Invert()
	if !r.Varying() {
		t.Errorf("~undefined = %s", r)
	}
	r.Invert()
	if !r.Undefined() {
		t.Errorf("~varying = %s", r)
	}
}

func TestOneBitUnion(t *testing.T) {
	// [-1,-1] U [0,0] = varying for a 1-bit signed type.
	typ := wint.Type{Bits: 1, Signed: true}
	r := FromVal(typ.Min())
	r.Union(FromVal(typ.Max()))
	if !r.Varying() {
		t.Errorf("got %s", r)
	}
}

func TestBool(t *testing.T) {
	r := False()
	if !r.ZeroP() {
		t.Errorf("false = %s", r)
	}
	r.Invert()
	if !r.Equal(True()) {
		t.Errorf("~false = %s", r)
	}
	if !True().NonzeroP() {
		t.Error("true contains zero")
	}
	if !TrueAndFalse().Varying() {
		t.Error("[0,1] is not the full bool domain")
	}
}

func TestContains(t *testing.T) {
	r := NewInt(wint.Int8, 0, 20)
	if !r.Contains(wint.New(wint.Int8, 15)) {
		t.Errorf("%s misses 15", r)
	}
	if r.Contains(wint.New(wint.Int8, -1)) {
		t.Errorf("%s contains -1", r)
	}

	// [10,10][20,20] does NOT contain 15.
	r = union(rng(10, 10), rng(20, 20))
	if r.Contains(wint.New(wint.Int32, 15)) {
		t.Errorf("%s contains 15", r)
	}
}

func TestSingleton(t *testing.T) {
	if v, ok := rng(7, 7).Singleton(); !ok || v != wint.New(wint.Int32, 7) {
		t.Errorf("got %s, %v", v, ok)
	}
	if _, ok := rng(7, 8).Singleton(); ok {
		t.Error("[7,8] is a singleton")
	}
	if _, ok := Undefined(wint.Int32).Singleton(); ok {
		t.Error("undefined is a singleton")
	}
}

func TestManyPairs(t *testing.T) {
	var big Range
	big = Undefined(wint.Int32)
	for n := int64(0); n < 50; n++ {
		big.Union(rng(n*10, n*10+5))
	}
	if big.NumPairs() != 50 {
		t.Fatalf("%d pairs, want 50", big.NumPairs())
	}

	// Inverting produces one more sub-range.
	big.Invert()
	if big.NumPairs() != 51 {
		t.Fatalf("%d pairs after inversion, want 51", big.NumPairs())
	}

	big.Intersect(rng(5, 37))
	if big.NumPairs() != 4 {
		t.Fatalf("%d pairs after intersection, want 4", big.NumPairs())
	}
}

func TestMaxPairsCap(t *testing.T) {
	defer func(old int) { MaxPairs = old }(MaxPairs)
	MaxPairs = 3

	r := Undefined(wint.Int32)
	for n := int64(0); n < 5; n++ {
		r.Union(rng(n*10, n*10+1))
	}
	if r.NumPairs() > 3 {
		t.Fatalf("%d pairs, cap is 3", r.NumPairs())
	}
	// Capping blends, it never loses members.
	for n := int64(0); n < 5; n++ {
		if !r.Contains(wint.New(wint.Int32, n*10)) {
			t.Errorf("%s lost %d", r, n*10)
		}
	}
	if want := union(rng(0, 1), rng(10, 11), rng(20, 41)); !r.Equal(want) {
		t.Errorf("got %s, want %s", r, want)
	}
}

func TestBounds(t *testing.T) {
	r := union(rng(5, 10), rng(30, 35))
	if got := r.LowerBound(); got != wint.New(wint.Int32, 5) {
		t.Errorf("lower bound %s", got)
	}
	if got := r.UpperBound(); got != wint.New(wint.Int32, 35) {
		t.Errorf("upper bound %s", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("bounds of undefined did not panic")
		}
	}()
	Undefined(wint.Int32).LowerBound()
}

func TestNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("unordered bounds did not panic")
		}
	}()
	New(wint.Int32, wint.New(wint.Int32, 10), wint.New(wint.Int32, 5))
}

func TestValueSemantics(t *testing.T) {
	r := rng(1, 10)
	r2 := r
	r2.Union(rng(20, 30))
	if !r.Equal(rng(1, 10)) {
		t.Errorf("mutation through a copy changed %s", r)
	}
	r2.Intersect(rng(25, 40))
	if !r2.Equal(rng(25, 30)) {
		t.Errorf("got %s", r2)
	}
}
