package wint

import "testing"

func TestAdd(t *testing.T) {
	tests := []struct {
		typ  Type
		a, b int64
		want int64
		ovf  Overflow
	}{
		{Int8, 100, 27, 127, None},
		{Int8, 127, 1, -128, Above},
		{Int8, -128, -1, 127, Underflow},
		{Int8, -100, 50, -50, None},
		{Uint8, 200, 55, 255, None},
		{Uint8, 255, 1, 0, Above},
		{Uint8, 0, 0, 0, None},
		{Int64, 1<<62 - 1, 1 << 62, 1<<63 - 1, None},
	}
	for _, tt := range tests {
		got, ovf := New(tt.typ, tt.a).Add(New(tt.typ, tt.b))
		if got != New(tt.typ, tt.want) || ovf != tt.ovf {
			t.Errorf("%s: %d + %d = %s, %s; want %d, %s", tt.typ, tt.a, tt.b, got, ovf, tt.want, tt.ovf)
		}
	}
}

func TestSub(t *testing.T) {
	tests := []struct {
		typ  Type
		a, b int64
		want int64
		ovf  Overflow
	}{
		{Int8, 100, 27, 73, None},
		{Int8, -128, 1, 127, Underflow},
		{Int8, 127, -1, -128, Above},
		{Uint8, 0, 1, 255, Underflow},
		{Uint8, 255, 255, 0, None},
	}
	for _, tt := range tests {
		got, ovf := New(tt.typ, tt.a).Sub(New(tt.typ, tt.b))
		if got != New(tt.typ, tt.want) || ovf != tt.ovf {
			t.Errorf("%s: %d - %d = %s, %s; want %d, %s", tt.typ, tt.a, tt.b, got, ovf, tt.want, tt.ovf)
		}
	}
}

func TestMul(t *testing.T) {
	tests := []struct {
		typ  Type
		a, b int64
		want int64
		ovf  Overflow
	}{
		{Int8, 10, 12, 120, None},
		{Int8, 16, 16, 0, Above},
		{Int8, -16, 8, -128, None},
		{Int8, -16, 9, 112, Underflow},
		{Uint8, 16, 16, 0, Above},
		{Uint8, 15, 17, 255, None},
		{Uint64, 1 << 32, 1 << 32, 0, Above},
		{Uint64, -1, 2, -2, Above},
		// The product's high word has its sign bit set; a signed 128-bit
		// comparison would misread it as an underflow.
		{Uint64, -1, -1, 1, Above},
	}
	for _, tt := range tests {
		got, ovf := New(tt.typ, tt.a).Mul(New(tt.typ, tt.b))
		if got != New(tt.typ, tt.want) || ovf != tt.ovf {
			t.Errorf("%s: %d * %d = %s, %s; want %d, %s", tt.typ, tt.a, tt.b, got, ovf, tt.want, tt.ovf)
		}
	}
}

func TestDiv(t *testing.T) {
	div := func(name string, f func(Val, Val) (Val, Overflow), a, b, want int64) {
		t.Helper()
		got, _ := f(New(Int32, a), New(Int32, b))
		if got != New(Int32, want) {
			t.Errorf("%s(%d, %d) = %s, want %d", name, a, b, got, want)
		}
	}
	div("trunc", Val.DivTrunc, 7, 2, 3)
	div("trunc", Val.DivTrunc, -7, 2, -3)
	div("floor", Val.DivFloor, -7, 2, -4)
	div("floor", Val.DivFloor, 7, 2, 3)
	div("ceil", Val.DivCeil, 7, 2, 4)
	div("ceil", Val.DivCeil, -7, 2, -3)
	div("round", Val.DivRound, 7, 2, 4)
	div("round", Val.DivRound, -7, 2, -4)
	div("round", Val.DivRound, 7, 3, 2)

	// min / -1 is the one overflowing division
	if _, ovf := Int8.Min().DivTrunc(New(Int8, -1)); ovf != Above {
		t.Errorf("min / -1 reported %s, want overflow", ovf)
	}

	if got := New(Int32, -7).ModTrunc(New(Int32, 2)); got != New(Int32, -1) {
		t.Errorf("-7 %% 2 = %s, want -1", got)
	}
}

func TestCast(t *testing.T) {
	tests := []struct {
		from Type
		v    int64
		to   Type
		want int64
	}{
		{Int8, -5, Uint8, 251},
		{Uint8, 251, Int8, -5},
		{Int8, -5, Int16, -5},
		{Uint8, 200, Int16, 200},
		{Uint8, 200, Int8, -56},
		{Int16, -1, Uint8, 255},
		{Uint16, 0xff88, Int8, -120},
	}
	for _, tt := range tests {
		got := New(tt.from, tt.v).Cast(tt.to)
		if got != New(tt.to, tt.want) {
			t.Errorf("(%s)(%s %d) = %s, want %d", tt.to, tt.from, tt.v, got, tt.want)
		}
	}
}

func TestCmpSign(t *testing.T) {
	a := New(Int8, -1)
	b := New(Int8, 1)
	if got := a.Cmp(b); got != -1 {
		t.Errorf("-1 cmp 1 = %d under signed order", got)
	}
	if got := a.CmpSign(b, false); got != 1 {
		t.Errorf("0xff cmp 1 = %d under unsigned order", got)
	}
	if got := Zero(Uint8).Cmp(New(Uint8, 255)); got != -1 {
		t.Errorf("0 cmp 255 = %d", got)
	}
}

func TestBitHelpers(t *testing.T) {
	if got := Zero(Uint32).FloorLog2(); got != -1 {
		t.Errorf("FloorLog2(0) = %d", got)
	}
	if got := New(Uint8, 255).FloorLog2(); got != 7 {
		t.Errorf("FloorLog2(255) = %d", got)
	}
	if got := New(Int8, -1).FloorLog2(); got != 7 {
		t.Errorf("FloorLog2(0xff) = %d", got)
	}
	if got := New(Uint8, 64).ExactLog2(); got != 6 {
		t.Errorf("ExactLog2(64) = %d", got)
	}
	if got := New(Uint8, 65).ExactLog2(); got != -1 {
		t.Errorf("ExactLog2(65) = %d", got)
	}
	if got := Zero(Uint16).TrailingZeros(); got != 16 {
		t.Errorf("TrailingZeros(0) = %d", got)
	}
	if got := New(Uint16, 8).TrailingZeros(); got != 3 {
		t.Errorf("TrailingZeros(8) = %d", got)
	}
	if got := New(Int8, -1).LeadingRedundantSignBits(); got != 7 {
		t.Errorf("LeadingRedundantSignBits(-1) = %d", got)
	}
	if got := New(Int8, 1).LeadingRedundantSignBits(); got != 6 {
		t.Errorf("LeadingRedundantSignBits(1) = %d", got)
	}
}

func TestShift(t *testing.T) {
	if got := New(Int8, -8).Rsh(1); got != New(Int8, -4) {
		t.Errorf("-8 >> 1 = %s", got)
	}
	if got := New(Uint8, 0x80).Rsh(1); got != New(Uint8, 0x40) {
		t.Errorf("0x80 >> 1 = %s", got)
	}
	if got := New(Uint8, 0xc0).Lsh(1); got != New(Uint8, 0x80) {
		t.Errorf("0xc0 << 1 = %s", got)
	}
	if got := New(Uint8, 1).Lsh(8); !got.IsZero() {
		t.Errorf("1 << 8 = %s", got)
	}
}

func TestTypeExtremes(t *testing.T) {
	tests := []struct {
		typ      Type
		min, max int64
	}{
		{Int8, -128, 127},
		{Uint8, 0, 255},
		{Bool, 0, 1},
		{Int64, -1 << 63, 1<<63 - 1},
	}
	for _, tt := range tests {
		if got := tt.typ.Min(); got != New(tt.typ, tt.min) {
			t.Errorf("%s min = %s, want %d", tt.typ, got, tt.min)
		}
		if got := tt.typ.Max(); got != New(tt.typ, tt.max) {
			t.Errorf("%s max = %s, want %d", tt.typ, got, tt.max)
		}
	}
}

func TestAbs(t *testing.T) {
	if got := New(Int8, -5).Abs(); got != New(Int8, 5) {
		t.Errorf("abs(-5) = %s", got)
	}
	// The minimum has no representable absolute value and wraps to itself.
	if got := Int8.Min().Abs(); got != Int8.Min() {
		t.Errorf("abs(min) = %s", got)
	}
}
