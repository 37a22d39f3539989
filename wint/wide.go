package wint

import "math/bits"

// Wide is a 128-bit two's-complement value. It exists so corner products
// can be computed exactly at double the maximum type width and compared
// before truncation.
type Wide struct {
	hi, lo uint64
}

// Wide extends v to 128 bits under its type's signedness.
func (v Val) Wide() Wide {
	p := v.bits
	if v.typ.Signed {
		p = v.sext()
		if int64(p) < 0 {
			return Wide{^uint64(0), p}
		}
	}
	return Wide{0, p}
}

// WideMul returns the exact product of a and b at 128 bits.
func WideMul(a, b Val) Wide {
	am, an := a.magnitude()
	bm, bn := b.magnitude()
	hi, lo := bits.Mul64(am, bm)
	w := Wide{hi, lo}
	if an != bn {
		w = w.Neg()
	}
	return w
}

func (v Val) magnitude() (uint64, bool) {
	if v.typ.Signed && v.negative() {
		return -v.sext(), true
	}
	return v.bits, false
}

// WideFromInt64 sign-extends v to 128 bits.
func WideFromInt64(v int64) Wide {
	if v < 0 {
		return Wide{^uint64(0), uint64(v)}
	}
	return Wide{0, uint64(v)}
}

// Mul returns the product of two Wides whose magnitudes fit in 64 bits.
func (w Wide) Mul(o Wide) Wide {
	wm, wn := w.wideMagnitude()
	om, on := o.wideMagnitude()
	hi, lo := bits.Mul64(wm, om)
	p := Wide{hi, lo}
	if wn != on {
		p = p.Neg()
	}
	return p
}

func (w Wide) wideMagnitude() (uint64, bool) {
	if int64(w.hi) < 0 {
		n := w.Neg()
		if n.hi != 0 {
			panic("wint: wide magnitude exceeds 64 bits")
		}
		return n.lo, true
	}
	if w.hi != 0 {
		panic("wint: wide magnitude exceeds 64 bits")
	}
	return w.lo, false
}

// WideMask returns 2^width - 1.
func WideMask(width uint) Wide {
	if width >= 128 {
		return Wide{^uint64(0), ^uint64(0)}
	}
	if width >= 64 {
		return Wide{1<<(width-64) - 1, ^uint64(0)}
	}
	return Wide{0, 1<<width - 1}
}

func (w Wide) Add(o Wide) Wide {
	lo, c := bits.Add64(w.lo, o.lo, 0)
	hi, _ := bits.Add64(w.hi, o.hi, c)
	return Wide{hi, lo}
}

func (w Wide) Sub(o Wide) Wide {
	lo, b := bits.Sub64(w.lo, o.lo, 0)
	hi, _ := bits.Sub64(w.hi, o.hi, b)
	return Wide{hi, lo}
}

func (w Wide) Neg() Wide {
	return Wide{}.Sub(w)
}

// Cmp compares two Wides as signed 128-bit values.
func (w Wide) Cmp(o Wide) int {
	if w.hi != o.hi {
		if int64(w.hi) < int64(o.hi) {
			return -1
		}
		return 1
	}
	switch {
	case w.lo < o.lo:
		return -1
	case w.lo > o.lo:
		return 1
	}
	return 0
}

// CmpU compares two Wides as unsigned 128-bit values.
func (w Wide) CmpU(o Wide) int {
	if w.hi != o.hi {
		if w.hi < o.hi {
			return -1
		}
		return 1
	}
	switch {
	case w.lo < o.lo:
		return -1
	case w.lo > o.lo:
		return 1
	}
	return 0
}

// Trunc keeps the low bits of w as a value of typ.
func (w Wide) Trunc(typ Type) Val {
	return FromBits(typ, w.lo)
}
