package mir

import (
	"fmt"
	"strconv"
	"strings"

	"honnef.co/go/ranger/wint"
)

// The textual format, one statement per line:
//
//	func clamp(x i8) {
//	entry:
//		lo = const i8 0
//		hi = const i8 100
//		c = lt x, lo
//		br c, low, test
//	low:
//		jmp join
//	test:
//		jmp join
//	join:
//		r = phi i8 [low: lo, test: x]
//		ret r
//	}
//
// Operands are always names; constants are materialized by const
// statements. Phis, consts, calls and casts carry their type explicitly,
// everything else derives its type from its operands. Comments run from
// "//" to the end of the line.

type itemType uint8

const (
	itemError itemType = iota
	itemEOF
	itemNewline
	itemIdent
	itemInt
	itemLParen
	itemRParen
	itemLBrace
	itemRBrace
	itemLBracket
	itemRBracket
	itemComma
	itemColon
	itemAssign
)

func (t itemType) String() string {
	switch t {
	case itemError:
		return "error"
	case itemEOF:
		return "end of input"
	case itemNewline:
		return "end of line"
	case itemIdent:
		return "identifier"
	case itemInt:
		return "integer"
	case itemLParen:
		return "("
	case itemRParen:
		return ")"
	case itemLBrace:
		return "{"
	case itemRBrace:
		return "}"
	case itemLBracket:
		return "["
	case itemRBracket:
		return "]"
	case itemComma:
		return ","
	case itemColon:
		return ":"
	case itemAssign:
		return "="
	default:
		return fmt.Sprintf("item(%d)", uint8(t))
	}
}

type item struct {
	typ  itemType
	val  string
	line int
	col  int
}

func isIdentRune(r byte, first bool) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_' {
		return true
	}
	return !first && (r >= '0' && r <= '9' || r == '.')
}

func lex(src string) []item {
	var items []item
	line, col := 1, 1
	emit := func(typ itemType, val string) {
		items = append(items, item{typ, val, line, col})
	}

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
			col++
		case c == '\n':
			// Collapse runs of blank lines into one newline item.
			if len(items) > 0 && items[len(items)-1].typ != itemNewline {
				emit(itemNewline, "\n")
			}
			i++
			line++
			col = 1
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(':
			emit(itemLParen, "(")
			i++
			col++
		case c == ')':
			emit(itemRParen, ")")
			i++
			col++
		case c == '{':
			emit(itemLBrace, "{")
			i++
			col++
		case c == '}':
			emit(itemRBrace, "}")
			i++
			col++
		case c == '[':
			emit(itemLBracket, "[")
			i++
			col++
		case c == ']':
			emit(itemRBracket, "]")
			i++
			col++
		case c == ',':
			emit(itemComma, ",")
			i++
			col++
		case c == ':':
			emit(itemColon, ":")
			i++
			col++
		case c == '=':
			emit(itemAssign, "=")
			i++
			col++
		case c >= '0' && c <= '9' || c == '-':
			j := i + 1
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' ||
				src[j] >= 'a' && src[j] <= 'f' || src[j] >= 'A' && src[j] <= 'F' ||
				src[j] == 'x' || src[j] == 'X') {
				j++
			}
			emit(itemInt, src[i:j])
			col += j - i
			i = j
		case isIdentRune(c, true):
			j := i + 1
			for j < len(src) && isIdentRune(src[j], false) {
				j++
			}
			emit(itemIdent, src[i:j])
			col += j - i
			i = j
		default:
			emit(itemError, fmt.Sprintf("unexpected character %q", c))
			return items
		}
	}
	if len(items) > 0 && items[len(items)-1].typ != itemNewline {
		emit(itemNewline, "\n")
	}
	emit(itemEOF, "")
	return items
}

// Parse parses a program: one or more functions.
func Parse(src string) ([]*Function, error) {
	p := &parser{items: lex(src)}
	var fns []*Function
	seen := map[string]bool{}
	for {
		p.skipNewlines()
		if _, ok := p.accept(itemEOF); ok {
			break
		}
		p.rewind()
		fn, err := p.function()
		if err != nil {
			return nil, err
		}
		if seen[fn.Name] {
			return nil, fmt.Errorf("function %s defined twice", fn.Name)
		}
		seen[fn.Name] = true
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return nil, fmt.Errorf("no functions in input")
	}
	return fns, nil
}

// ParseFunction parses a program expected to contain exactly one function.
func ParseFunction(src string) (*Function, error) {
	fns, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(fns) != 1 {
		return nil, fmt.Errorf("expected one function, got %d", len(fns))
	}
	return fns[0], nil
}

type parser struct {
	items []item
	pos   int
	prev  int
	cur   item
}

func (p *parser) next() item {
	p.prev = p.pos
	if p.pos < len(p.items) {
		p.cur = p.items[p.pos]
		p.pos++
	} else {
		p.cur = item{typ: itemEOF}
	}
	return p.cur
}

// rewind pushes the last token back. It is idempotent; rewinding twice
// without an intervening next is a no-op.
func (p *parser) rewind() {
	p.pos = p.prev
}

func (p *parser) peek() item {
	n := p.next()
	p.rewind()
	return n
}

func (p *parser) accept(typ itemType) (item, bool) {
	n := p.next()
	if n.typ == typ {
		return n, true
	}
	p.rewind()
	return item{}, false
}

func (p *parser) skipNewlines() {
	for {
		if _, ok := p.accept(itemNewline); !ok {
			return
		}
	}
}

func (p *parser) unexpectedToken(valid string) error {
	if p.cur.typ == itemError {
		return fmt.Errorf("%d:%d: %s", p.cur.line, p.cur.col, p.cur.val)
	}
	var got string
	switch p.cur.typ {
	case itemIdent, itemInt:
		got = p.cur.val
	default:
		got = "'" + p.cur.typ.String() + "'"
	}
	return fmt.Errorf("%d:%d: expected %s, found %s", p.cur.line, p.cur.col, valid, got)
}

func (p *parser) errorf(it item, format string, args ...interface{}) error {
	return fmt.Errorf("%d:%d: %s", it.line, it.col, fmt.Sprintf(format, args...))
}

func (p *parser) ident() (item, error) {
	n, ok := p.accept(itemIdent)
	if !ok {
		return item{}, p.unexpectedToken("identifier")
	}
	return n, nil
}

func (p *parser) expect(typ itemType) error {
	if _, ok := p.accept(typ); !ok {
		return p.unexpectedToken("'" + typ.String() + "'")
	}
	return nil
}

func (p *parser) typename() (wint.Type, error) {
	n, err := p.ident()
	if err != nil {
		return wint.Type{}, err
	}
	typ, ok := wint.TypeFromString(n.val)
	if !ok {
		return wint.Type{}, p.errorf(n, "unknown type %s", n.val)
	}
	return typ, nil
}

// Raw statements hold operand names until the whole function is known, so
// uses may precede definitions in the text.

type rawKind uint8

const (
	rawConst rawKind = iota
	rawBin
	rawUn
	rawPhi
	rawCall
	rawSelect
	rawAddr
)

type phiArg struct {
	label string
	value string
}

type rawInstr struct {
	pos     item
	kind    rawKind
	name    string
	op      Op
	typ     wint.Type // const, phi, call, cast
	cval    wint.Val
	builtin Builtin
	args    []string
	phiArgs []phiArg
}

type ctrlKind uint8

const (
	ctrlBr ctrlKind = iota
	ctrlJmp
	ctrlRet
)

type rawCtrl struct {
	pos     item
	kind    ctrlKind
	cond    string
	targets []string
	ret     string // "" for a bare ret
}

type rawBlock struct {
	pos    item
	label  string
	instrs []*rawInstr
	ctrl   *rawCtrl
}

func (p *parser) function() (*Function, error) {
	kw, err := p.ident()
	if err != nil {
		return nil, err
	}
	if kw.val != "func" {
		return nil, p.errorf(kw, "expected 'func', found %s", kw.val)
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect(itemLParen); err != nil {
		return nil, err
	}

	var params []*Param
	for {
		if _, ok := p.accept(itemRParen); ok {
			break
		}
		p.rewind()
		if len(params) > 0 {
			if err := p.expect(itemComma); err != nil {
				return nil, err
			}
		}
		pname, err := p.ident()
		if err != nil {
			return nil, err
		}
		typ, err := p.typename()
		if err != nil {
			return nil, err
		}
		params = append(params, &Param{name: pname.val, typ: typ})
	}
	if err := p.expect(itemLBrace); err != nil {
		return nil, err
	}
	if err := p.expect(itemNewline); err != nil {
		return nil, err
	}

	var blocks []*rawBlock
	for {
		p.skipNewlines()
		if _, ok := p.accept(itemRBrace); ok {
			break
		}
		p.rewind()
		b, err := p.block()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if len(blocks) == 0 {
		return nil, p.errorf(kw, "function %s has no blocks", name.val)
	}
	return assemble(name.val, params, blocks)
}

func (p *parser) block() (*rawBlock, error) {
	label, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect(itemColon); err != nil {
		return nil, err
	}
	if err := p.expect(itemNewline); err != nil {
		return nil, err
	}

	b := &rawBlock{pos: label, label: label.val}
	for {
		p.skipNewlines()
		first, err := p.ident()
		if err != nil {
			return nil, err
		}
		switch first.val {
		case "br", "jmp", "ret":
			ctrl, err := p.control(first)
			if err != nil {
				return nil, err
			}
			b.ctrl = ctrl
			return b, nil
		}
		instr, err := p.instruction(first)
		if err != nil {
			return nil, err
		}
		b.instrs = append(b.instrs, instr)
	}
}

func (p *parser) control(kw item) (*rawCtrl, error) {
	ctrl := &rawCtrl{pos: kw}
	switch kw.val {
	case "br":
		ctrl.kind = ctrlBr
		cond, err := p.ident()
		if err != nil {
			return nil, err
		}
		ctrl.cond = cond.val
		for i := 0; i < 2; i++ {
			if err := p.expect(itemComma); err != nil {
				return nil, err
			}
			target, err := p.ident()
			if err != nil {
				return nil, err
			}
			ctrl.targets = append(ctrl.targets, target.val)
		}
	case "jmp":
		ctrl.kind = ctrlJmp
		target, err := p.ident()
		if err != nil {
			return nil, err
		}
		ctrl.targets = []string{target.val}
	case "ret":
		ctrl.kind = ctrlRet
		if v, ok := p.accept(itemIdent); ok {
			ctrl.ret = v.val
		} else {
			p.rewind()
		}
	}
	return ctrl, p.expect(itemNewline)
}

func (p *parser) instruction(name item) (*rawInstr, error) {
	if err := p.expect(itemAssign); err != nil {
		return nil, err
	}
	verb, err := p.ident()
	if err != nil {
		return nil, err
	}

	instr := &rawInstr{pos: name, name: name.val}
	switch verb.val {
	case "const":
		instr.kind = rawConst
		typ, err := p.typename()
		if err != nil {
			return nil, err
		}
		lit, ok := p.accept(itemInt)
		if !ok {
			return nil, p.unexpectedToken("integer")
		}
		v, err := constFromString(typ, lit.val)
		if err != nil {
			return nil, p.errorf(lit, "%s", err)
		}
		instr.typ = typ
		instr.cval = v
	case "phi":
		instr.kind = rawPhi
		typ, err := p.typename()
		if err != nil {
			return nil, err
		}
		instr.typ = typ
		if err := p.expect(itemLBracket); err != nil {
			return nil, err
		}
		for {
			if _, ok := p.accept(itemRBracket); ok {
				break
			}
			p.rewind()
			if len(instr.phiArgs) > 0 {
				if err := p.expect(itemComma); err != nil {
					return nil, err
				}
			}
			label, err := p.ident()
			if err != nil {
				return nil, err
			}
			if err := p.expect(itemColon); err != nil {
				return nil, err
			}
			val, err := p.ident()
			if err != nil {
				return nil, err
			}
			instr.phiArgs = append(instr.phiArgs, phiArg{label.val, val.val})
		}
		if len(instr.phiArgs) == 0 {
			return nil, p.errorf(verb, "phi with no arguments")
		}
	case "call":
		instr.kind = rawCall
		typ, err := p.typename()
		if err != nil {
			return nil, err
		}
		instr.typ = typ
		bname, err := p.ident()
		if err != nil {
			return nil, err
		}
		builtin, ok := BuiltinFromString(bname.val)
		if !ok {
			return nil, p.errorf(bname, "unknown builtin %s", bname.val)
		}
		instr.builtin = builtin
		for i := 0; i < builtin.NumArgs(); i++ {
			if i > 0 {
				if err := p.expect(itemComma); err != nil {
					return nil, err
				}
			}
			arg, err := p.ident()
			if err != nil {
				return nil, err
			}
			instr.args = append(instr.args, arg.val)
		}
	case "select":
		instr.kind = rawSelect
		for i := 0; i < 3; i++ {
			if i > 0 {
				if err := p.expect(itemComma); err != nil {
					return nil, err
				}
			}
			arg, err := p.ident()
			if err != nil {
				return nil, err
			}
			instr.args = append(instr.args, arg.val)
		}
	case "addr":
		instr.kind = rawAddr
		arg, err := p.ident()
		if err != nil {
			return nil, err
		}
		instr.args = []string{arg.val}
	case "cast":
		instr.kind = rawUn
		instr.op = Cast
		typ, err := p.typename()
		if err != nil {
			return nil, err
		}
		instr.typ = typ
		arg, err := p.ident()
		if err != nil {
			return nil, err
		}
		instr.args = []string{arg.val}
	default:
		op, ok := OpFromString(verb.val)
		if !ok {
			return nil, p.errorf(verb, "unknown operation %s", verb.val)
		}
		if op.Unary() {
			instr.kind = rawUn
			instr.op = op
			arg, err := p.ident()
			if err != nil {
				return nil, err
			}
			instr.args = []string{arg.val}
		} else {
			instr.kind = rawBin
			instr.op = op
			for i := 0; i < 2; i++ {
				if i > 0 {
					if err := p.expect(itemComma); err != nil {
						return nil, err
					}
				}
				arg, err := p.ident()
				if err != nil {
					return nil, err
				}
				instr.args = append(instr.args, arg.val)
			}
		}
	}
	return instr, p.expect(itemNewline)
}

func constFromString(typ wint.Type, s string) (wint.Val, error) {
	if strings.HasPrefix(s, "-") {
		if !typ.Signed {
			return wint.Val{}, fmt.Errorf("negative constant %s for unsigned type %s", s, typ)
		}
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return wint.Val{}, fmt.Errorf("bad constant %s", s)
		}
		min := int64(-1) << (typ.Bits - 1)
		if v < min {
			return wint.Val{}, fmt.Errorf("constant %s out of range for %s", s, typ)
		}
		return wint.New(typ, v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return wint.Val{}, fmt.Errorf("bad constant %s", s)
	}
	var max uint64
	if typ.Signed {
		max = 1<<(typ.Bits-1) - 1
	} else if typ.Bits == 64 {
		max = ^uint64(0)
	} else {
		max = 1<<typ.Bits - 1
	}
	if v > max {
		return wint.Val{}, fmt.Errorf("constant %s out of range for %s", s, typ)
	}
	return wint.New(typ, v), nil
}
