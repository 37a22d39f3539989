package mir

import (
	"fmt"

	"honnef.co/go/ranger/wint"
)

// assemble turns raw blocks into a checked Function: it wires the CFG,
// resolves operand names, infers the remaining instruction types and
// validates operand types.
func assemble(name string, params []*Param, raws []*rawBlock) (*Function, error) {
	fn := &Function{
		Name:   name,
		Params: params,
		values: map[string]Value{},
	}

	blocks := map[string]*Block{}
	for i, raw := range raws {
		if _, ok := blocks[raw.label]; ok {
			return nil, fmt.Errorf("%d:%d: block %s defined twice", raw.pos.line, raw.pos.col, raw.label)
		}
		b := &Block{Index: i, Label: raw.label}
		blocks[raw.label] = b
		fn.Blocks = append(fn.Blocks, b)
	}

	// Wire the CFG. Predecessor order is the order edges are created in,
	// which phi argument lists get aligned to.
	for i, raw := range raws {
		b := fn.Blocks[i]
		for _, target := range raw.ctrl.targets {
			succ, ok := blocks[target]
			if !ok {
				return nil, fmt.Errorf("%d:%d: unknown block %s", raw.ctrl.pos.line, raw.ctrl.pos.col, target)
			}
			b.Succs = append(b.Succs, succ)
			succ.Preds = append(succ.Preds, b)
		}
		if raw.ctrl.kind == ctrlBr && raw.ctrl.targets[0] == raw.ctrl.targets[1] {
			return nil, fmt.Errorf("%d:%d: both branch targets are %s", raw.ctrl.pos.line, raw.ctrl.pos.col, raw.ctrl.targets[0])
		}
	}
	if len(fn.Blocks[0].Preds) > 0 {
		return nil, fmt.Errorf("entry block %s has predecessors", fn.Blocks[0].Label)
	}

	define := func(pos item, name string, v Value) error {
		if _, ok := fn.values[name]; ok {
			return fmt.Errorf("%d:%d: value %s defined twice", pos.line, pos.col, name)
		}
		fn.values[name] = v
		return nil
	}
	for _, p := range params {
		if err := define(item{}, p.name, p); err != nil {
			return nil, fmt.Errorf("parameter %s defined twice", p.name)
		}
	}

	// Create the instruction shells so uses can refer forward, then
	// resolve operands in a second pass.
	instrs := map[*rawInstr]Instr{}
	for i, raw := range raws {
		b := fn.Blocks[i]
		for _, ri := range raw.instrs {
			reg := register{name: ri.name, typ: ri.typ, blk: b}
			var instr Instr
			switch ri.kind {
			case rawConst:
				instr = &Const{register: reg, X: ri.cval}
			case rawBin:
				instr = &BinOp{register: reg, Op: ri.op}
			case rawUn:
				instr = &UnOp{register: reg, Op: ri.op}
			case rawPhi:
				instr = &Phi{register: reg}
			case rawCall:
				instr = &Call{register: reg, Builtin: ri.builtin}
			case rawSelect:
				instr = &Select{register: reg}
			case rawAddr:
				reg.typ = wint.Ptr
				instr = &Addr{register: reg}
			}
			if err := define(ri.pos, ri.name, instr); err != nil {
				return nil, err
			}
			instrs[ri] = instr
			b.Instrs = append(b.Instrs, instr)
		}
	}

	lookup := func(pos item, name string) (Value, error) {
		v, ok := fn.values[name]
		if !ok {
			return nil, fmt.Errorf("%d:%d: unknown value %s", pos.line, pos.col, name)
		}
		return v, nil
	}

	for _, raw := range raws {
		for _, ri := range raw.instrs {
			var ops []Value
			for _, a := range ri.args {
				v, err := lookup(ri.pos, a)
				if err != nil {
					return nil, err
				}
				ops = append(ops, v)
			}
			switch instr := instrs[ri].(type) {
			case *BinOp:
				instr.X, instr.Y = ops[0], ops[1]
			case *UnOp:
				instr.X = ops[0]
			case *Call:
				instr.Args = ops
			case *Select:
				instr.Cond, instr.Then, instr.Else = ops[0], ops[1], ops[2]
			case *Addr:
				instr.X = ops[0]
			case *Phi:
				if err := resolvePhi(fn, instr, ri); err != nil {
					return nil, err
				}
			}
		}
	}

	// Resolve the terminators.
	for i, raw := range raws {
		b := fn.Blocks[i]
		switch raw.ctrl.kind {
		case ctrlBr:
			cond, err := lookup(raw.ctrl.pos, raw.ctrl.cond)
			if err != nil {
				return nil, err
			}
			b.Control = &If{Cond: cond, blk: b}
		case ctrlJmp:
			b.Control = &Jump{blk: b}
		case ctrlRet:
			ret := &Ret{}
			if raw.ctrl.ret != "" {
				x, err := lookup(raw.ctrl.pos, raw.ctrl.ret)
				if err != nil {
					return nil, err
				}
				ret.X = x
			}
			b.Control = ret
		}
	}

	if err := inferTypes(fn, raws, instrs); err != nil {
		return nil, err
	}
	if err := check(fn, raws, instrs); err != nil {
		return nil, err
	}
	return fn, nil
}

func resolvePhi(fn *Function, phi *Phi, ri *rawInstr) error {
	byLabel := map[string]string{}
	for _, arg := range ri.phiArgs {
		if _, ok := byLabel[arg.label]; ok {
			return fmt.Errorf("%d:%d: phi lists block %s twice", ri.pos.line, ri.pos.col, arg.label)
		}
		byLabel[arg.label] = arg.value
	}
	b := phi.blk
	if len(byLabel) != len(b.Preds) {
		return fmt.Errorf("%d:%d: phi has %d arguments, block %s has %d predecessors",
			ri.pos.line, ri.pos.col, len(byLabel), b.Label, len(b.Preds))
	}
	for _, pred := range b.Preds {
		name, ok := byLabel[pred.Label]
		if !ok {
			return fmt.Errorf("%d:%d: phi is missing an argument for predecessor %s", ri.pos.line, ri.pos.col, pred.Label)
		}
		v, ok := fn.values[name]
		if !ok {
			return fmt.Errorf("%d:%d: unknown value %s", ri.pos.line, ri.pos.col, name)
		}
		phi.Edges = append(phi.Edges, v)
	}
	return nil
}

func typed(v Value) bool { return v.Type() != wint.Type{} }

// inferTypes fills in the types the syntax leaves implicit. Multiple
// passes handle uses that precede their definitions in the text; anything
// still untyped after a full pass without progress is part of a cycle of
// untyped instructions, which explicit phi types rule out in well-formed
// input.
func inferTypes(fn *Function, raws []*rawBlock, instrs map[*rawInstr]Instr) error {
	for {
		progress := false
		done := true
		for _, raw := range raws {
			for _, ri := range raw.instrs {
				instr := instrs[ri]
				if typed(instr) {
					continue
				}
				var typ wint.Type
				switch instr := instr.(type) {
				case *BinOp:
					if instr.Op.Comparison() {
						typ = wint.Bool
					} else if typed(instr.X) {
						typ = instr.X.Type()
					}
				case *UnOp:
					switch {
					case instr.Op == LogicalNot:
						typ = wint.Bool
					case instr.Op == Absu && typed(instr.X):
						typ = wint.Type{Bits: instr.X.Type().Bits}
					case typed(instr.X):
						typ = instr.X.Type()
					}
				case *Select:
					if typed(instr.Then) {
						typ = instr.Then.Type()
					}
				}
				if typ != (wint.Type{}) {
					setType(instr, typ)
					progress = true
				} else {
					done = false
				}
			}
		}
		if done {
			return nil
		}
		if !progress {
			for _, raw := range raws {
				for _, ri := range raw.instrs {
					if !typed(instrs[ri]) {
						return fmt.Errorf("%d:%d: cannot infer the type of %s", ri.pos.line, ri.pos.col, ri.name)
					}
				}
			}
		}
	}
}

func setType(instr Instr, typ wint.Type) {
	switch instr := instr.(type) {
	case *BinOp:
		instr.typ = typ
	case *UnOp:
		instr.typ = typ
	case *Select:
		instr.typ = typ
	}
}

func check(fn *Function, raws []*rawBlock, instrs map[*rawInstr]Instr) error {
	errf := func(ri *rawInstr, format string, args ...interface{}) error {
		return fmt.Errorf("%d:%d: %s", ri.pos.line, ri.pos.col, fmt.Sprintf(format, args...))
	}
	for _, raw := range raws {
		for _, ri := range raw.instrs {
			switch instr := instrs[ri].(type) {
			case *BinOp:
				x, y := instr.X.Type(), instr.Y.Type()
				switch instr.Op {
				case Lsh, Rsh:
					if x.Pointer || y.Pointer {
						return errf(ri, "cannot shift pointers")
					}
				case PtrPlus:
					if !x.Pointer {
						return errf(ri, "ptradd of non-pointer %s", x)
					}
					if y != wint.Uint64 {
						return errf(ri, "ptradd offset must be u64, got %s", y)
					}
				case LogicalAnd, LogicalOr:
					if x != wint.Bool || y != wint.Bool {
						return errf(ri, "%s of non-bool operands", instr.Op)
					}
				default:
					if x != y {
						return errf(ri, "operand types %s and %s differ", x, y)
					}
				}
			case *UnOp:
				x := instr.X.Type()
				switch instr.Op {
				case LogicalNot:
					if x != wint.Bool {
						return errf(ri, "lnot of non-bool operand %s", x)
					}
				case Abs, Absu:
					if !x.Signed {
						return errf(ri, "%s of non-signed operand %s", instr.Op, x)
					}
				case Neg:
					if x.Pointer {
						return errf(ri, "neg of pointer operand")
					}
				}
			case *Select:
				if instr.Cond.Type() != wint.Bool {
					return errf(ri, "select condition must be bool, got %s", instr.Cond.Type())
				}
				if instr.Then.Type() != instr.Else.Type() {
					return errf(ri, "select arms have types %s and %s", instr.Then.Type(), instr.Else.Type())
				}
			case *Addr:
				if !instr.X.Type().Pointer {
					return errf(ri, "addr of non-pointer %s", instr.X.Type())
				}
			case *Call:
				switch instr.Builtin {
				case CheckedAdd, CheckedSub, CheckedMul:
					if instr.Args[0].Type() != instr.typ || instr.Args[1].Type() != instr.typ {
						return errf(ri, "%s operands must have the result type %s", instr.Builtin, instr.typ)
					}
				case Strlen:
					if !instr.Args[0].Type().Pointer {
						return errf(ri, "strlen of non-pointer %s", instr.Args[0].Type())
					}
				default:
					if instr.Args[0].Type().Pointer {
						return errf(ri, "%s of pointer operand", instr.Builtin)
					}
				}
			case *Phi:
				for i, e := range instr.Edges {
					if e.Type() != instr.typ {
						return errf(ri, "phi argument for %s has type %s, want %s",
							instr.blk.Preds[i].Label, e.Type(), instr.typ)
					}
				}
			}
		}
	}

	for i, raw := range raws {
		b := fn.Blocks[i]
		if ctrl, ok := b.Control.(*If); ok {
			if ctrl.Cond.Type() != wint.Bool {
				return fmt.Errorf("%d:%d: branch condition must be bool, got %s",
					raw.ctrl.pos.line, raw.ctrl.pos.col, ctrl.Cond.Type())
			}
		}
	}
	return nil
}
