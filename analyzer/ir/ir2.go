package ir

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"
)

func IntType(bits int) Type {
	return Type("i" + strconv.Itoa(bits))
}

func Int(bits int, v int64) *Const {
	return &Const{Kind: ConstInt, Ty: IntType(bits), Bits: bits, Int: v}
}

func Bool(v bool) *Const {
	if v {
		return Int(1, 1)
	}

	return Int(1, 0)
}

func Float(ty Type, text string) *Const {
	return &Const{Kind: ConstFloat, Ty: ty, Text: text}
}

func Null(ty Type) *Const   { return &Const{Kind: ConstNull, Ty: ty} }
func Undef(ty Type) *Const  { return &Const{Kind: ConstUndef, Ty: ty} }
func Poison(ty Type) *Const { return &Const{Kind: ConstPoison, Ty: ty} }

func BlockAddr(dest *Block) *Const {
	return &Const{Kind: ConstBlockAddr, Ty: Ptr, Dest: dest}
}

func Other(ty Type, text string) *Const {
	return &Const{Kind: ConstOther, Ty: ty, Text: text}
}

func NewFunc(name string) *Func {
	return &Func{Name: name}
}

func (f *Func) AddArg(name string, ty Type) *Arg {
	a := &Arg{Name: name, Ty: ty, N: len(f.Args)}
	f.Args = append(f.Args, a)

	return a
}

func (f *Func) NewBlock(name string) *Block {
	b := &Block{Name: name}
	f.Blocks = append(f.Blocks, b)

	return b
}

func (b *Block) add(x *Instr) *Instr {
	b.Instrs = append(b.Instrs, x)

	return x
}

// Ins appends a generic instruction. The caller may set Name and Pred on
// the returned Instr.
func (b *Block) Ins(op string, ty Type, args ...Value) *Instr {
	return b.add(&Instr{Op: op, Ty: ty, Args: args})
}

func (b *Block) Load(ty Type, addr Value) *Instr {
	return b.add(&Instr{Op: OpLoad, Ty: ty, Args: []Value{addr}})
}

func (b *Block) Store(val, addr Value) *Instr {
	return b.add(&Instr{Op: OpStore, Ty: Void, Args: []Value{val, addr}})
}

func (b *Block) ICmp(pred string, l, r Value) *Instr {
	return b.add(&Instr{Op: OpICmp, Ty: I1, Args: []Value{l, r}, Pred: pred})
}

func (b *Block) FCmp(pred string, l, r Value) *Instr {
	return b.add(&Instr{Op: OpFCmp, Ty: I1, Args: []Value{l, r}, Pred: pred})
}

func (b *Block) Phi(ty Type, edges ...PhiEdge) *Instr {
	x := &Instr{Op: OpPhi, Ty: ty}

	for _, e := range edges {
		x.Args = append(x.Args, e.V, e.From)
	}

	return b.add(x)
}

func (b *Block) Ret(vals ...Value) *Instr {
	return b.add(&Instr{Op: OpRet, Ty: Void, Args: vals})
}

func (b *Block) Unreachable() *Instr {
	return b.add(&Instr{Op: OpUnreachable, Ty: Void})
}

func (b *Block) Br(dest *Block) *Instr {
	return b.add(&Instr{
		Op:    OpBr,
		Ty:    Void,
		Args:  []Value{dest},
		Succs: []*Block{dest},
	})
}

func (b *Block) BrCond(cond Value, then, els *Block) *Instr {
	return b.add(&Instr{
		Op:    OpBr,
		Ty:    Void,
		Args:  []Value{cond, then, els},
		Succs: []*Block{then, els},
	})
}

func (b *Block) Switch(cond Value, def *Block, cases ...Case) *Instr {
	x := &Instr{Op: OpSwitch, Ty: Void, Cases: cases, Default: def}

	x.Args = []Value{cond}
	if def != nil {
		x.Args = append(x.Args, def)
		x.Succs = append(x.Succs, def)
	}

	for _, c := range cases {
		x.Args = append(x.Args, c.Value, c.Dest)
		x.Succs = append(x.Succs, c.Dest)
	}

	return b.add(x)
}

func (b *Block) IndirectBr(addr Value, dests ...*Block) *Instr {
	x := &Instr{Op: OpIndirectBr, Ty: Void, Args: []Value{addr}, Succs: dests}

	for _, d := range dests {
		x.Args = append(x.Args, d)
	}

	return b.add(x)
}

func (c *Const) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if c == nil {
		return e.AppendNil(b)
	}

	switch c.Kind {
	case ConstInt:
		return e.AppendFormat(b, "i%d:%d", c.Bits, c.Int)
	case ConstFloat:
		return e.AppendFormat(b, "fp:%s", c.Text)
	case ConstNull:
		return e.AppendString(b, "null")
	case ConstUndef:
		return e.AppendString(b, "undef")
	case ConstPoison:
		return e.AppendString(b, "poison")
	case ConstBlockAddr:
		if c.Dest != nil {
			return e.AppendFormat(b, "blockaddress(%%%s)", c.Dest.Name)
		}

		return e.AppendString(b, "blockaddress")
	default:
		return e.AppendString(b, c.Text)
	}
}
