// Package ir is a typed SSA-style intermediate representation.
//
// It mirrors the shape of a lowered compiler IR: a Func is an ordered list
// of Blocks, a Block is an ordered list of Instrs ending in a terminator,
// and every operand is a Value (an instruction result, an argument, a
// constant, or a block reference).
package ir

type (
	Type string

	ConstKind int

	Value interface {
		ValueType() Type
	}

	Arg struct {
		Name string
		Ty   Type
		N    int
	}

	// Const is identified by content, not by pointer. Two Consts with the
	// same Kind and printed form are the same constant to every consumer.
	Const struct {
		Kind ConstKind
		Ty   Type

		Bits int   // ConstInt
		Int  int64 // ConstInt, signed

		Text string // ConstFloat and ConstOther printed form

		Dest *Block // ConstBlockAddr
	}

	Case struct {
		Value *Const
		Dest  *Block
	}

	PhiEdge struct {
		V    Value
		From *Block
	}

	// Instr operand layout:
	//
	//	load        [addr]
	//	store       [val, addr]
	//	br          [dest] | [cond, then, else]
	//	switch      [cond, default, caseVal, caseDest, ...]
	//	indirectbr  [addr, dest, ...]
	//	phi         [v, from, v, from, ...]
	//	ret         [vals...]
	//
	// Succs holds branch targets in successor order: conditional br is
	// [then, else], switch is default-first, indirectbr lists destinations
	// in order.
	Instr struct {
		Op   string
		Name string // result name, may be empty
		Ty   Type   // result type, Void for none
		Args []Value
		Pred string // icmp/fcmp predicate name

		Succs   []*Block
		Cases   []Case
		Default *Block
	}

	Block struct {
		Name   string
		Instrs []*Instr
	}

	Func struct {
		Name   string
		Args   []*Arg
		Blocks []*Block
	}
)

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstNull
	ConstUndef
	ConstPoison
	ConstBlockAddr
	ConstOther
)

const (
	Void  Type = "void"
	Label Type = "label"
	I1    Type = "i1"
	Ptr   Type = "ptr"
)

const (
	OpLoad        = "load"
	OpStore       = "store"
	OpBr          = "br"
	OpSwitch      = "switch"
	OpIndirectBr  = "indirectbr"
	OpRet         = "ret"
	OpUnreachable = "unreachable"
	OpPhi         = "phi"
	OpICmp        = "icmp"
	OpFCmp        = "fcmp"
)

func (x *Arg) ValueType() Type   { return x.Ty }
func (x *Const) ValueType() Type { return x.Ty }
func (x *Instr) ValueType() Type { return x.Ty }
func (x *Block) ValueType() Type { return Label }

func (x *Instr) HasDef() bool { return x.Ty != Void }

// IsTerm reports whether the instruction is of terminator kind.
func (x *Instr) IsTerm() bool {
	switch x.Op {
	case OpRet, OpBr, OpSwitch, OpIndirectBr, OpUnreachable:
		return true
	}

	return len(x.Succs) != 0
}

// Cond returns the controlling value of a br, switch or indirectbr
// terminator, nil for everything else. An unconditional br has no
// controlling value.
func (x *Instr) Cond() Value {
	switch x.Op {
	case OpBr, OpSwitch, OpIndirectBr:
	default:
		return nil
	}

	if len(x.Args) == 0 {
		return nil
	}

	if _, ok := x.Args[0].(*Block); ok {
		return nil
	}

	return x.Args[0]
}

func (x *Instr) IsCondBr() bool {
	return x.Op == OpBr && x.Cond() != nil
}

// Term returns the block's terminator: the last instruction if it is of
// terminator kind, nil otherwise.
func (b *Block) Term() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}

	t := b.Instrs[len(b.Instrs)-1]
	if !t.IsTerm() {
		return nil
	}

	return t
}

func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}

	return f.Blocks[0]
}
