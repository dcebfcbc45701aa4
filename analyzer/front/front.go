// Package front lowers Go SSA (golang.org/x/tools/go/ssa) into the ir
// form the analyzer consumes.
//
// The lowering is shape-preserving: one ir.Block per SSA block, one
// ir.Instr per SSA instruction, LLVM-flavored opcode names, SSA register
// names carried verbatim. Go SSA has no switch or indirectbr terminators,
// so the lowering never produces them.
package front

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/slowlang/pubdata/analyzer/ir"
)

type (
	lowerer struct {
		fn *ssa.Function
		f  *ir.Func

		blocks map[*ssa.BasicBlock]*ir.Block
		vals   map[ssa.Value]ir.Value
	}
)

// LowerFunc translates one built SSA function. Functions without a body
// (external declarations) lower to nil.
func LowerFunc(fn *ssa.Function) *ir.Func {
	if len(fn.Blocks) == 0 {
		return nil
	}

	l := &lowerer{
		fn: fn,
		f:  ir.NewFunc(fn.String()),

		blocks: make(map[*ssa.BasicBlock]*ir.Block, len(fn.Blocks)),
		vals:   make(map[ssa.Value]ir.Value),
	}

	for _, p := range fn.Params {
		l.vals[p] = l.f.AddArg(p.Name(), typeOf(p))
	}

	// blocks and instruction shells first: phi edges and back-edges may
	// reference values defined later
	for _, b := range fn.Blocks {
		ib := l.f.NewBlock("")
		l.blocks[b] = ib

		for _, x := range b.Instrs {
			shell := &ir.Instr{Op: opName(x), Ty: ir.Void}

			if v, ok := x.(ssa.Value); ok {
				shell.Name = v.Name()
				shell.Ty = typeOf(v)
				l.vals[v] = shell
			}

			ib.Instrs = append(ib.Instrs, shell)
		}
	}

	for _, b := range fn.Blocks {
		ib := l.blocks[b]

		for i, x := range b.Instrs {
			l.fill(ib.Instrs[i], x, b)
		}
	}

	return l.f
}

// fill completes one instruction shell: operands, successors, predicate.
func (l *lowerer) fill(y *ir.Instr, x ssa.Instruction, b *ssa.BasicBlock) {
	switch x := x.(type) {
	case *ssa.If:
		then, els := l.blocks[b.Succs[0]], l.blocks[b.Succs[1]]

		y.Args = []ir.Value{l.val(x.Cond), then, els}
		y.Succs = []*ir.Block{then, els}
	case *ssa.Jump:
		dest := l.blocks[b.Succs[0]]

		y.Args = []ir.Value{dest}
		y.Succs = []*ir.Block{dest}
	case *ssa.Return:
		for _, r := range x.Results {
			y.Args = append(y.Args, l.val(r))
		}
	case *ssa.Phi:
		for i, e := range x.Edges {
			y.Args = append(y.Args, l.val(e), l.blocks[b.Preds[i]])
		}
	case *ssa.UnOp:
		y.Args = []ir.Value{l.val(x.X)}
	case *ssa.Store:
		y.Args = []ir.Value{l.val(x.Val), l.val(x.Addr)}
	case *ssa.BinOp:
		y.Args = []ir.Value{l.val(x.X), l.val(x.Y)}

		if pred, ok := cmpPred(x); ok {
			y.Pred = pred
		}
	case *ssa.Call:
		y.Args = []ir.Value{l.val(x.Call.Value)}
		for _, a := range x.Call.Args {
			y.Args = append(y.Args, l.val(a))
		}
	default:
		for _, r := range x.Operands(nil) {
			if r == nil || *r == nil {
				continue
			}

			y.Args = append(y.Args, l.val(*r))
		}
	}
}

func (l *lowerer) val(v ssa.Value) ir.Value {
	if y, ok := l.vals[v]; ok {
		return y
	}

	var y ir.Value

	switch v := v.(type) {
	case *ssa.Const:
		y = lowerConst(v)
	case *ssa.Global:
		y = ir.Other(typeOf(v), "@"+v.String())
	case *ssa.Function:
		y = ir.Other(ir.Ptr, "@"+v.String())
	case *ssa.Builtin:
		y = ir.Other(ir.Ptr, "@"+v.Name())
	default:
		y = ir.Other(typeOf(v), v.Name())
	}

	l.vals[v] = y

	return y
}

func lowerConst(c *ssa.Const) ir.Value {
	ty := typeOf(c)

	if c.Value == nil {
		return ir.Null(ty)
	}

	t, ok := c.Type().Underlying().(*types.Basic)
	if !ok {
		return ir.Other(ty, c.String())
	}

	switch {
	case t.Info()&types.IsBoolean != 0:
		return ir.Bool(c.Int64() != 0)
	case t.Info()&types.IsInteger != 0:
		return ir.Int(intBits(t), c.Int64())
	case t.Info()&types.IsFloat != 0:
		return ir.Float(ty, c.Value.String())
	default:
		return ir.Other(ty, c.Value.String())
	}
}

func intBits(t *types.Basic) int {
	switch t.Kind() {
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32:
		return 32
	default:
		return 64
	}
}

func cmpPred(x *ssa.BinOp) (string, bool) {
	float := false
	if t, ok := x.X.Type().Underlying().(*types.Basic); ok {
		float = t.Info()&types.IsFloat != 0
	}

	var preds map[token.Token]string
	if float {
		preds = fcmpPreds
	} else {
		preds = icmpPreds
	}

	p, ok := preds[x.Op]

	return p, ok
}

var icmpPreds = map[token.Token]string{
	token.EQL: "eq",
	token.NEQ: "ne",
	token.LSS: "slt",
	token.LEQ: "sle",
	token.GTR: "sgt",
	token.GEQ: "sge",
}

var fcmpPreds = map[token.Token]string{
	token.EQL: "oeq",
	token.NEQ: "one",
	token.LSS: "olt",
	token.LEQ: "ole",
	token.GTR: "ogt",
	token.GEQ: "oge",
}

// opName maps an SSA instruction to its LLVM-flavored opcode.
func opName(x ssa.Instruction) string {
	switch x := x.(type) {
	case *ssa.If, *ssa.Jump:
		return ir.OpBr
	case *ssa.Return:
		return ir.OpRet
	case *ssa.Phi:
		return ir.OpPhi
	case *ssa.Store:
		return ir.OpStore
	case *ssa.UnOp:
		if x.Op == token.MUL {
			return ir.OpLoad
		}

		return unOpNames[x.Op]
	case *ssa.BinOp:
		if _, ok := cmpPred(x); ok {
			if f, okf := x.X.Type().Underlying().(*types.Basic); okf && f.Info()&types.IsFloat != 0 {
				return ir.OpFCmp
			}

			return ir.OpICmp
		}

		return binOpNames[x.Op]
	case *ssa.Call:
		return "call"
	case *ssa.Go:
		return "go"
	case *ssa.Defer:
		return "defer"
	case *ssa.Panic:
		return "panic"
	case *ssa.Alloc:
		return "alloca"
	case *ssa.FieldAddr:
		return "fieldaddr"
	case *ssa.IndexAddr:
		return "indexaddr"
	case *ssa.Convert:
		return "convert"
	case *ssa.ChangeType:
		return "changetype"
	case *ssa.ChangeInterface:
		return "changeinterface"
	case *ssa.MakeInterface:
		return "makeinterface"
	case *ssa.TypeAssert:
		return "typeassert"
	case *ssa.Extract:
		return "extract"
	case *ssa.Field:
		return "field"
	case *ssa.Index:
		return "index"
	case *ssa.Lookup:
		return "lookup"
	case *ssa.Range:
		return "range"
	case *ssa.Next:
		return "next"
	case *ssa.Slice:
		return "slice"
	case *ssa.MakeSlice:
		return "makeslice"
	case *ssa.MakeMap:
		return "makemap"
	case *ssa.MakeChan:
		return "makechan"
	case *ssa.MakeClosure:
		return "makeclosure"
	case *ssa.Send:
		return "send"
	case *ssa.Select:
		return "select"
	case *ssa.RunDefers:
		return "rundefers"
	case *ssa.SliceToArrayPointer:
		return "slicetoarrayptr"
	default:
		return "unknown"
	}
}

var unOpNames = map[token.Token]string{
	token.SUB:   "neg",
	token.XOR:   "not",
	token.NOT:   "not",
	token.ARROW: "recv",
}

var binOpNames = map[token.Token]string{
	token.ADD:     "add",
	token.SUB:     "sub",
	token.MUL:     "mul",
	token.QUO:     "sdiv",
	token.REM:     "srem",
	token.AND:     "and",
	token.OR:      "or",
	token.XOR:     "xor",
	token.AND_NOT: "andnot",
	token.SHL:     "shl",
	token.SHR:     "lshr",
}

func typeOf(v ssa.Value) ir.Type {
	return ir.Type(v.Type().String())
}
