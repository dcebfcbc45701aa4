package analyzer

import (
	"strconv"

	"github.com/slowlang/pubdata/analyzer/ir"
)

// valueIDOf maps a value to its stable textual ID.
//
// Constants are content-addressed: the ID is derived from the kind and
// the printed form only, never from object identity. Arguments use their
// name or argN. Named instruction results use the name verbatim. Anything
// else gets a fresh per-function vN, memoized for the function lifetime.
func (s *funcState) valueIDOf(v ir.Value) string {
	switch v := v.(type) {
	case *ir.Const:
		return s.constID(v)
	case *ir.Arg:
		if v.Name != "" {
			return v.Name
		}

		return "arg" + itoa(v.N)
	case *ir.Block:
		return s.bbLabel[v]
	case *ir.Instr:
		if v.Name != "" {
			return v.Name
		}
	}

	id, ok := s.valueID[v]
	if ok {
		return id
	}

	id = "v" + itoa(s.nextID)
	s.nextID++
	s.valueID[v] = id

	return id
}

func (s *funcState) constID(c *ir.Const) string {
	switch c.Kind {
	case ir.ConstInt:
		return "const:i" + itoa(c.Bits) + ":" + strconv.FormatInt(c.Int, 10)
	case ir.ConstFloat:
		return "const:fp:" + c.Text
	case ir.ConstNull:
		return "const:null"
	case ir.ConstUndef:
		return "const:undef"
	case ir.ConstPoison:
		return "const:poison"
	case ir.ConstBlockAddr:
		return "const:blockaddress(%" + s.bbLabel[c.Dest] + ")"
	default:
		return "const:" + c.Text
	}
}

// programPoint labels one instruction: fn:bb:iN.
func programPoint(fn, bb string, idx int) string {
	return fn + ":" + bb + ":i" + itoa(idx)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
