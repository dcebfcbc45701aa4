package analyzer

import (
	"github.com/slowlang/pubdata/analyzer/ir"
	"github.com/slowlang/pubdata/analyzer/ndjson"
)

func (s *funcState) emitFuncSummary() {
	b := s.b[:0]

	b = append(b, `{"kind":"func_summary","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"inst_count":`...)
	b = ndjson.AppendInt(b, s.instCount)
	b = append(b, `,"bb_count":`...)
	b = ndjson.AppendInt(b, len(s.f.Blocks))
	b = append(b, `,"tx_count":`...)
	b = ndjson.AppendInt(b, s.txCount)
	b = append(b, `,"trace_emitted":`...)
	b = ndjson.AppendInt(b, s.traceEmitted)
	b = append(b, `,"trace_truncated":`...)
	b = ndjson.AppendBool(b, s.traceTruncated)
	b = append(b, `,"trace_max_inst":`...)
	b = ndjson.AppendInt(b, s.a.opts.MaxInst)
	b = append(b, '}')

	s.a.cfg.Write(b)
	s.b = b
}

func (s *funcState) emitBlock(bb *ir.Block) {
	t := bb.Term()

	var succs []string
	if t != nil {
		for _, d := range t.Succs {
			succs = append(succs, s.bbLabel[d])
		}
	}

	b := s.b[:0]

	b = append(b, `{"kind":"block","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"bb":`...)
	b = ndjson.AppendString(b, s.bbLabel[bb])
	b = append(b, `,"succs":`...)
	b = ndjson.AppendStringArray(b, succs)

	if t != nil {
		b = append(b, `,"term_pp":`...)
		b = ndjson.AppendString(b, s.termPP[bb])
		b = append(b, `,"term_op":`...)
		b = ndjson.AppendString(b, t.Op)

		switch {
		case t.IsCondBr():
			b = append(b, `,"cond":`...)
			b = ndjson.AppendString(b, s.valueIDOf(t.Cond()))
		case t.Op == ir.OpSwitch:
			b = append(b, `,"cond":`...)
			b = ndjson.AppendString(b, s.valueIDOf(t.Args[0]))
		case t.Op == ir.OpIndirectBr:
			b = append(b, `,"target":`...)
			b = ndjson.AppendString(b, s.valueIDOf(t.Args[0]))
		}
	}

	b = append(b, '}')

	s.a.cfg.Write(b)
	s.b = b
}

func (s *funcState) edgeHead(from *ir.Block, to *ir.Block) []byte {
	b := s.b[:0]

	b = append(b, `{"kind":"edge","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"from":`...)
	b = ndjson.AppendString(b, s.bbLabel[from])
	b = append(b, `,"to":`...)
	b = ndjson.AppendString(b, s.bbLabel[to])
	b = append(b, `,"term_pp":`...)
	b = ndjson.AppendString(b, s.termPP[from])

	return b
}

// emitEdges writes one record per outgoing edge of the block. An
// unconditional br with a successor count other than one is malformed and
// emits nothing.
func (s *funcState) emitEdges(bb *ir.Block) {
	t := bb.Term()
	if t == nil {
		return
	}

	switch {
	case t.IsCondBr():
		condID := s.valueIDOf(t.Cond())

		for i, d := range t.Succs {
			b := s.edgeHead(bb, d)
			b = append(b, `,"branch":"cond","cond":`...)
			b = ndjson.AppendString(b, condID)
			b = append(b, `,"sense":`...)
			if i == 0 {
				b = ndjson.AppendString(b, "true")
			} else {
				b = ndjson.AppendString(b, "false")
			}
			b = append(b, '}')

			s.a.cfg.Write(b)
			s.b = b
		}
	case t.Op == ir.OpBr && len(t.Succs) == 1:
		b := s.edgeHead(bb, t.Succs[0])
		b = append(b, `,"branch":"uncond"}`...)

		s.a.cfg.Write(b)
		s.b = b
	case t.Op == ir.OpSwitch:
		condID := s.valueIDOf(t.Args[0])

		for _, c := range t.Cases {
			b := s.edgeHead(bb, c.Dest)
			b = append(b, `,"branch":"switch","cond":`...)
			b = ndjson.AppendString(b, condID)
			b = append(b, `,"case":`...)
			b = ndjson.AppendString(b, s.valueIDOf(c.Value))
			b = append(b, '}')

			s.a.cfg.Write(b)
			s.b = b
		}

		if t.Default != nil {
			b := s.edgeHead(bb, t.Default)
			b = append(b, `,"branch":"switch","cond":`...)
			b = ndjson.AppendString(b, condID)
			b = append(b, `,"default":true}`...)

			s.a.cfg.Write(b)
			s.b = b
		}
	case t.Op == ir.OpIndirectBr:
		targetID := s.valueIDOf(t.Args[0])

		for _, d := range t.Succs {
			b := s.edgeHead(bb, d)
			b = append(b, `,"branch":"indirect","target":`...)
			b = ndjson.AppendString(b, targetID)
			b = append(b, '}')

			s.a.cfg.Write(b)
			s.b = b
		}
	}
}
