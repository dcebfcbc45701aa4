package analyzer

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/pubdata/analyzer/ir"
	"github.com/slowlang/pubdata/analyzer/ndjson"
)

// walkInstrs is the single pass over all instructions: it assigns program
// points, counts transmitters, and streams the trace.
func (s *funcState) walkInstrs(ctx context.Context) {
	traceOn := s.a.trace.Enabled()
	verbose := s.a.opts.Verbose && !s.a.opts.Quiet

	for _, bb := range s.f.Blocks {
		label := s.bbLabel[bb]

		s.bbBase[bb] = s.instCount

		for idx, x := range bb.Instrs {
			pp := programPoint(s.f.Name, label, idx)

			s.bbPPs[bb] = append(s.bbPPs[bb], pp)

			if x.IsTerm() {
				s.termPP[bb] = pp
			}

			if verbose {
				tlog.Printw("pp", "pp", pp, "op", x.Op)
			}

			tx, isTx := Transmitter(x)
			if isTx {
				s.txCount++

				if !s.a.opts.Quiet {
					tlog.Printw("transmitter", "kind", tx.Kind, "which", tx.Which, "pp", pp, "op", x.Op)
				}
			}

			if traceOn {
				s.traceInstr(bb, x, pp, tx, isTx)
			}

			s.instCount++
		}
	}
}

func (s *funcState) traceInstr(bb *ir.Block, x *ir.Instr, pp string, tx TxInfo, isTx bool) {
	o := &s.a.opts

	if o.MaxInst != 0 && s.traceEmitted >= o.MaxInst {
		s.traceTruncated = true
		return
	}

	hasDef := x.HasDef()

	defID := ""
	if hasDef {
		defID = s.valueIDOf(x)
	}

	isPhi := x.Op == ir.OpPhi

	var uses, useTys []string

	for _, v := range x.Args {
		if ref, ok := v.(*ir.Block); ok {
			// block operands are elided, except phi incoming blocks,
			// which show up as their labels
			if !isPhi {
				continue
			}

			uses = append(uses, s.bbLabel[ref])
		} else {
			uses = append(uses, s.valueIDOf(v))
		}

		if o.TraceTypes {
			useTys = append(useTys, string(v.ValueType()))
		}
	}

	b := s.b[:0]

	b = append(b, `{"fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"bb":`...)
	b = ndjson.AppendString(b, s.bbLabel[bb])
	b = append(b, `,"pp":`...)
	b = ndjson.AppendString(b, pp)
	b = append(b, `,"op":`...)
	b = ndjson.AppendString(b, x.Op)

	b = append(b, `,"def":`...)
	if hasDef {
		b = ndjson.AppendString(b, defID)
	} else {
		b = ndjson.AppendNull(b)
	}

	b = append(b, `,"uses":`...)
	b = ndjson.AppendStringArray(b, uses)

	if o.TraceTypes {
		b = append(b, `,"def_ty":`...)
		if hasDef {
			b = ndjson.AppendString(b, string(x.Ty))
		} else {
			b = ndjson.AppendNull(b)
		}

		b = append(b, `,"use_tys":`...)
		b = ndjson.AppendStringArray(b, useTys)
	}

	if x.Pred != "" {
		switch x.Op {
		case ir.OpICmp:
			b = append(b, `,"icmp_pred":`...)
			b = ndjson.AppendString(b, x.Pred)
		case ir.OpFCmp:
			b = append(b, `,"fcmp_pred":`...)
			b = ndjson.AppendString(b, x.Pred)
		}
	}

	if isTx {
		b = append(b, `,"tx":{"kind":`...)
		b = ndjson.AppendString(b, tx.Kind)
		b = append(b, `,"which":`...)
		b = ndjson.AppendInt(b, tx.Which)
		b = append(b, '}')
	}

	b = append(b, '}')

	s.a.trace.Write(b)
	s.b = b

	s.traceLine++
	s.traceEmitted++

	if s.a.traceIndex.Enabled() {
		s.traceIndexRecord(bb, x, pp, defID)
	}
}

// traceIndexRecord points one program point at the trace line just
// written. The line counter is per-function and 1-based.
func (s *funcState) traceIndexRecord(bb *ir.Block, x *ir.Instr, pp, defID string) {
	b := s.b[:0]

	b = append(b, `{"kind":"trace_index","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"bb":`...)
	b = ndjson.AppendString(b, s.bbLabel[bb])
	b = append(b, `,"pp":`...)
	b = ndjson.AppendString(b, pp)
	b = append(b, `,"op":`...)
	b = ndjson.AppendString(b, x.Op)

	b = append(b, `,"def":`...)
	if defID != "" {
		b = ndjson.AppendString(b, defID)
	} else {
		b = ndjson.AppendNull(b)
	}

	b = append(b, `,"line":`...)
	b = ndjson.AppendInt(b, s.traceLine)
	b = append(b, '}')

	s.a.traceIndex.Write(b)
	s.b = b
}
