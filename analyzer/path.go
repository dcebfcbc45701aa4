package analyzer

import (
	"context"

	"nikand.dev/go/heap"

	"github.com/slowlang/pubdata/analyzer/ir"
	"github.com/slowlang/pubdata/analyzer/ndjson"
	"github.com/slowlang/pubdata/analyzer/set"
)

type (
	// pathEnum is the bounded DFS over the CFG. The per-block revisit
	// bound is what guarantees termination on loops; feasibility is not
	// its business, except for terminators controlled by a constant,
	// which are folded to their single live successor.
	pathEnum struct {
		s *funcState

		maxPaths  int
		maxDepth  int
		maxVisits int

		emitted   int
		pathID    int
		truncated bool

		cutoffDepth bool
		cutoffLoop  bool

		prunedBr       int
		prunedSwitch   int
		prunedIndirect int

		calls         int
		leaves        int
		pruneMaxPaths int
		pruneMaxDepth int
		pruneLoop     int

		path      []*ir.Block
		decisions []Decision
		conds     []string
		condExprs []CondExpr

		visits map[*ir.Block]int

		ppPaths map[string][]int
		seen    set.Bitmap // per-leaf pp dedup, dense instruction indices
	}
)

func (s *funcState) enumPaths(ctx context.Context) {
	o := &s.a.opts

	if o.MaxPaths == 0 {
		s.emitPathsDisabled()
		return
	}

	e := &pathEnum{
		s: s,

		maxPaths:  o.MaxPaths,
		maxDepth:  o.MaxPathDepth,
		maxVisits: o.MaxLoopIters + 1,

		visits: make(map[*ir.Block]int, len(s.f.Blocks)),
	}

	if o.PpCoverage {
		e.ppPaths = make(map[string][]int)
		e.seen = set.MakeBitmap(s.instCount)
	}

	if entry := s.f.Entry(); entry != nil {
		e.dfs(entry)
	}

	if o.PpCoverage {
		e.emitCoverage()
	}

	e.emitSummary()
}

func (e *pathEnum) dfs(bb *ir.Block) {
	e.calls++

	if e.emitted >= e.maxPaths {
		e.truncated = true
		e.pruneMaxPaths++

		return
	}

	if len(e.path) >= e.maxDepth {
		e.cutoffDepth = true
		e.pruneMaxDepth++

		return
	}

	count := e.visits[bb]
	if count >= e.maxVisits {
		e.cutoffLoop = true
		e.pruneLoop++

		return
	}

	e.visits[bb] = count + 1
	e.path = append(e.path, bb)

	t := bb.Term()

	if t == nil || len(t.Succs) == 0 {
		e.leaf()
	} else {
		e.step(t, bb)
	}

	e.path = e.path[:len(e.path)-1]
	e.visits[bb] = count
}

// step dispatches on the terminator kind and recurses into the live
// successors, one Decision per transition.
func (e *pathEnum) step(t *ir.Instr, bb *ir.Block) {
	s := e.s
	pp := s.termPP[bb]

	switch {
	case t.IsCondBr():
		condID := s.valueIDOf(t.Cond())

		if c, ok := t.Cond().(*ir.Const); ok && c.Kind == ir.ConstInt {
			// constant condition: only the matching edge is feasible
			i := 0
			if c.Int == 0 {
				i = 1
			}

			e.prunedBr++
			e.brEdge(t, pp, condID, i)

			return
		}

		for i := range t.Succs {
			e.brEdge(t, pp, condID, i)
		}
	case t.Op == ir.OpBr && len(t.Succs) == 1:
		e.dfs(t.Succs[0])
	case t.Op == ir.OpSwitch:
		condID := s.valueIDOf(t.Args[0])

		if c, ok := t.Args[0].(*ir.Const); ok && c.Kind == ir.ConstInt {
			e.prunedSwitch++
			e.switchConst(t, pp, condID, c)

			return
		}

		for _, cs := range t.Cases {
			caseID := s.valueIDOf(cs.Value)

			d := Decision{PP: pp, Kind: "switch", Cond: condID, Succ: s.bbLabel[cs.Dest], Case: caseID}
			e.push(d, condID+"=="+caseID, cmpExpr("==", condID, caseID), cs.Dest)
		}

		if t.Default != nil {
			d := Decision{PP: pp, Kind: "switch", Cond: condID, Succ: s.bbLabel[t.Default], Default: true}
			e.push(d, s.switchDefaultCond(t, condID), s.switchDefaultExpr(t, condID), t.Default)
		}
	case t.Op == ir.OpIndirectBr:
		targetID := s.valueIDOf(t.Args[0])

		if c, ok := t.Args[0].(*ir.Const); ok && c.Kind == ir.ConstBlockAddr {
			e.prunedIndirect++
			e.indirectEdge(t, pp, targetID, c.Dest)

			return
		}

		for _, d := range t.Succs {
			e.indirectEdge(t, pp, targetID, d)
		}
	default:
		// unknown terminator, or a malformed unconditional br: follow
		// every successor, no decision to record
		for _, d := range t.Succs {
			e.dfs(d)
		}
	}
}

func (e *pathEnum) brEdge(t *ir.Instr, pp, condID string, i int) {
	sense, rhs := "true", "const:i1:1"
	if i != 0 {
		sense, rhs = "false", "const:i1:0"
	}

	d := Decision{PP: pp, Kind: "br", Cond: condID, Succ: e.s.bbLabel[t.Succs[i]], Sense: sense}

	e.push(d, condID+"=="+rhs, cmpExpr("==", condID, rhs), t.Succs[i])
}

// switchConst folds a constant switch condition: the matching case wins,
// else the default. A degenerate switch with neither dead-ends.
func (e *pathEnum) switchConst(t *ir.Instr, pp, condID string, c *ir.Const) {
	s := e.s

	for _, cs := range t.Cases {
		if cs.Value.Bits != c.Bits || cs.Value.Int != c.Int {
			continue
		}

		caseID := s.valueIDOf(cs.Value)

		d := Decision{PP: pp, Kind: "switch", Cond: condID, Succ: s.bbLabel[cs.Dest], Case: caseID}
		e.push(d, condID+"=="+caseID, cmpExpr("==", condID, caseID), cs.Dest)

		return
	}

	if t.Default == nil {
		return
	}

	d := Decision{PP: pp, Kind: "switch", Cond: condID, Succ: s.bbLabel[t.Default], Default: true}
	e.push(d, s.switchDefaultCond(t, condID), s.switchDefaultExpr(t, condID), t.Default)
}

func (e *pathEnum) indirectEdge(t *ir.Instr, pp, targetID string, dest *ir.Block) {
	label := e.s.bbLabel[dest]

	d := Decision{PP: pp, Kind: "indirect", Target: targetID, Succ: label}

	e.push(d, targetID+"==label:"+label, cmpExpr("==", targetID, "label:"+label), dest)
}

func (e *pathEnum) push(d Decision, text string, x CondExpr, dest *ir.Block) {
	e.decisions = append(e.decisions, d)
	e.conds = append(e.conds, text)
	e.condExprs = append(e.condExprs, x)

	e.dfs(dest)

	e.decisions = e.decisions[:len(e.decisions)-1]
	e.conds = e.conds[:len(e.conds)-1]
	e.condExprs = e.condExprs[:len(e.condExprs)-1]
}

// leaf emits one complete path record.
func (e *pathEnum) leaf() {
	s := e.s
	o := &s.a.opts

	e.leaves++

	pathID := e.pathID
	e.pathID++

	var ppSeq []string

	if o.IncludePpSeq || o.PpCoverage {
		for _, bb := range e.path {
			ppSeq = append(ppSeq, s.bbPPs[bb]...)
		}
	}

	if o.PpCoverage {
		e.seen.Reset()

		for _, bb := range e.path {
			base := s.bbBase[bb]

			for i, pp := range s.bbPPs[bb] {
				if e.seen.IsSet(base + i) {
					continue
				}

				e.seen.Set(base + i)
				e.ppPaths[pp] = append(e.ppPaths[pp], pathID)
			}
		}
	}

	b := s.b[:0]

	b = append(b, `{"kind":"path","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"path_id":`...)
	b = ndjson.AppendInt(b, pathID)

	b = append(b, `,"bbs":[`...)
	for i, bb := range e.path {
		if i != 0 {
			b = append(b, ',')
		}

		b = ndjson.AppendString(b, s.bbLabel[bb])
	}
	b = append(b, ']')

	b = append(b, `,"decisions":[`...)
	for i := range e.decisions {
		if i != 0 {
			b = append(b, ',')
		}

		b = e.decisions[i].appendJSON(b)
	}
	b = append(b, ']')

	if o.IncludePpSeq {
		b = append(b, `,"pp_seq":`...)
		b = ndjson.AppendStringArray(b, ppSeq)
	}

	if s.condStr {
		b = append(b, `,"path_cond":`...)
		b = ndjson.AppendStringArray(b, e.conds)
	}

	if s.condJSON {
		b = append(b, `,"path_cond_json":[`...)
		for i := range e.condExprs {
			if i != 0 {
				b = append(b, ',')
			}

			b = e.condExprs[i].appendJSON(b)
		}
		b = append(b, ']')
	}

	b = append(b, '}')

	s.a.cfg.Write(b)
	s.b = b

	e.emitted++
}

// emitCoverage streams pp -> path ids, ordered by program point. The
// heap gives a deterministic order where a hash map would not.
func (e *pathEnum) emitCoverage() {
	s := e.s
	limit := s.a.opts.MaxPpPathIds

	h := heap.Heap[string]{Less: stringsLess}

	for pp := range e.ppPaths {
		h.Push(pp)
	}

	for h.Len() != 0 {
		pp := h.Pop()
		ids := e.ppPaths[pp]

		b := s.b[:0]

		b = append(b, `{"kind":"pp_coverage","fn":`...)
		b = ndjson.AppendString(b, s.f.Name)
		b = append(b, `,"pp":`...)
		b = ndjson.AppendString(b, pp)
		b = append(b, `,"path_count":`...)
		b = ndjson.AppendInt(b, len(ids))

		b = append(b, `,"path_ids":[`...)
		for i := 0; i < len(ids) && i < limit; i++ {
			if i != 0 {
				b = append(b, ',')
			}

			b = ndjson.AppendInt(b, ids[i])
		}
		b = append(b, ']')

		if len(ids) > limit {
			b = append(b, `,"truncated":true`...)
		}

		b = append(b, '}')

		s.a.cfg.Write(b)
		s.b = b
	}
}

func (e *pathEnum) emitSummary() {
	s := e.s
	o := &s.a.opts

	b := s.b[:0]

	b = append(b, `{"kind":"path_summary","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"paths_emitted":`...)
	b = ndjson.AppendInt(b, e.emitted)
	b = append(b, `,"truncated":`...)
	b = ndjson.AppendBool(b, e.truncated)
	b = append(b, `,"max_paths":`...)
	b = ndjson.AppendInt(b, o.MaxPaths)
	b = append(b, `,"max_depth":`...)
	b = ndjson.AppendInt(b, o.MaxPathDepth)
	b = append(b, `,"max_loop_iters":`...)
	b = ndjson.AppendInt(b, o.MaxLoopIters)
	b = append(b, `,"cutoff_depth":`...)
	b = ndjson.AppendBool(b, e.cutoffDepth)
	b = append(b, `,"cutoff_loop":`...)
	b = ndjson.AppendBool(b, e.cutoffLoop)
	b = append(b, `,"const_pruned_br":`...)
	b = ndjson.AppendInt(b, e.prunedBr)
	b = append(b, `,"const_pruned_switch":`...)
	b = ndjson.AppendInt(b, e.prunedSwitch)
	b = append(b, `,"const_pruned_indirect":`...)
	b = ndjson.AppendInt(b, e.prunedIndirect)
	b = append(b, `,"dfs_calls":`...)
	b = ndjson.AppendInt(b, e.calls)
	b = append(b, `,"dfs_leaves":`...)
	b = ndjson.AppendInt(b, e.leaves)
	b = append(b, `,"dfs_prune_max_paths":`...)
	b = ndjson.AppendInt(b, e.pruneMaxPaths)
	b = append(b, `,"dfs_prune_max_depth":`...)
	b = ndjson.AppendInt(b, e.pruneMaxDepth)
	b = append(b, `,"dfs_prune_loop":`...)
	b = ndjson.AppendInt(b, e.pruneLoop)
	b = append(b, '}')

	s.a.cfg.Write(b)
	s.b = b
}

func (s *funcState) emitPathsDisabled() {
	o := &s.a.opts

	b := s.b[:0]

	b = append(b, `{"kind":"path_summary","fn":`...)
	b = ndjson.AppendString(b, s.f.Name)
	b = append(b, `,"paths_emitted":0,"disabled":true`...)
	b = append(b, `,"max_paths":`...)
	b = ndjson.AppendInt(b, o.MaxPaths)
	b = append(b, `,"max_depth":`...)
	b = ndjson.AppendInt(b, o.MaxPathDepth)
	b = append(b, `,"max_loop_iters":`...)
	b = ndjson.AppendInt(b, o.MaxLoopIters)
	b = append(b, '}')

	s.a.cfg.Write(b)
	s.b = b
}

func stringsLess(d []string, i, j int) bool { return d[i] < d[j] }
