package analyzer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pubdata/analyzer"
	"github.com/slowlang/pubdata/analyzer/ir"
)

// counted loop: entry -> header -> {body -> header, exit}
func loopSum() *ir.Func {
	f := ir.NewFunc("loop_sum")
	n := f.AddArg("n", "i32")
	p := f.AddArg("p", "ptr")

	entry := f.NewBlock("entry")
	header := f.NewBlock("header")
	body := f.NewBlock("body")
	exit := f.NewBlock("exit")

	entry.Br(header)

	i := header.Phi("i32", ir.PhiEdge{V: ir.Int(32, 0), From: entry})
	c := header.ICmp("slt", i, n)
	header.BrCond(c, body, exit)

	ld := body.Load("i32", p)
	sum := body.Ins("add", "i32", i, ld)
	body.Br(header)

	i.Args = append(i.Args, sum, body)

	exit.Ret(i)

	return f
}

func switchFunc(cond ir.Value) *ir.Func {
	f := ir.NewFunc("sw")

	entry := f.NewBlock("entry")
	a := f.NewBlock("A")
	b := f.NewBlock("B")
	c := f.NewBlock("C")
	d := f.NewBlock("D")

	entry.Switch(cond, d,
		ir.Case{Value: ir.Int(32, 1), Dest: a},
		ir.Case{Value: ir.Int(32, 7), Dest: b},
		ir.Case{Value: ir.Int(32, 9), Dest: c})

	for _, bb := range []*ir.Block{a, b, c, d} {
		bb.Ret()
	}

	return f
}

// chain of k two-way diamonds, 2^k complete paths
func diamonds(k int) *ir.Func {
	f := ir.NewFunc("diamonds")

	entry := f.NewBlock("entry")
	cur := entry

	for i := 0; i < k; i++ {
		c := f.AddArg("", "i1")

		then := f.NewBlock("")
		els := f.NewBlock("")
		join := f.NewBlock("")

		cur.BrCond(c, then, els)
		then.Br(join)
		els.Br(join)

		cur = join
	}

	cur.Ret()

	return f
}

func quiet() analyzer.Options {
	opts := analyzer.DefaultOptions()
	opts.Quiet = true

	return opts
}

func TestSingleConditional(t *testing.T) {
	opts := quiet()
	opts.IncludePpSeq = true

	_, _, cfg := run(t, opts, fooCond())

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 2)

	for i, want := range []struct {
		sense string
		rhs   string
		via   string
	}{
		{"true", "const:i1:1", "then"},
		{"false", "const:i1:0", "else"},
	} {
		m := paths[i]

		assert.Equal(t, []any{"entry", want.via, "merge"}, m["bbs"])

		ds := m["decisions"].([]any)
		require.Len(t, ds, 1)

		d := ds[0].(map[string]any)
		assert.Equal(t, "br", d["kind"])
		assert.Equal(t, "foo:entry:i2", d["pp"])
		assert.Equal(t, "v1", d["cond"])
		assert.Equal(t, want.sense, d["sense"])
		assert.Equal(t, want.via, d["succ"])

		assert.Equal(t, []any{"v1==" + want.rhs}, m["path_cond"])

		// the store is on both paths
		seq := m["pp_seq"].([]any)
		assert.Contains(t, seq, "foo:merge:i1")
	}
}

func TestLoopCutoff(t *testing.T) {
	_, _, cfg := run(t, quiet(), loopSum())

	recs := lines(t, cfg)

	// only the path that skips the body completes: re-entering the
	// header trips the revisit bound
	paths := byKind(recs, "path")
	require.Len(t, paths, 1)
	assert.Equal(t, []any{"entry", "header", "exit"}, paths[0]["bbs"])

	sum := one(t, recs, "path_summary")
	assert.Equal(t, true, sum["cutoff_loop"])
	assert.EqualValues(t, 1, sum["dfs_prune_loop"])
	assert.EqualValues(t, 1, sum["paths_emitted"])
}

func TestLoopOneIter(t *testing.T) {
	opts := quiet()
	opts.MaxLoopIters = 1

	_, _, cfg := run(t, opts, loopSum())

	paths := byKind(lines(t, cfg), "path")
	require.Len(t, paths, 2)

	// the body edge is explored first
	assert.Equal(t, []any{"entry", "header", "body", "header", "exit"}, paths[0]["bbs"])
	assert.Equal(t, []any{"entry", "header", "exit"}, paths[1]["bbs"])
}

func TestSwitchConstCase(t *testing.T) {
	_, _, cfg := run(t, quiet(), switchFunc(ir.Int(32, 7)))

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 1)
	assert.Equal(t, []any{"entry", "B"}, paths[0]["bbs"])

	ds := paths[0]["decisions"].([]any)
	require.Len(t, ds, 1)

	d := ds[0].(map[string]any)
	assert.Equal(t, "switch", d["kind"])
	assert.Equal(t, "const:i32:7", d["case"])
	assert.Nil(t, d["default"])

	cond := paths[0]["path_cond"].([]any)
	assert.Contains(t, cond[0], "==const:i32:7")

	sum := one(t, recs, "path_summary")
	assert.EqualValues(t, 1, sum["const_pruned_switch"])
}

func TestSwitchConstDefault(t *testing.T) {
	opts := quiet()
	opts.PathCondFormat = "both"

	_, _, cfg := run(t, opts, switchFunc(ir.Int(32, 2)))

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 1)
	assert.Equal(t, []any{"entry", "D"}, paths[0]["bbs"])

	d := paths[0]["decisions"].([]any)[0].(map[string]any)
	assert.Equal(t, true, d["default"])

	assert.Equal(t,
		[]any{"const:i32:2!=const:i32:1 && const:i32:2!=const:i32:7 && const:i32:2!=const:i32:9"},
		paths[0]["path_cond"])

	cj := paths[0]["path_cond_json"].([]any)
	require.Len(t, cj, 1)

	e := cj[0].(map[string]any)
	assert.Equal(t, "and", e["op"])

	terms := e["terms"].([]any)
	require.Len(t, terms, 3)

	first := terms[0].(map[string]any)
	assert.Equal(t, "!=", first["op"])
	assert.Equal(t, "const:i32:2", first["lhs"])
	assert.Equal(t, "const:i32:1", first["rhs"])
}

func TestSwitchEnumerated(t *testing.T) {
	f := switchFunc(ir.NewFunc("x").AddArg("sel", "i32"))

	_, _, cfg := run(t, quiet(), f)

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 4)

	// cases in IR order, default last
	assert.Equal(t, []any{"entry", "A"}, paths[0]["bbs"])
	assert.Equal(t, []any{"entry", "B"}, paths[1]["bbs"])
	assert.Equal(t, []any{"entry", "C"}, paths[2]["bbs"])
	assert.Equal(t, []any{"entry", "D"}, paths[3]["bbs"])

	d := paths[3]["decisions"].([]any)[0].(map[string]any)
	assert.Equal(t, true, d["default"])
	assert.Equal(t,
		[]any{"sel!=const:i32:1 && sel!=const:i32:7 && sel!=const:i32:9"},
		paths[3]["path_cond"])

	sum := one(t, recs, "path_summary")
	assert.EqualValues(t, 0, sum["const_pruned_switch"])
}

func TestIndirectBr(t *testing.T) {
	f := ir.NewFunc("ib")
	addr := f.AddArg("addr", "ptr")

	entry := f.NewBlock("entry")
	a := f.NewBlock("A")
	b := f.NewBlock("B")

	entry.IndirectBr(addr, a, b)
	a.Ret()
	b.Ret()

	_, _, cfg := run(t, quiet(), f)

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 2)

	d := paths[0]["decisions"].([]any)[0].(map[string]any)
	assert.Equal(t, "indirect", d["kind"])
	assert.Equal(t, "addr", d["target"])
	assert.Nil(t, d["cond"])

	assert.Equal(t, []any{"addr==label:A"}, paths[0]["path_cond"])
	assert.Equal(t, []any{"addr==label:B"}, paths[1]["path_cond"])
}

func TestIndirectBrFolded(t *testing.T) {
	f := ir.NewFunc("ib")

	entry := f.NewBlock("entry")
	a := f.NewBlock("A")
	b := f.NewBlock("B")

	entry.IndirectBr(ir.BlockAddr(b), a, b)
	a.Ret()
	b.Ret()

	_, _, cfg := run(t, quiet(), f)

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 1)
	assert.Equal(t, []any{"entry", "B"}, paths[0]["bbs"])

	sum := one(t, recs, "path_summary")
	assert.EqualValues(t, 1, sum["const_pruned_indirect"])
}

func TestConstBrFolded(t *testing.T) {
	f := ir.NewFunc("cb")

	entry := f.NewBlock("entry")
	then := f.NewBlock("then")
	els := f.NewBlock("else")

	entry.BrCond(ir.Bool(false), then, els)
	then.Ret()
	els.Ret()

	_, _, cfg := run(t, quiet(), f)

	recs := lines(t, cfg)

	paths := byKind(recs, "path")
	require.Len(t, paths, 1)
	assert.Equal(t, []any{"entry", "else"}, paths[0]["bbs"])

	d := paths[0]["decisions"].([]any)[0].(map[string]any)
	assert.Equal(t, "false", d["sense"])
	assert.Equal(t, "const:i1:0", d["cond"])

	assert.Equal(t, []any{"const:i1:0==const:i1:0"}, paths[0]["path_cond"])

	sum := one(t, recs, "path_summary")
	assert.EqualValues(t, 1, sum["const_pruned_br"])
}

func TestMaxPathsTruncation(t *testing.T) {
	_, _, cfgBig := run(t, quiet(), diamonds(3))

	small := quiet()
	small.MaxPaths = 3

	_, _, cfgSmall := run(t, small, diamonds(3))

	pathLines := func(s string) []string {
		var r []string

		for _, ln := range strings.Split(s, "\n") {
			if strings.HasPrefix(ln, `{"kind":"path",`) {
				r = append(r, ln)
			}
		}

		return r
	}

	pb := pathLines(cfgBig)
	ps := pathLines(cfgSmall)

	require.Len(t, pb, 8)
	require.Len(t, ps, 3)

	// the smaller cap yields a prefix of the larger run
	assert.Equal(t, pb[:3], ps)

	sum := one(t, lines(t, cfgSmall), "path_summary")
	assert.Equal(t, true, sum["truncated"])
	assert.EqualValues(t, 3, sum["paths_emitted"])
}

func TestMaxDepthCutoff(t *testing.T) {
	f := ir.NewFunc("chain")

	b0 := f.NewBlock("")
	b1 := f.NewBlock("")
	b2 := f.NewBlock("")
	b3 := f.NewBlock("")

	b0.Br(b1)
	b1.Br(b2)
	b2.Br(b3)
	b3.Ret()

	opts := quiet()
	opts.MaxPathDepth = 3

	_, _, cfg := run(t, opts, f)

	recs := lines(t, cfg)

	assert.Empty(t, byKind(recs, "path"))

	sum := one(t, recs, "path_summary")
	assert.Equal(t, true, sum["cutoff_depth"])
	assert.EqualValues(t, 0, sum["paths_emitted"])
	assert.EqualValues(t, 1, sum["dfs_prune_max_depth"])
}

func TestPathsDisabled(t *testing.T) {
	opts := quiet()
	opts.MaxPaths = 0

	_, _, cfg := run(t, opts, linearArith())

	recs := lines(t, cfg)

	assert.Empty(t, byKind(recs, "path"))

	sum := one(t, recs, "path_summary")
	assert.Equal(t, true, sum["disabled"])
	assert.EqualValues(t, 0, sum["paths_emitted"])
	assert.EqualValues(t, 0, sum["max_paths"])
}

func TestPpCoverage(t *testing.T) {
	opts := quiet()
	opts.PpCoverage = true

	_, _, cfg := run(t, opts, fooCond())

	recs := lines(t, cfg)

	cov := byKind(recs, "pp_coverage")
	require.Len(t, cov, 10)

	byPP := map[string]map[string]any{}
	for _, m := range cov {
		byPP[m["pp"].(string)] = m
	}

	// entry and merge are on both paths, then/else on one each
	assert.EqualValues(t, 2, byPP["foo:entry:i0"]["path_count"])
	assert.Equal(t, []any{float64(0), float64(1)}, byPP["foo:merge:i1"]["path_ids"])
	assert.EqualValues(t, 1, byPP["foo:then:i0"]["path_count"])
	assert.Equal(t, []any{float64(1)}, byPP["foo:else:i0"]["path_ids"])
}

func TestPpCoverageIdCap(t *testing.T) {
	opts := quiet()
	opts.PpCoverage = true
	opts.MaxPpPathIds = 1

	_, _, cfg := run(t, opts, fooCond())

	for _, m := range byKind(lines(t, cfg), "pp_coverage") {
		ids := m["path_ids"].([]any)
		assert.LessOrEqual(t, len(ids), 1)

		if m["path_count"].(float64) > 1 {
			assert.Equal(t, true, m["truncated"])
		}
	}
}

func TestDecisionEdgeParity(t *testing.T) {
	opts := quiet()

	_, _, cfg := run(t, opts, loopSum())

	for _, m := range byKind(lines(t, cfg), "path") {
		bbs := m["bbs"].([]any)
		ds := m["decisions"].([]any)

		// every non-final block here terminates in either an uncond br
		// (no decision) or a cond br (one decision)
		var want int

		for _, bb := range bbs[:len(bbs)-1] {
			if bb == "header" {
				want++
			}
		}

		assert.Len(t, ds, want)
	}
}

func TestCondFormats(t *testing.T) {
	for _, tc := range []struct {
		format   string
		str, esc bool
	}{
		{"string", true, false},
		{"json", false, true},
		{"both", true, true},
		{"bogus", true, false},
	} {
		opts := quiet()
		opts.PathCondFormat = tc.format

		_, _, cfg := run(t, opts, fooCond())

		m := byKind(lines(t, cfg), "path")[0]

		_, hasStr := m["path_cond"]
		_, hasJSON := m["path_cond_json"]

		assert.Equal(t, tc.str, hasStr, "format %v", tc.format)
		assert.Equal(t, tc.esc, hasJSON, "format %v", tc.format)
	}
}
