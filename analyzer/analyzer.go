// Package analyzer labels every instruction of a function with a stable
// program point, classifies side-channel transmitters, and streams
// NDJSON describing the instruction trace, the control-flow graph and a
// bounded enumeration of acyclic-ish paths.
//
// The pass is per-function and purely syntactic: no execution, no
// dataflow, no rewriting. All per-function state lives in funcState and
// dies on return; the three sinks are the only thing shared across
// functions.
package analyzer

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/pubdata/analyzer/ir"
	"github.com/slowlang/pubdata/analyzer/ndjson"
)

type (
	Options struct {
		TraceOut      string
		TraceIndexOut string
		TraceTypes    bool
		MaxInst       int

		CfgOut string

		MaxPaths       int
		MaxPathDepth   int
		MaxLoopIters   int
		PathCondFormat string
		IncludePpSeq   bool
		PpCoverage     bool
		MaxPpPathIds   int

		Quiet   bool
		Verbose bool
	}

	Analyzer struct {
		opts Options

		trace      *ndjson.Sink
		traceIndex *ndjson.Sink
		cfg        *ndjson.Sink
	}

	funcState struct {
		a *Analyzer
		f *ir.Func

		bbLabel map[*ir.Block]string
		bbPPs   map[*ir.Block][]string
		bbBase  map[*ir.Block]int
		termPP  map[*ir.Block]string

		valueID map[ir.Value]string
		nextID  int

		instCount int
		txCount   int

		traceEmitted   int
		traceTruncated bool
		traceLine      int

		condStr  bool
		condJSON bool

		b []byte // record scratch
	}
)

func DefaultOptions() Options {
	return Options{
		MaxPaths:       200,
		MaxPathDepth:   256,
		MaxLoopIters:   0,
		PathCondFormat: "string",
		MaxPpPathIds:   64,
	}
}

func New(opts Options) *Analyzer {
	return NewWithSinks(opts,
		ndjson.NewSink(opts.TraceOut),
		ndjson.NewSink(opts.TraceIndexOut),
		ndjson.NewSink(opts.CfgOut))
}

// NewWithSinks hands the analyzer explicitly constructed sinks. Lazy
// opening and disable-on-failure are the sinks' business; the analyzer
// only asks Enabled.
func NewWithSinks(opts Options, trace, traceIndex, cfg *ndjson.Sink) *Analyzer {
	return &Analyzer{
		opts:       opts,
		trace:      trace,
		traceIndex: traceIndex,
		cfg:        cfg,
	}
}

// RunFunc analyzes one function. It never fails: sink problems disable
// the sink, IR pathologies degrade to leaves, bad option values fall back
// to defaults.
func (a *Analyzer) RunFunc(ctx context.Context, f *ir.Func) {
	if !a.opts.Quiet {
		tlog.SpanFromContext(ctx).Printw("analyze function", "fn", f.Name, "blocks", len(f.Blocks))
	}

	s := &funcState{
		a: a,
		f: f,

		bbLabel: make(map[*ir.Block]string, len(f.Blocks)),
		bbPPs:   make(map[*ir.Block][]string, len(f.Blocks)),
		bbBase:  make(map[*ir.Block]int, len(f.Blocks)),
		termPP:  make(map[*ir.Block]string, len(f.Blocks)),

		valueID: make(map[ir.Value]string),
	}

	s.initCondFormat()
	s.indexBlocks()
	s.walkInstrs(ctx)

	if !a.cfg.Enabled() {
		return
	}

	s.emitFuncSummary()

	for _, bb := range f.Blocks {
		s.emitBlock(bb)
	}

	for _, bb := range f.Blocks {
		s.emitEdges(bb)
	}

	s.enumPaths(ctx)
}

func (a *Analyzer) Close() (err error) {
	for _, s := range []*ndjson.Sink{a.trace, a.traceIndex, a.cfg} {
		e := s.Close()
		if err == nil {
			err = e
		}
	}

	return err
}

// indexBlocks assigns ordinals in IR order and derives printable labels:
// the block's own name, else bb<ordinal>.
func (s *funcState) indexBlocks() {
	for i, bb := range s.f.Blocks {
		label := bb.Name
		if label == "" {
			label = "bb" + itoa(i)
		}

		s.bbLabel[bb] = label
	}
}

func (s *funcState) initCondFormat() {
	switch f := s.a.opts.PathCondFormat; f {
	case "", "string":
		s.condStr = true
	case "json":
		s.condJSON = true
	case "both":
		s.condStr = true
		s.condJSON = true
	default:
		if !s.a.opts.Quiet {
			tlog.Printw("unknown path-cond-format, defaulting to string", "format", f)
		}

		s.condStr = true
	}
}
