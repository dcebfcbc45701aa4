package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pubdata/analyzer"
	"github.com/slowlang/pubdata/analyzer/config"
	"github.com/slowlang/pubdata/analyzer/front"
)

func main() {
	analyzeCmd := &cli.Command{
		Name:        "analyze",
		Description: "lower Go packages to IR and emit trace/CFG/path NDJSON",
		Action:      analyzeAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("dir", ".", "package load directory"),
			cli.NewFlag("config", "pubdata.toml", "TOML config file"),

			cli.NewFlag("trace-out", "", "trace NDJSON sink"),
			cli.NewFlag("trace-index-out", "", "trace index NDJSON sink"),
			cli.NewFlag("trace-types", false, "include type strings in the trace"),
			cli.NewFlag("max-inst", 0, "per-function trace cap, 0 is unlimited"),

			cli.NewFlag("cfg-out", "", "CFG/path NDJSON sink"),

			cli.NewFlag("max-paths", 200, "paths per function, 0 disables enumeration"),
			cli.NewFlag("max-path-depth", 256, "blocks per path"),
			cli.NewFlag("max-loop-iters", 0, "re-entries per block on one path"),
			cli.NewFlag("path-cond-format", "string", "path condition format: string|json|both"),
			cli.NewFlag("path-include-pp-seq", false, "include pp_seq in path records"),
			cli.NewFlag("pp-coverage", false, "emit pp_coverage records"),
			cli.NewFlag("max-pp-path-ids", 64, "path ids per pp_coverage record"),

			cli.NewFlag("quiet", false, "suppress diagnostics"),
			cli.NewFlag("verbose", false, "per-instruction diagnostics"),
		},
	}

	app := &cli.Command{
		Name:        "pubdata",
		Description: "pubdata is a per-function analyzer emitting NDJSON trace, CFG and path data for side-channel auditing",
		Commands: []*cli.Command{
			analyzeCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func analyzeAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opts := analyzer.DefaultOptions()

	opts, err = config.Load(c.String("config"), opts)
	if err != nil {
		return errors.Wrap(err, "config")
	}

	opts = applyFlags(c, opts)

	a := analyzer.New(opts)
	defer func() {
		e := a.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close sinks")
		}
	}()

	var patterns []string
	for _, a := range c.Args {
		patterns = append(patterns, a)
	}

	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	fns, err := front.Load(ctx, c.String("dir"), patterns...)
	if err != nil {
		return errors.Wrap(err, "load")
	}

	for _, fn := range fns {
		f := front.LowerFunc(fn)
		if f == nil {
			continue
		}

		a.RunFunc(ctx, f)
	}

	return nil
}

// applyFlags lays flags over the config file. A flag left at its default
// does not override the file.
func applyFlags(c *cli.Command, opts analyzer.Options) analyzer.Options {
	def := analyzer.DefaultOptions()

	if v := c.String("trace-out"); v != "" {
		opts.TraceOut = v
	}
	if v := c.String("trace-index-out"); v != "" {
		opts.TraceIndexOut = v
	}
	if v := c.Bool("trace-types"); v {
		opts.TraceTypes = v
	}
	if v := c.Int("max-inst"); v != def.MaxInst {
		opts.MaxInst = v
	}

	if v := c.String("cfg-out"); v != "" {
		opts.CfgOut = v
	}

	if v := c.Int("max-paths"); v != def.MaxPaths {
		opts.MaxPaths = v
	}
	if v := c.Int("max-path-depth"); v != def.MaxPathDepth {
		opts.MaxPathDepth = v
	}
	if v := c.Int("max-loop-iters"); v != def.MaxLoopIters {
		opts.MaxLoopIters = v
	}
	if v := c.String("path-cond-format"); v != def.PathCondFormat {
		opts.PathCondFormat = v
	}
	if v := c.Bool("path-include-pp-seq"); v {
		opts.IncludePpSeq = v
	}
	if v := c.Bool("pp-coverage"); v {
		opts.PpCoverage = v
	}
	if v := c.Int("max-pp-path-ids"); v != def.MaxPpPathIds {
		opts.MaxPpPathIds = v
	}

	if v := c.Bool("quiet"); v {
		opts.Quiet = v
	}
	if v := c.Bool("verbose"); v {
		opts.Verbose = v
	}

	return opts
}
