// Package config loads analyzer options from a TOML file. Flags set on
// the command line are applied by the caller on top of whatever the file
// defines; only keys present in the file override the defaults.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pubdata/analyzer"
)

type (
	File struct {
		Trace TraceConfig `toml:"trace"`
		CFG   CFGConfig   `toml:"cfg"`
		Paths PathsConfig `toml:"paths"`

		Quiet   bool `toml:"quiet"`
		Verbose bool `toml:"verbose"`
	}

	TraceConfig struct {
		Out      string `toml:"out"`
		IndexOut string `toml:"index_out"`
		Types    bool   `toml:"types"`
		MaxInst  int    `toml:"max_inst"`
	}

	CFGConfig struct {
		Out string `toml:"out"`
	}

	PathsConfig struct {
		Max          int    `toml:"max"`
		MaxDepth     int    `toml:"max_depth"`
		MaxLoopIters int    `toml:"max_loop_iters"`
		CondFormat   string `toml:"cond_format"`
		IncludePpSeq bool   `toml:"include_pp_seq"`
		PpCoverage   bool   `toml:"pp_coverage"`
		MaxPpPathIds int    `toml:"max_pp_path_ids"`
	}
)

// Load reads path and applies its defined keys over opts. A missing file
// is not an error; a malformed one is.
func Load(path string, opts analyzer.Options) (analyzer.Options, error) {
	var f File

	meta, err := toml.DecodeFile(path, &f)
	if os.IsNotExist(err) {
		return opts, nil
	}
	if err != nil {
		return opts, errors.Wrap(err, "decode %v", path)
	}

	if un := meta.Undecoded(); len(un) != 0 {
		tlog.Printw("unknown config keys ignored", "path", path, "keys", un)
	}

	return merge(opts, f, meta), nil
}

func merge(opts analyzer.Options, f File, meta toml.MetaData) analyzer.Options {
	if meta.IsDefined("trace", "out") {
		opts.TraceOut = f.Trace.Out
	}
	if meta.IsDefined("trace", "index_out") {
		opts.TraceIndexOut = f.Trace.IndexOut
	}
	if meta.IsDefined("trace", "types") {
		opts.TraceTypes = f.Trace.Types
	}
	if meta.IsDefined("trace", "max_inst") {
		opts.MaxInst = f.Trace.MaxInst
	}

	if meta.IsDefined("cfg", "out") {
		opts.CfgOut = f.CFG.Out
	}

	if meta.IsDefined("paths", "max") {
		opts.MaxPaths = f.Paths.Max
	}
	if meta.IsDefined("paths", "max_depth") {
		opts.MaxPathDepth = f.Paths.MaxDepth
	}
	if meta.IsDefined("paths", "max_loop_iters") {
		opts.MaxLoopIters = f.Paths.MaxLoopIters
	}
	if meta.IsDefined("paths", "cond_format") {
		opts.PathCondFormat = f.Paths.CondFormat
	}
	if meta.IsDefined("paths", "include_pp_seq") {
		opts.IncludePpSeq = f.Paths.IncludePpSeq
	}
	if meta.IsDefined("paths", "pp_coverage") {
		opts.PpCoverage = f.Paths.PpCoverage
	}
	if meta.IsDefined("paths", "max_pp_path_ids") {
		opts.MaxPpPathIds = f.Paths.MaxPpPathIds
	}

	if meta.IsDefined("quiet") {
		opts.Quiet = f.Quiet
	}
	if meta.IsDefined("verbose") {
		opts.Verbose = f.Verbose
	}

	return opts
}
