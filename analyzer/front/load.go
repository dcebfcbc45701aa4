package front

import (
	"context"
	"sort"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Load builds SSA for the given package patterns and returns every
// function with a body, in a deterministic order.
func Load(ctx context.Context, dir string, patterns ...string) (fns []*ssa.Function, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "load packages", "dir", dir, "patterns", patterns)
	defer tr.Finish("err", &err)

	cfg := &packages.Config{
		Mode:    packages.LoadAllSyntax,
		Dir:     dir,
		Context: ctx,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "load packages")
	}

	if n := packages.PrintErrors(pkgs); n != 0 {
		return nil, errors.New("%d packages had errors", n)
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.BuilderMode(0))
	prog.Build()

	own := make(map[*ssa.Package]struct{}, len(ssaPkgs))
	for _, p := range ssaPkgs {
		if p != nil {
			own[p] = struct{}{}
		}
	}

	for fn := range ssautil.AllFunctions(prog) {
		if fn.Pkg == nil || len(fn.Blocks) == 0 {
			continue
		}

		if _, ok := own[fn.Pkg]; !ok {
			continue
		}

		fns = append(fns, fn)
	}

	// AllFunctions is a map; order the output ourselves
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })

	tr.Printw("functions", "count", len(fns))

	return fns, nil
}
