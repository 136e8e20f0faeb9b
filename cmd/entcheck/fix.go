package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/entcheck/analysis"
	"github.com/rlch/entcheck/diag"
	"github.com/rlch/entcheck/fix"
	"github.com/rlch/entcheck/report"
	"github.com/rlch/entcheck/workspace"
)

// fixPasses bounds how often fixes are re-derived; a fix can expose
// diagnostics the previous pass could not see.
const fixPasses = 5

func fixCommand() *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "Apply the preferred fix of every diagnostic",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "replay fixes from a msgpack snapshot written by check --format msgpack",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "write fixed files in place",
			},
			&cli.BoolFlag{
				Name:    "diff",
				Aliases: []string{"d"},
				Usage:   "display diffs of the fixes",
			},
		},
		Action: runFix,
	}
}

func runFix(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	defer func() {
		_ = logger.Sync()
	}()

	var (
		original map[string][]byte
		fixed    map[string][]byte
		remains  bool
		err      error
	)

	if from := cmd.String("from"); from != "" {
		original, fixed, err = replaySnapshot(ctx, from, logger)
	} else {
		original, fixed, remains, err = fixUnit(ctx, cmd, logger)
	}

	if err != nil {
		return err
	}

	changed := make([]string, 0, len(fixed))
	for path, content := range fixed {
		if string(content) != string(original[path]) {
			changed = append(changed, path)
		}
	}

	slices.Sort(changed)

	if err := emitFixes(os.Stdout, cmd.Bool("write"), cmd.Bool("diff"), changed, original, fixed); err != nil {
		return err
	}

	if remains {
		return cli.Exit("errors remain that have no automatic fix", 1)
	}

	return nil
}

// fixUnit analyzes the arguments and applies fixes until nothing changes.
func fixUnit(ctx context.Context, cmd *cli.Command, logger *zap.Logger) (map[string][]byte, map[string][]byte, bool, error) {
	u, err := analyzeArgs(ctx, cmd, logger)
	if err != nil {
		return nil, nil, false, err
	}

	original := workspace.Contents(u.sources)
	fixed := workspace.Contents(u.sources)
	analyzer := analysis.NewAnalyzer(logger, u.cfg)
	res := u.result

	for pass := range fixPasses {
		out, rep, err := fix.ApplyAll(fixed, res.Diagnostics)
		if err != nil {
			return nil, nil, false, err
		}

		logFixReport(logger, pass, rep)

		if len(out) == 0 {
			break
		}

		for path, content := range out {
			fixed[path] = content
		}

		res = analyzer.Analyze(workspace.Overlay(u.sources, fixed))
	}

	return original, fixed, res.HasErrors(), nil
}

// replaySnapshot applies the fixes recorded in a snapshot to the files it
// names, as they are on disk now.
func replaySnapshot(ctx context.Context, path string, logger *zap.Logger) (map[string][]byte, map[string][]byte, error) {
	f, err := os.Open(path) //#nosec G304 -- path comes from user args
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	ds, err := diag.ReadSnapshot(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	var paths []string

	for _, d := range ds {
		for _, fx := range fix.For(d) {
			paths = append(paths, fx.Paths()...)
		}
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)

	sources, err := workspace.NewLoader(logger, nil).Read(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	original := workspace.Contents(sources)

	out, rep, err := fix.ApplyAll(original, ds)
	if err != nil {
		return nil, nil, err
	}

	logFixReport(logger, 0, rep)

	fixed := workspace.Contents(sources)
	for p, content := range out {
		fixed[p] = content
	}

	return original, fixed, nil
}

func logFixReport(logger *zap.Logger, pass int, rep *fix.Report) {
	for _, a := range rep.Applied {
		logger.Debug("fix applied", zap.Int("pass", pass), zap.String("code", string(a.Code)), zap.String("title", a.Title))
	}

	for _, s := range rep.Skipped {
		logger.Debug("fix skipped", zap.Int("pass", pass), zap.String("code", string(s.Code)), zap.String("reason", s.Reason))
	}
}

func emitFixes(out io.Writer, write, showDiff bool, changed []string, original, fixed map[string][]byte) error {
	styles := report.PlainStyles()
	if report.IsTerminal(out) {
		styles = report.DefaultStyles()
	}

	for _, path := range changed {
		if showDiff {
			if err := printDiff(out, path, string(original[path]), string(fixed[path])); err != nil {
				return err
			}
		}

		if write {
			if err := os.WriteFile(path, fixed[path], filePermissions); err != nil {
				return err
			}
		}

		if !showDiff {
			_, _ = fmt.Fprintf(out, "%s %s\n", styles.Path.Render(styles.SymbolFix), path)
		}
	}

	if len(changed) == 0 {
		_, _ = fmt.Fprintf(out, "%s nothing to fix\n", styles.OK.Render(styles.SymbolOK))
	}

	return nil
}
