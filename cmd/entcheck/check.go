package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/entcheck/report"
	"github.com/rlch/entcheck/workspace"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Report diagnostics for .ent files",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "output format (" + strings.Join(report.Formats, ", ") + ")",
				Value:   report.FormatText,
				Sources: cli.EnvVars("ENTCHECK_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "write output to a file instead of stdout",
			},
		},
		Action: runCheck,
	}
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	defer func() {
		_ = logger.Sync()
	}()

	u, err := analyzeArgs(ctx, cmd, logger)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout

	if path := cmd.String("out"); path != "" {
		f, err := os.Create(path) //#nosec G304 -- path comes from user args
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	formatter, err := report.New(cmd.String("format"), out, workspace.Contents(u.sources))
	if err != nil {
		return err
	}

	for _, d := range u.result.Diagnostics {
		if err := formatter.Format(d); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	summary := report.Summarize(len(u.sources), u.result.Diagnostics)
	if err := formatter.Summary(summary); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if !summary.OK() {
		return cli.Exit("", 1)
	}

	return nil
}
