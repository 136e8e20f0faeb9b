package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/workspace"
)

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Aliases:   []string{"format"},
		Usage:     "Format .ent files",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "write result to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "check",
				Aliases: []string{"c"},
				Usage:   "check if files are formatted (exit 1 if not)",
			},
			&cli.BoolFlag{
				Name:    "diff",
				Aliases: []string{"d"},
				Usage:   "display diffs instead of rewriting files",
			},
		},
		Action: runFmt,
	}
}

func runFmt(_ context.Context, cmd *cli.Command) error {
	write := cmd.Bool("write")
	check := cmd.Bool("check")
	diff := cmd.Bool("diff")
	args := cmd.Args().Slice()

	if len(args) == 0 {
		return formatStdin(os.Stdout)
	}

	logger := newLogger(cmd)

	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	files, err := workspace.NewLoader(logger, cfg).Discover(args...)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return workspace.ErrNoSources
	}

	var out io.Writer = os.Stdout
	if check && !write && !diff {
		out = io.Discard
	}

	var unformatted []string

	for _, file := range files {
		changed, err := formatFile(file, write, diff, out)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		if changed {
			unformatted = append(unformatted, file)
		}
	}

	if check && len(unformatted) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "The following files are not formatted:\n")

		for _, f := range unformatted {
			_, _ = fmt.Fprintf(os.Stderr, "  %s\n", f)
		}

		return cli.Exit("", 1)
	}

	return nil
}

func formatStdin(out io.Writer) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	file, err := entcheck.Parse("<stdin>", data)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}

	_, err = io.WriteString(out, entcheck.Format(file))

	return err
}

// formatFile formats one file. Files that fail to parse are left alone and
// reported as errors.
func formatFile(path string, write, showDiff bool, out io.Writer) (bool, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from user args
	if err != nil {
		return false, err
	}

	file, err := entcheck.Parse(path, data)
	if err != nil {
		return false, err
	}

	formatted := entcheck.Format(file)
	changed := string(data) != formatted

	if !changed {
		return false, nil
	}

	if write {
		writeErr := os.WriteFile(path, []byte(formatted), filePermissions)
		if writeErr != nil {
			return true, writeErr
		}

		_, _ = fmt.Fprintf(out, "%s\n", path)

		return true, nil
	}

	if showDiff {
		return true, printDiff(out, path, string(data), formatted)
	}

	_, err = io.WriteString(out, formatted)

	return true, err
}
