package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/rlch/entcheck/report"
	"github.com/rlch/entcheck/schema"
)

// ErrNoDialect is returned when neither --dialect nor the config names one.
var ErrNoDialect = errors.New("no dialect specified (use --dialect or schema.dialect in .entcheck.yaml)")

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Generate SQL DDL for the validated entities",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dialect",
				Aliases: []string{"d"},
				Usage:   "SQL dialect (" + strings.Join(schema.Registered(), ", ") + ")",
				Sources: cli.EnvVars("ENTCHECK_DIALECT"),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (default: stdout)",
			},
		},
		Action: runSchema,
	}
}

func runSchema(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	defer func() {
		_ = logger.Sync()
	}()

	u, err := analyzeArgs(ctx, cmd, logger)
	if err != nil {
		return err
	}

	dialectName, out := cmd.String("dialect"), cmd.String("out")
	if u.cfg != nil {
		if dialectName == "" {
			dialectName = u.cfg.Schema.Dialect
		}

		if out == "" {
			out = u.cfg.Schema.Out
		}
	}

	if dialectName == "" {
		return ErrNoDialect
	}

	dialect, err := schema.Lookup(dialectName)
	if err != nil {
		return err
	}

	ddl, err := schema.Generate(u.result, dialect)
	if errors.Is(err, schema.ErrInvalidEntities) {
		// Show what blocks generation.
		formatter := report.NewTextFormatter(os.Stderr, report.PlainStyles(), nil)
		for _, d := range u.result.Diagnostics {
			_ = formatter.Format(d)
		}

		return cli.Exit(err.Error(), 1)
	}

	if err != nil {
		return err
	}

	if out == "" {
		_, err = fmt.Fprint(os.Stdout, ddl)

		return err
	}

	return os.WriteFile(out, []byte(ddl), filePermissions)
}
