// Package main provides the entcheck CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/entcheck"
	"github.com/rlch/entcheck/analysis"
	"github.com/rlch/entcheck/workspace"
)

var version = "dev"

const filePermissions = 0o600

func main() {
	app := &cli.Command{
		Name:    "entcheck",
		Version: version,
		Usage:   "Validate .ent entity declarations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log analysis steps to stderr",
				Sources: cli.EnvVars("ENTCHECK_VERBOSE"),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to .entcheck.yaml (default: nearest to the working directory)",
				Sources: cli.EnvVars("ENTCHECK_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			fixCommand(),
			fmtCommand(),
			schemaCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cmd *cli.Command) *zap.Logger {
	if !cmd.Bool("verbose") {
		return zap.NewNop()
	}

	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

// loadConfig reads --config, or the nearest config above the first path.
// A missing config is not an error.
func loadConfig(cmd *cli.Command, paths []string) (*entcheck.Config, error) {
	if path := cmd.String("config"); path != "" {
		return entcheck.LoadConfigFile(path)
	}

	dir := "."
	if len(paths) > 0 {
		dir = paths[0]

		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			dir = filepath.Dir(dir)
		}
	}

	cfg, err := entcheck.LoadConfig(dir)
	if errors.Is(err, entcheck.ErrConfigNotFound) {
		return nil, nil
	}

	return cfg, err
}

// unit is one analyzed compilation unit.
type unit struct {
	cfg     *entcheck.Config
	sources []analysis.Source
	result  *analysis.Result
}

// analyzeArgs loads every .ent file under the command's arguments and
// analyzes them as one unit.
func analyzeArgs(ctx context.Context, cmd *cli.Command, logger *zap.Logger) (*unit, error) {
	paths := cmd.Args().Slice()

	cfg, err := loadConfig(cmd, paths)
	if err != nil {
		return nil, err
	}

	sources, err := workspace.NewLoader(logger, cfg).Load(ctx, paths...)
	if err != nil {
		return nil, err
	}

	res := analysis.NewAnalyzer(logger, cfg).Analyze(sources)

	logger.Debug("analyzed",
		zap.Int("files", len(sources)),
		zap.Int("entities", len(res.Entities)),
		zap.Int("diagnostics", len(res.Diagnostics)))

	return &unit{cfg: cfg, sources: sources, result: res}, nil
}
