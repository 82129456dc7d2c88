package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/kmdx/internal"
	pkgconfig "github.com/starford/kmdx/pkg/config"
)

// loadConfig reads the optional config file and installs the configured
// logger as the default.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	slog.SetDefault(internal.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat, os.Stdout))
	return cfg, nil
}

func options(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogger(slog.Default()),
	}
}

func extract(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 3 {
		return fmt.Errorf("expected 3 arguments <source.k.md> <filter> <output>, got %d", cmd.Args().Len())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	args := cmd.Args()
	return internal.Extract(ctx, args.Get(0), args.Get(1), args.Get(2), options(cfg)...)
}

func summary(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected 1 argument <path>, got %d", cmd.Args().Len())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Summary(ctx, cmd.Args().First(), options(cfg)...)
}

func indexDir(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Notes.Path
	if cmd.Args().Present() {
		dir = cmd.Args().First()
	}
	return internal.Index(ctx, dir, dbPath(cmd, cfg), options(cfg)...)
}

func query(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected 1 argument <filter>, got %d", cmd.Args().Len())
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Query(ctx, cmd.Args().First(), dbPath(cmd, cfg), options(cfg)...)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, options(cfg)...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	logger := internal.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat, os.Stderr)
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogger(logger))
}

func dbPath(cmd *cli.Command, cfg *internal.Config) string {
	if p := cmd.String("db"); p != "" {
		return p
	}
	return cfg.SQLite.Path
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the SQLite index (defaults to sqlite.path)",
	}
}

func main() {
	slog.SetDefault(internal.NewLogger(slog.LevelInfo, internal.LogFormatJSON, os.Stdout))

	cmd := &cli.Command{
		Name:      "kmdx",
		Usage:     "Extract tagged items from tagged-markdown (.k.md) notes",
		ArgsUsage: "<source.k.md> <filter> <output>",
		Action:    extract,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("KMDX_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "summary",
				Usage:     "Print item, fragment and tag statistics for a document or directory",
				ArgsUsage: "<path>",
				Action:    summary,
			},
			{
				Name:      "index",
				Usage:     "Sync a notes directory into the SQLite index",
				ArgsUsage: "[dir]",
				Flags:     []cli.Flag{dbFlag()},
				Action:    indexDir,
			},
			{
				Name:      "query",
				Usage:     "Print indexed items carrying every tag of a filter",
				ArgsUsage: "<filter>",
				Flags:     []cli.Flag{dbFlag()},
				Action:    query,
			},
			{
				Name:   "serve",
				Usage:  "Run the REST API, event stream and file watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
