package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	pkgconfig "github.com/starford/othala/pkg/config"
)

func run(mode string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithNote(cmd.String("note")),
			internal.WithApply(cmd.Bool("apply")),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	noteFlag := &cli.StringFlag{
		Name:    "note",
		Aliases: []string{"n"},
		Usage:   "Vault-relative note path (empty processes the whole vault)",
	}
	applyFlag := &cli.BoolFlag{
		Name:  "apply",
		Usage: "Write changes; without this flag the run only reports what it would do",
	}

	cmd := &cli.Command{
		Name:  "othala",
		Usage: "Resolve media markers in Markdown notes into downloaded image embeds and filled frontmatter",
		Commands: []*cli.Command{
			{
				Name:   "insert",
				Usage:  "Scan notes for media markers, download the assets, and rewrite the markers into embeds",
				Action: run(internal.ModeInsert),
				Flags:  []cli.Flag{configFlag, noteFlag, applyFlag},
			},
			{
				Name:   "fill",
				Usage:  "Complete frontmatter metadata for notes tagged for needs-info processing",
				Action: run(internal.ModeFill),
				Flags:  []cli.Flag{configFlag, noteFlag, applyFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the vault tools over the Model Context Protocol on stdio",
				Action: run(internal.ModeMCP),
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
