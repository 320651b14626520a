// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/othala/internal/assets"
	"github.com/starford/othala/internal/fill"
	"github.com/starford/othala/internal/journal"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/provider"
	"github.com/starford/othala/internal/rewrite"
	"github.com/starford/othala/internal/run"
	"github.com/starford/othala/internal/storage"
)

// Run modes selected by WithMode.
const (
	ModeInsert = "insert"
	ModeFill   = "fill"
	ModeMCP    = "mcp"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr either way.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.Level(),
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("mode", app.mode),
		slog.Bool("apply", app.apply),
		slog.String("log_level", cfg.App.Level().String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the run journal.
	jnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer jnl.Close()

	registry := buildRegistry(cfg)
	assetStore := assets.NewStore(store, cfg.Vault.AttachmentsDir, cfg.Vault.NoteRelative)
	writer := rewrite.NewWriter(store, cfg.Vault.BackupDir)
	filler := fill.NewFiller(registry, assetStore, writer, cfg.NeedsInfo.Tag, logger)
	orch := run.New(store, registry, assetStore, writer, filler, jnl, logger)

	switch app.mode {
	case ModeInsert:
		report, err := orch.InsertImages(ctx, app.note, app.apply)
		if err != nil {
			return err
		}
		printReport(report, app.apply)
		return nil

	case ModeFill:
		report, err := orch.FillMetadata(ctx, app.note, app.apply)
		if err != nil {
			return err
		}
		printReport(report, app.apply)
		return nil

	case ModeMCP:
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(store, orch).ServeStdio()
	}
	return fmt.Errorf("unknown mode: %q", app.mode)
}

// buildRegistry wires the provider clients from configuration. Unset base
// URLs fall back to each provider's public endpoint.
func buildRegistry(cfg *Config) *provider.Registry {
	var wikiOpts []provider.WikimediaOption
	if cfg.Providers.Wikimedia.BaseURL != "" {
		wikiOpts = append(wikiOpts, provider.WithWikimediaBaseURL(cfg.Providers.Wikimedia.BaseURL))
	}

	var olOpts []provider.OpenLibraryOption
	if cfg.Providers.OpenLibrary.BaseURL != "" {
		olOpts = append(olOpts, provider.WithOpenLibraryBaseURL(cfg.Providers.OpenLibrary.BaseURL))
	}
	if cfg.Providers.OpenLibrary.CoversURL != "" {
		olOpts = append(olOpts, provider.WithCoversBaseURL(cfg.Providers.OpenLibrary.CoversURL))
	}

	tmdbOpts := []provider.TMDBOption{provider.WithTMDBRegion(cfg.Providers.TMDB.Region)}
	if cfg.Providers.TMDB.BaseURL != "" {
		tmdbOpts = append(tmdbOpts, provider.WithTMDBBaseURL(cfg.Providers.TMDB.BaseURL))
	}
	if cfg.Providers.TMDB.ImageBaseURL != "" {
		tmdbOpts = append(tmdbOpts, provider.WithTMDBImageURL(cfg.Providers.TMDB.ImageBaseURL))
	}

	var aiOpts []provider.OpenAIOption
	if cfg.Providers.OpenAI.Model != "" {
		aiOpts = append(aiOpts, provider.WithOpenAIModel(cfg.Providers.OpenAI.Model))
	}
	if cfg.Providers.OpenAI.Size != "" {
		aiOpts = append(aiOpts, provider.WithOpenAISize(cfg.Providers.OpenAI.Size))
	}
	if cfg.Providers.OpenAI.BaseURL != "" {
		aiOpts = append(aiOpts, provider.WithOpenAIBaseURL(cfg.Providers.OpenAI.BaseURL))
	}

	return provider.NewRegistry(
		provider.NewWikimedia(wikiOpts...),
		provider.NewOpenLibrary(olOpts...),
		provider.NewTMDB(cfg.Providers.TMDB.APIKey, tmdbOpts...),
		provider.NewOpenAI(cfg.Providers.OpenAI.APIKey, aiOpts...),
	)
}

// printReport writes the human-readable run summary to stdout.
func printReport(report *models.Report, apply bool) {
	for _, e := range report.Entries {
		line := fmt.Sprintf("%-7s  %s  %s", e.Outcome, e.NotePath, e.Subject)
		if e.AssetPath != "" {
			line += "  -> " + e.AssetPath
		}
		if e.Reason != "" {
			line += "  (" + e.Reason + ")"
		}
		fmt.Println(line)
	}
	verb := "applied"
	if !apply {
		verb = "planned"
	}
	fmt.Printf("%d %s, %d skipped, %d failed\n",
		report.Applied(), verb, report.Skipped(), report.Failed())
}
