// Package run orchestrates whole-vault and single-note pipelines: marker
// scanning, asset materialization, note rewriting, and frontmatter filling.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/othala/internal/assets"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/fill"
	"github.com/starford/othala/internal/journal"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/provider"
	"github.com/starford/othala/internal/rewrite"
	"github.com/starford/othala/internal/scanner"
	"github.com/starford/othala/internal/storage"
)

// Run modes recorded in the journal.
const (
	ModeInsert = "insert"
	ModeFill   = "fill"
)

// Orchestrator wires the pipeline stages together. A nil journal disables
// run recording.
type Orchestrator struct {
	store    storage.Provider
	registry *provider.Registry
	assets   *assets.Store
	writer   *rewrite.Writer
	filler   *fill.Filler
	journal  *journal.DB
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(store storage.Provider, registry *provider.Registry, assetStore *assets.Store, writer *rewrite.Writer, filler *fill.Filler, jnl *journal.DB, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		registry: registry,
		assets:   assetStore,
		writer:   writer,
		filler:   filler,
		journal:  jnl,
		logger:   logger,
	}
}

// notes returns the paths to process: the single note when notePath is
// non-empty, otherwise every markdown file in the vault.
func (o *Orchestrator) notes(notePath string) ([]string, error) {
	if notePath != "" {
		ok, err := o.store.Exists(notePath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("note %s not found", notePath)
		}
		return []string{notePath}, nil
	}
	return o.store.List(".")
}

// Scan reads one note and returns its markers and scan warnings without
// resolving or modifying anything.
func (o *Orchestrator) Scan(notePath string) ([]models.Marker, []scanner.Warning, error) {
	data, err := o.store.Read(notePath)
	if err != nil {
		return nil, nil, err
	}
	markers, warnings := scanner.Scan(string(data))
	return markers, warnings, nil
}

// InsertImages runs the marker pipeline over the vault or a single note.
// With apply false nothing is fetched to disk or written back; entries carry
// the would-be note content in Diff instead.
func (o *Orchestrator) InsertImages(ctx context.Context, notePath string, apply bool) (*models.Report, error) {
	paths, err := o.notes(notePath)
	if err != nil {
		return nil, err
	}
	o.assets.ResetPlan()

	runID, err := o.startRun(ModeInsert, !apply)
	if err != nil {
		return nil, err
	}

	report := &models.Report{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		o.insertNote(ctx, p, apply, report)
	}

	o.finishRun(runID, report)
	return report, nil
}

// insertNote processes every marker in one note. Failures are recorded per
// marker; a broken note never aborts the run.
func (o *Orchestrator) insertNote(ctx context.Context, notePath string, apply bool, report *models.Report) {
	data, err := o.store.Read(notePath)
	if err != nil {
		report.Add(models.Entry{NotePath: notePath, Subject: notePath, Outcome: models.OutcomeFailed, Reason: err.Error()})
		return
	}
	text := string(data)

	markers, warnings := scanner.Scan(text)
	for _, w := range warnings {
		report.Add(models.Entry{
			NotePath: notePath,
			Subject:  strings.TrimSpace(w.Raw),
			Outcome:  models.OutcomeSkipped,
			Reason:   w.Reason,
		})
	}
	if len(markers) == 0 {
		return
	}

	var repls []rewrite.Replacement
	var pending []models.Entry
	for _, m := range markers {
		entry, repl := o.resolveMarker(ctx, notePath, m, apply)
		if repl != nil {
			repls = append(repls, *repl)
			pending = append(pending, entry)
			continue
		}
		report.Add(entry)
	}
	if len(repls) == 0 {
		return
	}

	updated, err := rewrite.Apply(text, repls)
	if err != nil {
		failPending(report, pending, err)
		return
	}

	if apply {
		backup, err := o.writer.Write(notePath, []byte(updated))
		if err != nil {
			failPending(report, pending, err)
			return
		}
		o.logger.Info("note updated",
			slog.String("note", notePath),
			slog.Int("markers", len(repls)),
			slog.String("backup", backup))
	}

	for _, e := range pending {
		if !apply {
			e.Diff = updated
		}
		report.Add(e)
	}
}

// resolveMarker turns one marker into either a pending replacement or a
// terminal report entry.
func (o *Orchestrator) resolveMarker(ctx context.Context, notePath string, m models.Marker, apply bool) (models.Entry, *rewrite.Replacement) {
	entry := models.Entry{NotePath: notePath, Subject: m.Subject()}

	asset, err := o.registry.Resolve(ctx, m)
	if err != nil {
		entry.Outcome = models.OutcomeFailed
		entry.Reason = err.Error()
		return entry, nil
	}

	var assetPath string
	if apply {
		stored, err := o.assets.Materialize(ctx, asset)
		if err != nil {
			entry.Outcome = models.OutcomeFailed
			entry.Reason = err.Error()
			return entry, nil
		}
		assetPath = stored.RelPath
	} else {
		planned, err := o.assets.PlanPath(asset)
		if err != nil {
			entry.Outcome = models.OutcomeFailed
			entry.Reason = err.Error()
			return entry, nil
		}
		assetPath = planned
	}

	entry.Outcome = models.OutcomeApplied
	entry.AssetPath = assetPath
	return entry, &rewrite.Replacement{
		Marker: m,
		Embed:  rewrite.Embed(m, o.assets.LinkPath(assetPath, notePath)),
	}
}

// FillMetadata runs the needs-info pipeline over the vault or a single note.
func (o *Orchestrator) FillMetadata(ctx context.Context, notePath string, apply bool) (*models.Report, error) {
	paths, err := o.notes(notePath)
	if err != nil {
		return nil, err
	}
	o.assets.ResetPlan()

	runID, err := o.startRun(ModeFill, !apply)
	if err != nil {
		return nil, err
	}

	report := &models.Report{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		data, err := o.store.Read(p)
		if err != nil {
			report.Add(models.Entry{NotePath: p, Subject: p, Outcome: models.OutcomeFailed, Reason: err.Error()})
			continue
		}
		report.Add(o.filler.Process(ctx, p, data, apply))
	}

	o.finishRun(runID, report)
	return report, nil
}

func failPending(report *models.Report, pending []models.Entry, err error) {
	for _, e := range pending {
		e.Outcome = models.OutcomeFailed
		e.Reason = err.Error()
		e.AssetPath = ""
		report.Add(e)
	}
}

func (o *Orchestrator) startRun(mode string, dryRun bool) (int64, error) {
	if o.journal == nil {
		return 0, nil
	}
	return o.journal.StartRun(mode, dryRun)
}

// finishRun records every report entry and closes out the journal run.
// Journal trouble is logged, not fatal: the notes are already updated.
func (o *Orchestrator) finishRun(runID int64, report *models.Report) {
	if o.journal == nil {
		return
	}
	for _, e := range report.Entries {
		sum := ""
		if e.Outcome == models.OutcomeApplied {
			if data, err := o.store.Read(e.NotePath); err == nil {
				sum = checksum.Sum(data)
			}
		}
		if err := o.journal.AddEntry(runID, e, sum); err != nil {
			o.logger.Warn("journal entry failed", slog.String("error", err.Error()))
		}
	}
	if err := o.journal.FinishRun(runID); err != nil {
		o.logger.Warn("journal finish failed", slog.String("error", err.Error()))
	}
	o.logger.Info("run complete",
		slog.Int("applied", report.Applied()),
		slog.Int("skipped", report.Skipped()),
		slog.Int("failed", report.Failed()))
}
