// Package fill completes frontmatter metadata for notes carrying the
// needs-info tag plus a single content-type tag, then clears the tag.
package fill

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/starford/othala/internal/assets"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/provider"
	"github.com/starford/othala/internal/rewrite"
)

// Content-type tags the filler understands.
const (
	TagBook  = "book"
	TagMovie = "movie"
	TagTV    = "tv"
)

// Filler drives the needs-info pipeline for one note at a time.
type Filler struct {
	providers *provider.Registry
	store     *assets.Store
	writer    *rewrite.Writer
	tag       string // completion tag, e.g. "needsinfo"
	logger    *slog.Logger
}

// NewFiller creates a Filler. tag is the completion tag that activates
// (and is removed by) the fill.
func NewFiller(providers *provider.Registry, store *assets.Store, writer *rewrite.Writer, tag string, logger *slog.Logger) *Filler {
	return &Filler{providers: providers, store: store, writer: writer, tag: tag, logger: logger}
}

// Process handles one note. It returns exactly one report entry; failures
// never propagate as errors because a failed note must not stop the run.
// On any outcome other than Applied the note is left untouched, so the
// completion tag survives for a retry.
func (f *Filler) Process(ctx context.Context, notePath string, data []byte, apply bool) models.Entry {
	note := parser.Parse(data)

	tags := make(map[string]bool)
	for _, t := range note.Tags() {
		tags[t] = true
	}
	hasTag := func(t string) bool { return tags[t] || parser.HasInlineTag(note.Body, t) }

	if !hasTag(f.tag) {
		return models.Entry{
			NotePath: notePath,
			Subject:  f.tag,
			Outcome:  models.OutcomeSkipped,
			Reason:   "no " + f.tag + " tag",
		}
	}

	var content []string
	for _, t := range []string{TagBook, TagMovie, TagTV} {
		if hasTag(t) {
			content = append(content, t)
		}
	}
	if len(content) != 1 {
		reason := "no content-type tag"
		if len(content) > 1 {
			reason = "ambiguous content-type tags"
		}
		return models.Entry{NotePath: notePath, Subject: f.tag, Outcome: models.OutcomeSkipped, Reason: reason}
	}

	kind := content[0]
	title := note.Title(notePath)
	subject := kind + ": " + title

	var assetPath string
	var err error
	switch kind {
	case TagBook:
		assetPath, err = f.fillBook(ctx, note, title, apply)
	case TagMovie:
		assetPath, err = f.fillFilm(ctx, note, title, provider.MediaMovie, apply)
	case TagTV:
		assetPath, err = f.fillFilm(ctx, note, title, provider.MediaTV, apply)
	}
	if err != nil {
		return models.Entry{NotePath: notePath, Subject: subject, Outcome: models.OutcomeFailed, Reason: err.Error()}
	}

	note.RemoveTag(f.tag)
	note.Body = parser.CollapseBlankLines(parser.RemoveInlineTag(note.Body, f.tag))

	updated, err := note.Render()
	if err != nil {
		return models.Entry{NotePath: notePath, Subject: subject, Outcome: models.OutcomeFailed, Reason: err.Error()}
	}

	entry := models.Entry{
		NotePath:  notePath,
		Subject:   subject,
		Outcome:   models.OutcomeApplied,
		AssetPath: assetPath,
		Diff:      string(updated),
	}
	if !apply {
		return entry
	}

	backup, err := f.writer.Write(notePath, updated)
	if err != nil {
		return models.Entry{NotePath: notePath, Subject: subject, Outcome: models.OutcomeFailed, Reason: err.Error()}
	}
	f.logger.Info("note filled",
		slog.String("note", notePath),
		slog.String("subject", subject),
		slog.String("backup", backup))
	return entry
}

// fillBook resolves book metadata via Open Library and merges it into the
// frontmatter. The cover image is best-effort: a missing cover leaves the
// metadata fill intact.
func (f *Filler) fillBook(ctx context.Context, note *parser.Note, title string, apply bool) (string, error) {
	author, _ := note.Get("author")
	isbn, meta, err := f.providers.Books().FindISBN(ctx, title, author)
	if err != nil {
		return "", err
	}

	note.SetIfEmpty("ISBN", isbn)
	if meta.Author != "" {
		note.SetIfEmpty("Author", meta.Author)
	}
	if meta.Year > 0 {
		note.SetIfEmpty("Year", strconv.Itoa(meta.Year))
	}

	coverURL, err := f.providers.Books().CoverByISBN(ctx, isbn)
	if err != nil {
		f.logger.Warn("cover unavailable", slog.String("isbn", isbn), slog.String("error", err.Error()))
		return "", nil
	}
	return f.attachImage(ctx, note, title+" cover", coverURL, "image/jpeg", apply)
}

// fillFilm resolves movie/TV metadata via TMDb and merges it into the
// frontmatter, including the streaming services for the configured region.
func (f *Filler) fillFilm(ctx context.Context, note *parser.Note, title string, kind provider.MediaKind, apply bool) (string, error) {
	posterURL, meta, err := f.providers.Film().Poster(ctx, kind, title)
	if err != nil {
		return "", err
	}

	if meta.Year > 0 {
		note.SetIfEmpty("Year", strconv.Itoa(meta.Year))
	}
	note.SetIfEmpty("TMDB", strconv.Itoa(meta.TMDBID))

	services, err := f.providers.Film().WatchProviders(ctx, kind, meta.TMDBID)
	if err != nil {
		f.logger.Warn("watch providers unavailable", slog.String("title", title), slog.String("error", err.Error()))
	} else {
		note.SetListIfEmpty("Service", services)
	}

	return f.attachImage(ctx, note, title+" poster", posterURL, "", apply)
}

// attachImage materializes the artwork (or plans its path in dry-run) and
// records it in the Image field as a wikilink.
func (f *Filler) attachImage(ctx context.Context, note *parser.Note, query, url, mime string, apply bool) (string, error) {
	asset := &models.ResolvedAsset{
		Marker: models.Marker{Query: query},
		URL:    url,
		MIME:   mime,
	}

	var relPath string
	if apply {
		stored, err := f.store.Materialize(ctx, asset)
		if err != nil {
			f.logger.Warn("artwork download failed", slog.String("query", query), slog.String("error", err.Error()))
			return "", nil
		}
		relPath = stored.RelPath
	} else {
		planned, err := f.store.PlanPath(asset)
		if err != nil {
			return "", nil
		}
		relPath = planned
	}

	note.SetIfEmpty("Image", "[["+relPath+"]]")
	return relPath, nil
}
