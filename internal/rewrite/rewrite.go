// Package rewrite rebuilds note text around resolved marker spans and
// performs the backup-then-atomic-write swap.
package rewrite

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Replacement pairs a marker with the embed string that takes its place.
type Replacement struct {
	Marker models.Marker
	Embed  string
}

// Apply substitutes each replacement span and copies every byte outside
// the spans unchanged. Replacements must arrive in ascending span order;
// overlapping or out-of-order spans are a programming error and rejected.
func Apply(text string, repls []Replacement) (string, error) {
	var b strings.Builder
	prev := 0
	for _, r := range repls {
		m := r.Marker
		if m.Start < prev || m.End > len(text) || m.Start > m.End {
			return "", fmt.Errorf("rewrite: span [%d,%d) out of order or out of range", m.Start, m.End)
		}
		b.WriteString(text[prev:m.Start])
		b.WriteString(r.Embed)
		prev = m.End
	}
	b.WriteString(text[prev:])
	return b.String(), nil
}

// Embed renders the replacement token for a resolved marker. Quoted
// markers (inside frontmatter values) become quoted wikilinks; everything
// else becomes a Markdown image with the marker's alt text, or the query
// itself when no alt was given.
func Embed(m models.Marker, linkPath string) string {
	if m.Quoted {
		q := string(m.Quote)
		return q + "[[" + linkPath + "]]" + q
	}
	alt := m.Alt
	if alt == "" {
		alt = m.Query
	}
	return "![" + alt + "](" + escapePath(linkPath) + ")"
}

// escapePath percent-escapes spaces so the link survives Markdown parsing.
func escapePath(p string) string {
	return strings.ReplaceAll(p, " ", "%20")
}

// Writer swaps note content on disk: backup copy first, then an atomic
// write of the new text. A failed backup leaves the note untouched.
type Writer struct {
	store     storage.Provider
	backupDir string
	now       func() time.Time
}

// NewWriter creates a Writer that places backups under backupDir
// (relative to the vault root).
func NewWriter(store storage.Provider, backupDir string) *Writer {
	return &Writer{store: store, backupDir: backupDir, now: time.Now}
}

// Write backs up the note at notePath and then replaces its content.
// The backup name embeds a timestamp so repeated runs never clobber an
// earlier backup. Returns the backup's vault-relative path.
func (w *Writer) Write(notePath string, updated []byte) (string, error) {
	backupPath := path.Join(w.backupDir, notePath+"."+w.now().Format("20060102_150405")+".bak")
	if err := w.store.Copy(notePath, backupPath); err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrBackupFailed, notePath, err)
	}
	if err := w.store.Write(notePath, updated); err != nil {
		return backupPath, fmt.Errorf("rewrite: write %s: %w", notePath, err)
	}
	return backupPath, nil
}
