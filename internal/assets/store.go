// Package assets materializes resolved media into the vault's attachments
// directory under deterministic, collision-safe filenames.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	slug "github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

const (
	userAgent    = "othala/0.1.0 (+https://github.com/starford/othala)"
	maxAssetSize = 20 << 20 // 20 MB
	fetchTimeout = 30 * time.Second

	// maxBaseLen bounds the slug part of a filename.
	maxBaseLen = 80
)

var mimeToExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

var allowedExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".svg": true,
}

// Store writes assets into the attachments directory of a vault.
type Store struct {
	store        storage.Provider
	dir          string // attachments dir, relative to the vault root
	noteRelative bool
	hc           *http.Client

	// planned reserves filenames handed out during the current run, so a
	// dry run suffixes colliding names the same way an applied run would.
	planned map[string]bool
}

// NewStore creates an asset store. When noteRelative is set, LinkPath
// produces paths relative to the embedding note instead of the vault root.
func NewStore(store storage.Provider, dir string, noteRelative bool) *Store {
	return &Store{
		store:        store,
		dir:          dir,
		noteRelative: noteRelative,
		hc:           &http.Client{Timeout: fetchTimeout},
		planned:      make(map[string]bool),
	}
}

// ResetPlan clears the filenames reserved by earlier PlanPath and
// Materialize calls. Each run starts with a fresh plan so repeated dry
// runs over the same vault predict the same names.
func (s *Store) ResetPlan() {
	s.planned = make(map[string]bool)
}

// Materialize turns a resolved asset into a stored file: generated bytes
// are written as-is, URL assets are fetched first. The returned path is
// vault-root-relative with forward slashes.
func (s *Store) Materialize(ctx context.Context, a *models.ResolvedAsset) (*models.StoredAsset, error) {
	data := a.Data
	mime := a.MIME
	if len(data) == 0 {
		var err error
		data, mime, err = s.fetch(ctx, a.URL)
		if err != nil {
			return nil, err
		}
		if a.MIME != "" {
			mime = a.MIME
		}
	}

	name, err := s.fileName(a.Marker.Query, mime, a.URL)
	if err != nil {
		return nil, err
	}

	rel := path.Join(s.dir, name)
	if err := s.store.Write(rel, data); err != nil {
		return nil, fmt.Errorf("assets: store %s: %w", rel, err)
	}
	return &models.StoredAsset{RelPath: rel, Marker: a.Marker}, nil
}

// PlanPath predicts the path Materialize would use, without fetching or
// writing anything. Dry-run mode uses it to render the would-be embed.
// The extension comes from the provider's MIME hint or the source URL;
// an applied run can still differ when the server's Content-Type
// disagrees with both.
func (s *Store) PlanPath(a *models.ResolvedAsset) (string, error) {
	name, err := s.fileName(a.Marker.Query, a.MIME, a.URL)
	if err != nil {
		return "", err
	}
	return path.Join(s.dir, name), nil
}

// LinkPath converts a stored asset path into the link form embedded in the
// given note: note-relative when configured, vault-root-relative otherwise.
func (s *Store) LinkPath(assetPath, notePath string) string {
	if !s.noteRelative {
		return assetPath
	}
	rel, err := filepath.Rel(path.Dir(notePath), assetPath)
	if err != nil {
		return assetPath
	}
	return filepath.ToSlash(rel)
}

// fileName builds slug(query)+ext, suffixing -2, -3, … while a same-named
// file already exists in the attachments directory or was already handed
// out during this run.
func (s *Store) fileName(query, mime, sourceURL string) (string, error) {
	base := slugBase(query)
	ext := extensionFor(mime, sourceURL)

	name := base + ext
	for i := 2; ; i++ {
		exists, err := s.store.Exists(path.Join(s.dir, name))
		if err != nil {
			return "", fmt.Errorf("assets: check %s: %w", name, err)
		}
		if !exists && !s.planned[name] {
			s.planned[name] = true
			return name, nil
		}
		name = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

// slugBase derives a filesystem-safe base name from the query.
func slugBase(query string) string {
	normalized, err := slug.Normalize(query)
	if err != nil || normalized == "" {
		return uuid.New().String()
	}
	if len(normalized) > maxBaseLen {
		normalized = strings.Trim(normalized[:maxBaseLen], "-")
	}
	return normalized
}

// extensionFor infers a file extension from the content type, falling back
// to the source URL's extension, then to .jpg.
func extensionFor(mime, sourceURL string) string {
	if ext, ok := mimeToExt[strings.TrimSpace(strings.Split(mime, ";")[0])]; ok {
		return ext
	}
	if sourceURL != "" {
		if u, err := url.Parse(sourceURL); err == nil {
			if ext := strings.ToLower(path.Ext(u.Path)); allowedExts[ext] {
				return ext
			}
		}
	}
	return ".jpg"
}

// fetch downloads the asset bytes, returning the response content type.
func (s *Store) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("assets: request %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("assets: download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("assets: download: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("assets: read body: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, "", fmt.Errorf("assets: download exceeds %d bytes", maxAssetSize)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
