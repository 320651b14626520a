// Package provider resolves markers to concrete media assets via external
// services: Wikimedia Commons (general images), Open Library (book covers
// and bibliographic data), TMDb (movie/TV posters and metadata), and the
// OpenAI images API (generated images).
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/othala/internal/models"
)

const (
	userAgent = "othala/0.1.0 (+https://github.com/starford/othala)"

	// defaultTimeout bounds every provider HTTP call.
	defaultTimeout = 20 * time.Second

	// defaultRate is the per-provider request rate (requests per second).
	defaultRate = 5
)

// maxResponseBytes caps JSON response bodies read from providers.
const maxResponseBytes = 4 << 20 // 4 MB

// Registry holds one client per provider and dispatches marker resolution
// over the closed Kind enum.
type Registry struct {
	images *Wikimedia
	books  *OpenLibrary
	film   *TMDB
	gen    *OpenAI
}

// NewRegistry wires the four provider clients into a registry.
func NewRegistry(images *Wikimedia, books *OpenLibrary, film *TMDB, gen *OpenAI) *Registry {
	return &Registry{images: images, books: books, film: film, gen: gen}
}

// Books exposes the Open Library client for the frontmatter filler.
func (r *Registry) Books() *OpenLibrary { return r.books }

// Film exposes the TMDb client for the frontmatter filler.
func (r *Registry) Film() *TMDB { return r.film }

// Resolve maps a marker to a downloadable or generated asset. Errors wrap
// the apperr sentinels where applicable; the caller turns them into report
// entries and continues.
func (r *Registry) Resolve(ctx context.Context, m models.Marker) (*models.ResolvedAsset, error) {
	switch m.Kind {
	case models.KindImage:
		u, title, err := r.images.ResolveImage(ctx, m.Query)
		if err != nil {
			return nil, err
		}
		return &models.ResolvedAsset{Marker: m, URL: u, Meta: models.Metadata{Title: title}}, nil

	case models.KindBook:
		u, meta, err := r.books.CoverByTitle(ctx, m.Query)
		if err != nil {
			return nil, err
		}
		return &models.ResolvedAsset{Marker: m, URL: u, Meta: meta}, nil

	case models.KindBookISBN:
		u, err := r.books.CoverByISBN(ctx, m.Query)
		if err != nil {
			return nil, err
		}
		return &models.ResolvedAsset{Marker: m, URL: u, MIME: "image/jpeg"}, nil

	case models.KindMovie:
		u, meta, err := r.film.Poster(ctx, MediaMovie, m.Query)
		if err != nil {
			return nil, err
		}
		return &models.ResolvedAsset{Marker: m, URL: u, Meta: meta}, nil

	case models.KindTV:
		u, meta, err := r.film.Poster(ctx, MediaTV, m.Query)
		if err != nil {
			return nil, err
		}
		return &models.ResolvedAsset{Marker: m, URL: u, Meta: meta}, nil

	case models.KindAIImage:
		data, mime, err := r.gen.Generate(ctx, m.Query)
		if err != nil {
			return nil, err
		}
		return &models.ResolvedAsset{Marker: m, Data: data, MIME: mime}, nil
	}
	return nil, fmt.Errorf("provider: unsupported marker kind %v", m.Kind)
}

// getJSON performs a rate-limited GET and decodes the JSON response body.
func getJSON(ctx context.Context, hc *http.Client, limiter *rate.Limiter, rawURL string, header http.Header, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", redact(rawURL), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", redact(rawURL), err)
	}
	return nil
}

// redact strips query parameters from a URL before it lands in an error
// message, so API keys never leak into logs or reports.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
