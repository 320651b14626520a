package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Default Open Library endpoints.
const (
	DefaultOpenLibraryURL = "https://openlibrary.org"
	DefaultCoversURL      = "https://covers.openlibrary.org"
)

var isbnCleanRe = regexp.MustCompile(`[^0-9Xx]`)

// OpenLibrary resolves book covers and bibliographic metadata.
type OpenLibrary struct {
	baseURL   string
	coversURL string
	hc        *http.Client
	limiter   *rate.Limiter
}

// OpenLibraryOption configures the OpenLibrary client.
type OpenLibraryOption func(*OpenLibrary)

// WithOpenLibraryBaseURL points the client at a different search endpoint.
func WithOpenLibraryBaseURL(u string) OpenLibraryOption {
	return func(c *OpenLibrary) { c.baseURL = u }
}

// WithCoversBaseURL points the client at a different covers endpoint.
func WithCoversBaseURL(u string) OpenLibraryOption {
	return func(c *OpenLibrary) { c.coversURL = u }
}

// WithOpenLibraryHTTPClient sets a custom HTTP client.
func WithOpenLibraryHTTPClient(hc *http.Client) OpenLibraryOption {
	return func(c *OpenLibrary) { c.hc = hc }
}

// NewOpenLibrary creates an Open Library client.
func NewOpenLibrary(opts ...OpenLibraryOption) *OpenLibrary {
	c := &OpenLibrary{
		baseURL:   DefaultOpenLibraryURL,
		coversURL: DefaultCoversURL,
		hc:        &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type openLibrarySearchResponse struct {
	Docs []struct {
		Title            string   `json:"title"`
		AuthorName       []string `json:"author_name"`
		CoverID          int      `json:"cover_i"`
		ISBN             []string `json:"isbn"`
		FirstPublishYear int      `json:"first_publish_year"`
	} `json:"docs"`
}

// CoverByTitle searches by title and returns the cover URL of the
// best-ranked match (Open Library relevance order, first doc wins) plus the
// canonical title/author for frontmatter use.
func (c *OpenLibrary) CoverByTitle(ctx context.Context, title string) (string, models.Metadata, error) {
	params := url.Values{
		"title":  {title},
		"limit":  {"1"},
		"fields": {"title,author_name,cover_i,first_publish_year"},
	}

	var res openLibrarySearchResponse
	if err := getJSON(ctx, c.hc, c.limiter, c.baseURL+"/search.json?"+params.Encode(), nil, &res); err != nil {
		return "", models.Metadata{}, fmt.Errorf("openlibrary: search: %w", err)
	}
	if len(res.Docs) == 0 {
		return "", models.Metadata{}, fmt.Errorf("openlibrary: %q: %w", title, apperr.ErrNoResults)
	}

	doc := res.Docs[0]
	if doc.CoverID == 0 {
		return "", models.Metadata{}, fmt.Errorf("openlibrary: %q has no cover: %w", title, apperr.ErrNoResults)
	}

	meta := models.Metadata{Title: doc.Title, Year: doc.FirstPublishYear}
	if len(doc.AuthorName) > 0 {
		meta.Author = doc.AuthorName[0]
	}
	return fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, doc.CoverID), meta, nil
}

// CoverByISBN builds the covers URL for an ISBN and verifies it exists with
// a HEAD request.
func (c *OpenLibrary) CoverByISBN(ctx context.Context, isbn string) (string, error) {
	cleaned := isbnCleanRe.ReplaceAllString(isbn, "")
	if cleaned == "" {
		return "", fmt.Errorf("openlibrary: invalid isbn %q: %w", isbn, apperr.ErrNoResults)
	}

	coverURL := fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, cleaned)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, coverURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("openlibrary: cover check: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openlibrary: no cover for isbn %s: %w", cleaned, apperr.ErrNoResults)
	}
	return coverURL, nil
}

// FindISBN looks up an ISBN by title (and optional author), preferring
// ISBN-13 over ISBN-10. The canonical title/author of the matched edition
// come back in the metadata.
func (c *OpenLibrary) FindISBN(ctx context.Context, title, author string) (string, models.Metadata, error) {
	params := url.Values{
		"title":  {title},
		"limit":  {"5"},
		"fields": {"title,author_name,isbn,first_publish_year"},
	}
	if author != "" {
		params.Set("author", author)
	}

	var res openLibrarySearchResponse
	if err := getJSON(ctx, c.hc, c.limiter, c.baseURL+"/search.json?"+params.Encode(), nil, &res); err != nil {
		return "", models.Metadata{}, fmt.Errorf("openlibrary: search: %w", err)
	}

	for _, doc := range res.Docs {
		if len(doc.ISBN) == 0 {
			continue
		}
		isbn := doc.ISBN[0]
		for _, candidate := range doc.ISBN {
			if len(candidate) == 13 {
				isbn = candidate
				break
			}
		}
		meta := models.Metadata{Title: doc.Title, ISBN: isbn, Year: doc.FirstPublishYear}
		if len(doc.AuthorName) > 0 {
			meta.Author = doc.AuthorName[0]
		}
		return isbn, meta, nil
	}
	return "", models.Metadata{}, fmt.Errorf("openlibrary: no isbn for %q: %w", strings.TrimSpace(title), apperr.ErrNoResults)
}
