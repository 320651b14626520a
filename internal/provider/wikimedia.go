package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/starford/othala/internal/apperr"
)

// DefaultWikimediaURL is the Wikimedia Commons API endpoint.
const DefaultWikimediaURL = "https://commons.wikimedia.org/w/api.php"

// fileNamespace restricts searches to File: pages.
const fileNamespace = 6

// Wikimedia looks up freely licensed images on Wikimedia Commons.
type Wikimedia struct {
	baseURL string
	hc      *http.Client
	limiter *rate.Limiter
}

// WikimediaOption configures the Wikimedia client.
type WikimediaOption func(*Wikimedia)

// WithWikimediaBaseURL points the client at a different API endpoint.
func WithWikimediaBaseURL(u string) WikimediaOption {
	return func(c *Wikimedia) { c.baseURL = u }
}

// WithWikimediaHTTPClient sets a custom HTTP client.
func WithWikimediaHTTPClient(hc *http.Client) WikimediaOption {
	return func(c *Wikimedia) { c.hc = hc }
}

// NewWikimedia creates a Wikimedia Commons client.
func NewWikimedia(opts ...WikimediaOption) *Wikimedia {
	c := &Wikimedia{
		baseURL: DefaultWikimediaURL,
		hc:      &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiImageInfoResponse struct {
	Query struct {
		Pages map[string]struct {
			ImageInfo []struct {
				URL string `json:"url"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// ResolveImage searches the File namespace for query and returns the direct
// URL of the top hit, together with its page title.
func (c *Wikimedia) ResolveImage(ctx context.Context, query string) (string, string, error) {
	params := url.Values{
		"action":      {"query"},
		"format":      {"json"},
		"list":        {"search"},
		"srsearch":    {query},
		"srnamespace": {strconv.Itoa(fileNamespace)},
		"srlimit":     {"1"},
	}

	var search wikiSearchResponse
	if err := getJSON(ctx, c.hc, c.limiter, c.baseURL+"?"+params.Encode(), nil, &search); err != nil {
		return "", "", fmt.Errorf("wikimedia: search: %w", err)
	}
	if len(search.Query.Search) == 0 {
		return "", "", fmt.Errorf("wikimedia: %q: %w", query, apperr.ErrNoResults)
	}
	title := search.Query.Search[0].Title

	infoParams := url.Values{
		"action": {"query"},
		"format": {"json"},
		"titles": {title},
		"prop":   {"imageinfo"},
		"iiprop": {"url"},
	}

	var info wikiImageInfoResponse
	if err := getJSON(ctx, c.hc, c.limiter, c.baseURL+"?"+infoParams.Encode(), nil, &info); err != nil {
		return "", "", fmt.Errorf("wikimedia: imageinfo: %w", err)
	}
	for _, page := range info.Query.Pages {
		if len(page.ImageInfo) > 0 && page.ImageInfo[0].URL != "" {
			return page.ImageInfo[0].URL, title, nil
		}
	}
	return "", "", fmt.Errorf("wikimedia: %q has no file url: %w", title, apperr.ErrNoResults)
}
