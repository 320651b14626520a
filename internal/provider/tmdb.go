package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Default TMDb endpoints.
const (
	DefaultTMDBURL      = "https://api.themoviedb.org/3"
	DefaultTMDBImageURL = "https://image.tmdb.org/t/p/w500"
)

// MediaKind disambiguates movie vs TV lookups.
type MediaKind string

const (
	MediaMovie MediaKind = "movie"
	MediaTV    MediaKind = "tv"
)

// TMDB resolves movie and TV posters and metadata from themoviedb.org.
type TMDB struct {
	baseURL  string
	imageURL string
	apiKey   string
	region   string
	hc       *http.Client
	limiter  *rate.Limiter
}

// TMDBOption configures the TMDB client.
type TMDBOption func(*TMDB)

// WithTMDBBaseURL points the client at a different API endpoint.
func WithTMDBBaseURL(u string) TMDBOption {
	return func(c *TMDB) { c.baseURL = u }
}

// WithTMDBImageURL points the client at a different image host.
func WithTMDBImageURL(u string) TMDBOption {
	return func(c *TMDB) { c.imageURL = u }
}

// WithTMDBRegion sets the region used for watch-provider lookups.
func WithTMDBRegion(region string) TMDBOption {
	return func(c *TMDB) { c.region = region }
}

// WithTMDBHTTPClient sets a custom HTTP client.
func WithTMDBHTTPClient(hc *http.Client) TMDBOption {
	return func(c *TMDB) { c.hc = hc }
}

// NewTMDB creates a TMDb client. The API key may be a v3 key (sent as a
// query parameter) or a v4 token (sent as a Bearer header).
func NewTMDB(apiKey string, opts ...TMDBOption) *TMDB {
	c := &TMDB{
		baseURL:  DefaultTMDBURL,
		imageURL: DefaultTMDBImageURL,
		apiKey:   apiKey,
		region:   "US",
		hc:       &http.Client{Timeout: defaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(defaultRate), defaultRate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// bearerToken reports whether the key is a v4 read-access token.
func (c *TMDB) bearerToken() bool {
	return strings.HasPrefix(c.apiKey, "ey")
}

func (c *TMDB) auth(params url.Values) (url.Values, http.Header) {
	header := http.Header{}
	if c.bearerToken() {
		header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		params.Set("api_key", c.apiKey)
	}
	return params, header
}

type tmdbSearchResponse struct {
	Results []struct {
		ID           int    `json:"id"`
		Title        string `json:"title"`
		Name         string `json:"name"`
		PosterPath   string `json:"poster_path"`
		ReleaseDate  string `json:"release_date"`
		FirstAirDate string `json:"first_air_date"`
	} `json:"results"`
}

type tmdbWatchResponse struct {
	Results map[string]struct {
		Flatrate []tmdbWatchProvider `json:"flatrate"`
		Free     []tmdbWatchProvider `json:"free"`
		Ads      []tmdbWatchProvider `json:"ads"`
		Rent     []tmdbWatchProvider `json:"rent"`
		Buy      []tmdbWatchProvider `json:"buy"`
	} `json:"results"`
}

type tmdbWatchProvider struct {
	ProviderName string `json:"provider_name"`
}

// Poster searches the given media kind for query and returns the poster
// URL of the first result (TMDb relevance order is the documented
// tie-break), plus canonical title, year, and TMDb id.
func (c *TMDB) Poster(ctx context.Context, kind MediaKind, query string) (string, models.Metadata, error) {
	if c.apiKey == "" {
		return "", models.Metadata{}, fmt.Errorf("tmdb: %w", apperr.ErrMissingKey)
	}

	params, header := c.auth(url.Values{
		"query":         {query},
		"include_adult": {"false"},
		"language":      {"en-US"},
	})

	var res tmdbSearchResponse
	endpoint := fmt.Sprintf("%s/search/%s?%s", c.baseURL, kind, params.Encode())
	if err := getJSON(ctx, c.hc, c.limiter, endpoint, header, &res); err != nil {
		return "", models.Metadata{}, fmt.Errorf("tmdb: search %s: %w", kind, err)
	}
	if len(res.Results) == 0 {
		return "", models.Metadata{}, fmt.Errorf("tmdb: %q: %w", query, apperr.ErrNoResults)
	}

	first := res.Results[0]
	if first.PosterPath == "" {
		return "", models.Metadata{}, fmt.Errorf("tmdb: %q has no poster: %w", query, apperr.ErrNoResults)
	}

	meta := models.Metadata{TMDBID: first.ID}
	if kind == MediaMovie {
		meta.Title = first.Title
		meta.Year = yearOf(first.ReleaseDate)
	} else {
		meta.Title = first.Name
		meta.Year = yearOf(first.FirstAirDate)
	}
	return c.imageURL + first.PosterPath, meta, nil
}

// WatchProviders returns the deduplicated streaming/rental service names
// available for the title in the client's region.
func (c *TMDB) WatchProviders(ctx context.Context, kind MediaKind, id int) ([]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tmdb: %w", apperr.ErrMissingKey)
	}

	params, header := c.auth(url.Values{})
	endpoint := fmt.Sprintf("%s/%s/%d/watch/providers", c.baseURL, kind, id)
	if enc := params.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var res tmdbWatchResponse
	if err := getJSON(ctx, c.hc, c.limiter, endpoint, header, &res); err != nil {
		return nil, fmt.Errorf("tmdb: watch providers: %w", err)
	}

	region, ok := res.Results[strings.ToUpper(c.region)]
	if !ok {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var names []string
	for _, group := range [][]tmdbWatchProvider{region.Flatrate, region.Free, region.Ads, region.Rent, region.Buy} {
		for _, p := range group {
			if p.ProviderName == "" {
				continue
			}
			if _, dup := seen[p.ProviderName]; dup {
				continue
			}
			seen[p.ProviderName] = struct{}{}
			names = append(names, p.ProviderName)
		}
	}
	return names, nil
}

// yearOf extracts the year from a TMDb date string (YYYY-MM-DD).
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}
