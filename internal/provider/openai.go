package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/othala/internal/apperr"
)

// Default OpenAI image generation settings.
const (
	DefaultOpenAIURL  = "https://api.openai.com/v1"
	DefaultImageModel = "gpt-image-1"
	DefaultImageSize  = "1024x1024"
	generationTimeout = 90 * time.Second
	maxGeneratedBytes = 20 << 20 // 20 MB
)

// OpenAI generates images from text prompts via the images API.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	size    string
	hc      *http.Client
	limiter *rate.Limiter
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAI)

// WithOpenAIBaseURL points the client at a different API endpoint.
func WithOpenAIBaseURL(u string) OpenAIOption {
	return func(c *OpenAI) { c.baseURL = u }
}

// WithOpenAIModel sets the generation model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAI) { c.model = model }
}

// WithOpenAISize sets the generated image dimensions.
func WithOpenAISize(size string) OpenAIOption {
	return func(c *OpenAI) { c.size = size }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAI) { c.hc = hc }
}

// NewOpenAI creates an image-generation client.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	c := &OpenAI{
		baseURL: DefaultOpenAIURL,
		apiKey:  apiKey,
		model:   DefaultImageModel,
		size:    DefaultImageSize,
		hc:      &http.Client{Timeout: generationTimeout},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate renders the prompt into image bytes. The API returns either
// inline base64 data or a short-lived URL; both paths end in raw bytes.
func (c *OpenAI) Generate(ctx context.Context, prompt string) ([]byte, string, error) {
	if c.apiKey == "" {
		return nil, "", fmt.Errorf("openai: %w", apperr.ErrMissingKey)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	payload, err := json.Marshal(imageGenerationRequest{
		Model:  c.model,
		Prompt: prompt,
		Size:   c.size,
	})
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("openai: generate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+maxGeneratedBytes))
	if err != nil {
		return nil, "", err
	}

	var out imageGenerationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, "", fmt.Errorf("openai: decode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, "", fmt.Errorf("openai: %s", msg)
	}
	if len(out.Data) == 0 {
		return nil, "", fmt.Errorf("openai: generation returned no image: %w", apperr.ErrNoResults)
	}

	if b64 := out.Data[0].B64JSON; b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, "", fmt.Errorf("openai: decode image data: %w", err)
		}
		return data, "image/png", nil
	}

	if u := out.Data[0].URL; u != "" {
		return c.fetchGenerated(ctx, u)
	}
	return nil, "", fmt.Errorf("openai: generation returned no usable image: %w", apperr.ErrNoResults)
}

// fetchGenerated downloads a generated image from the short-lived URL the
// API sometimes returns instead of inline data.
func (c *OpenAI) fetchGenerated(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("openai: fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("openai: fetch image: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGeneratedBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
