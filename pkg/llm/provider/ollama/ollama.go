// Package ollama implements the provider Client for a local Ollama server's
// generation API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/duet/pkg/llm"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	generatePath = "/api/generate"
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty. A bare "host:port" is treated as http.
	BaseURL string

	// HTTPClient overrides the HTTP client used for requests.
	HTTPClient *http.Client
}

// Client wraps Ollama's /api/generate endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Ollama client.
func New(cfg Config) (*Client, error) {
	baseURL, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the resolved base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NormalizeBaseURL applies the default, adds a missing scheme, and trims
// trailing slashes. OLLAMA_HOST is commonly set as "127.0.0.1:11434".
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ollama base url %q: %v", llm.ErrConfiguration, raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: ollama base url %q has no host", llm.ErrConfiguration, raw)
	}

	return strings.TrimRight(raw, "/"), nil
}

// Generate posts the prompt to /api/generate and returns the "response" field
// of the reply. A reply without that field yields an empty string.
func (c *Client) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	if req == nil || req.Model == "" {
		return "", fmt.Errorf("%w: model is required", llm.ErrConfiguration)
	}
	if req.Stream {
		return "", fmt.Errorf("%w: ollama client does not support streaming responses", llm.ErrUnsupportedFeature)
	}

	body := generateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: req.Stream,
	}
	if len(req.Options) > 0 {
		body.Options = req.Options
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.EffectiveTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create ollama request: %v", llm.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: send ollama request: %w", llm.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &llm.StatusError{
			Provider:   "ollama",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %w", llm.ErrTransport, err)
	}

	return result.Response, nil
}
