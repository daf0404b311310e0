// Package openai implements the provider Client for OpenAI-compatible hosted
// chat completion APIs.
package openai

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
	// DefaultBaseURL is the default OpenAI API URL, including the version prefix.
	DefaultBaseURL = "https://api.openai.com/v1"

	completionsPath = "/chat/completions"
)

// Config holds configuration for the OpenAI client.
type Config struct {
	// APIKey is sent as a bearer token. Required.
	APIKey string

	// BaseURL is an alternate API URL for OpenAI-compatible services.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// HTTPClient overrides the HTTP client used for requests.
	HTTPClient *http.Client
}

// Client wraps the chat completions endpoint with a single user message per call.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new OpenAI client. An empty API key is a configuration error.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", llm.ErrConfiguration)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid openai base url %q", llm.ErrConfiguration, cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the resolved base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate sends the prompt as a single user message and returns the first
// choice's message content, or an empty string when that content is null.
func (c *Client) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	if req == nil || req.Model == "" {
		return "", fmt.Errorf("%w: model is required", llm.ErrConfiguration)
	}
	if req.Stream {
		return "", fmt.Errorf("%w: openai client does not support streaming responses", llm.ErrUnsupportedFeature)
	}

	payload, err := json.Marshal(buildRequestBody(req))
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.EffectiveTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create openai request: %v", llm.ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: send openai request: %w", llm.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read openai response: %w", llm.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.StatusError{
			Provider:   "openai",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode openai response: %w", llm.ErrTransport, err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: openai error: %s", llm.ErrTransport, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", llm.ErrTransport)
	}

	content := result.Choices[0].Message.Content
	if content == nil {
		return "", nil
	}

	return *content, nil
}

// buildRequestBody merges options into the top level of the request body.
// model and messages always come from the request itself, and a "stream"
// option is dropped since the reply is read as a single JSON document.
func buildRequestBody(req *llm.GenerateRequest) map[string]any {
	body := make(map[string]any, len(req.Options)+2)
	for k, v := range req.Options {
		body[k] = v
	}
	delete(body, "stream")

	body["model"] = req.Model
	body["messages"] = []chatMessage{
		{Role: "user", Content: req.Prompt},
	}

	return body
}
