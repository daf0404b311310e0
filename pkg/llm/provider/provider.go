// Package provider defines the model client capability shared by every
// HTTP-backed model provider.
package provider

import (
	"context"
	"net/http"

	"github.com/papercomputeco/duet/pkg/llm"
)

// Client generates a text completion for a prompt from a named model.
// Implementations issue exactly one outbound request per call and return only
// the completion text.
type Client interface {
	// Generate returns the completion text for req.Prompt from req.Model.
	// Errors match llm.ErrConfiguration, llm.ErrTransport, or
	// llm.ErrUnsupportedFeature with errors.Is.
	Generate(ctx context.Context, req *llm.GenerateRequest) (string, error)
}

// Config holds the explicit construction inputs for a provider client.
// Environment fallbacks are resolved before reaching this point.
type Config struct {
	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// APIKey is the credential passed through to hosted providers.
	APIKey string

	// HTTPClient overrides the HTTP client. Defaults to a fresh *http.Client.
	HTTPClient *http.Client
}
