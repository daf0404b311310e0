package provider

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/duet/pkg/llm"
	"github.com/papercomputeco/duet/pkg/llm/provider/ollama"
	"github.com/papercomputeco/duet/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Ollama = "ollama"
	OpenAI = "openai"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Ollama, OpenAI}
}

// IsSupported returns true if name is a supported provider type.
func IsSupported(name string) bool {
	switch strings.ToLower(name) {
	case Ollama, OpenAI:
		return true
	default:
		return false
	}
}

// New creates a Client for the given provider type.
// Returns an error matching llm.ErrConfiguration if the provider type is not
// recognized or the client cannot be constructed from cfg.
func New(providerType string, cfg Config) (Client, error) {
	switch strings.ToLower(providerType) {
	case Ollama:
		c, err := ollama.New(ollama.Config{
			BaseURL:    cfg.BaseURL,
			HTTPClient: cfg.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case OpenAI:
		c, err := openai.New(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			HTTPClient: cfg.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider type: %q (supported: %v)",
			llm.ErrConfiguration, providerType, SupportedProviders())
	}
}
