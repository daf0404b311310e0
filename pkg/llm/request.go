// Package llm holds the provider-agnostic types shared by model clients and
// the conversation orchestrator.
package llm

import "time"

// DefaultTimeout bounds a single generation request when the caller does not
// set one.
const DefaultTimeout = 60 * time.Second

// GenerateRequest is a provider-agnostic text generation request.
type GenerateRequest struct {
	// Model name (e.g., "llama2", "gpt-4o-mini")
	Model string `json:"model"`

	// Prompt is the full prompt text, usually newline-joined role-tagged lines.
	Prompt string `json:"prompt"`

	// Stream requests a streamed response. Clients that cannot honor it fail
	// with ErrUnsupportedFeature.
	Stream bool `json:"stream"`

	// Options holds provider-specific generation parameters (e.g. temperature)
	// and is passed through to the provider verbatim.
	Options map[string]any `json:"options,omitempty"`

	// Timeout bounds the outbound request. Zero means DefaultTimeout.
	Timeout time.Duration `json:"-"`
}

// EffectiveTimeout returns the request timeout, falling back to DefaultTimeout.
func (r *GenerateRequest) EffectiveTimeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}
