// Package ollama
package ollama

// generateRequest is the body of Ollama's /api/generate endpoint.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the subset of Ollama's non-streamed /api/generate reply
// the client reads. Metrics such as eval_count and total_duration are discarded.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
