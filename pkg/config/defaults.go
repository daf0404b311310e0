package config

const (
	defaultProvider   = "ollama"
	defaultOllamaHost = "http://localhost:11434"

	defaultModel   = "llama2"
	defaultTurns   = 4
	defaultTimeout = "60s"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Provider: ProviderConfig{
			Name: defaultProvider,
		},
		Ollama: OllamaConfig{
			Host: defaultOllamaHost,
		},
		Conversation: ConversationConfig{
			ModelA:  defaultModel,
			ModelB:  defaultModel,
			Turns:   defaultTurns,
			Timeout: defaultTimeout,
		},
	}
}
