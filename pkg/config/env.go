package config

import (
	"github.com/spf13/viper"
)

// Environment variable names recognized alongside the DUET_ prefixed keys.
const (
	EnvPrefix = "DUET"

	EnvOllamaHost    = "OLLAMA_HOST"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// KeyOpenAIAPIKey is the viper key for the hosted provider credential. It is
// resolved from flags and the environment only, never from config.toml.
const KeyOpenAIAPIKey = "openai.api_key"

// Env holds the configuration values that come from the process environment.
type Env struct {
	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// ResolveEnv reads the provider settings from the environment once. Unset
// variables leave the corresponding field empty so callers apply their own
// defaults.
func ResolveEnv() Env {
	v := viper.New()
	bindProviderEnv(v)

	return Env{
		OllamaHost:    v.GetString("ollama.host"),
		OpenAIAPIKey:  v.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL: v.GetString("openai.base_url"),
	}
}

// bindProviderEnv binds the conventional provider variables in addition to
// their DUET_ prefixed forms. The prefixed form wins when both are set.
func bindProviderEnv(v *viper.Viper) {
	_ = v.BindEnv("ollama.host", EnvPrefix+"_OLLAMA_HOST", EnvOllamaHost)
	_ = v.BindEnv("openai.base_url", EnvPrefix+"_OPENAI_BASE_URL", EnvOpenAIBaseURL)
	_ = v.BindEnv(KeyOpenAIAPIKey, EnvPrefix+"_OPENAI_API_KEY", EnvOpenAIAPIKey)
}
