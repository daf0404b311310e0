package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent duet configuration stored as config.toml
// in the .duet/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version      int                `toml:"version"`
	Provider     ProviderConfig     `toml:"provider"`
	Ollama       OllamaConfig       `toml:"ollama"`
	OpenAI       OpenAIConfig       `toml:"openai"`
	Conversation ConversationConfig `toml:"conversation"`
}

// ProviderConfig selects which model client drives the conversation.
type ProviderConfig struct {
	Name string `toml:"name,omitempty"`
}

// OllamaConfig holds local generation server settings.
type OllamaConfig struct {
	Host string `toml:"host,omitempty"`
}

// OpenAIConfig holds hosted chat completion settings. The API key is never
// stored here; see pkg/credentials.
type OpenAIConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
}

// ConversationConfig holds defaults for a conversation run.
type ConversationConfig struct {
	ModelA  string `toml:"model_a,omitempty"`
	ModelB  string `toml:"model_b,omitempty"`
	Turns   uint   `toml:"turns,omitempty"`
	SystemA string `toml:"system_a,omitempty"`
	SystemB string `toml:"system_b,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"provider.name": {
		get: func(c *Config) string { return c.Provider.Name },
		set: func(c *Config, v string) error { c.Provider.Name = v; return nil },
	},
	"ollama.host": {
		get: func(c *Config) string { return c.Ollama.Host },
		set: func(c *Config, v string) error { c.Ollama.Host = v; return nil },
	},
	"openai.base_url": {
		get: func(c *Config) string { return c.OpenAI.BaseURL },
		set: func(c *Config, v string) error { c.OpenAI.BaseURL = v; return nil },
	},
	"conversation.model_a": {
		get: func(c *Config) string { return c.Conversation.ModelA },
		set: func(c *Config, v string) error { c.Conversation.ModelA = v; return nil },
	},
	"conversation.model_b": {
		get: func(c *Config) string { return c.Conversation.ModelB },
		set: func(c *Config, v string) error { c.Conversation.ModelB = v; return nil },
	},
	"conversation.turns": {
		get: func(c *Config) string {
			return strconv.FormatUint(uint64(c.Conversation.Turns), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for conversation.turns: %w", err)
			}
			c.Conversation.Turns = uint(n)
			return nil
		},
	},
	"conversation.system_a": {
		get: func(c *Config) string { return c.Conversation.SystemA },
		set: func(c *Config, v string) error { c.Conversation.SystemA = v; return nil },
	},
	"conversation.system_b": {
		get: func(c *Config) string { return c.Conversation.SystemB },
		set: func(c *Config, v string) error { c.Conversation.SystemB = v; return nil },
	},
	"conversation.timeout": {
		get: func(c *Config) string { return c.Conversation.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for conversation.timeout: %w", err)
			}
			c.Conversation.Timeout = v
			return nil
		},
	},
}
