package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "model-a").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "conversation.model_a").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddDurationFlag,
// and BindRegisteredFlags to avoid typos or drift between commands.
const (
	FlagProvider      = "provider"
	FlagOllamaHost    = "ollama-host"
	FlagOpenAIBaseURL = "openai-base-url"
	FlagAPIKey        = "api-key"
	FlagModelA        = "model-a"
	FlagModelB        = "model-b"
	FlagTurns         = "turns"
	FlagSystemA       = "system-a"
	FlagSystemB       = "system-b"
	FlagTimeout       = "timeout"
)

// ConversationFlags is the registry of flags that feed a conversation run.
var ConversationFlags = FlagSet{
	FlagProvider:      {Name: "provider", Shorthand: "p", ViperKey: "provider.name", Description: "Model provider (ollama, openai)"},
	FlagOllamaHost:    {Name: "ollama-host", ViperKey: "ollama.host", Description: "Ollama server URL (env OLLAMA_HOST)"},
	FlagOpenAIBaseURL: {Name: "openai-base-url", ViperKey: "openai.base_url", Description: "Alternate OpenAI-compatible API URL (env OPENAI_BASE_URL)"},
	FlagAPIKey:        {Name: "api-key", ViperKey: KeyOpenAIAPIKey, Description: "API key for the hosted provider (env OPENAI_API_KEY)"},
	FlagModelA:        {Name: "model-a", ViperKey: "conversation.model_a", Description: "Name of the first model"},
	FlagModelB:        {Name: "model-b", ViperKey: "conversation.model_b", Description: "Name of the second model"},
	FlagTurns:         {Name: "turns", Shorthand: "n", ViperKey: "conversation.turns", Description: "Number of turns in the conversation"},
	FlagSystemA:       {Name: "system-a", ViperKey: "conversation.system_a", Description: "Optional system prompt for the first model"},
	FlagSystemB:       {Name: "system-b", ViperKey: "conversation.system_b", Description: "Optional system prompt for the second model"},
	FlagTimeout:       {Name: "timeout", ViperKey: "conversation.timeout", Description: "Timeout for each model request"},
}

// ConversationFlagKeys lists every registry key in ConversationFlags.
func ConversationFlagKeys() []string {
	return []string{
		FlagProvider,
		FlagOllamaHost,
		FlagOpenAIBaseURL,
		FlagAPIKey,
		FlagModelA,
		FlagModelB,
		FlagTurns,
		FlagSystemA,
		FlagSystemB,
		FlagTimeout,
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a time.Duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *time.Duration) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultDuration returns the default duration value for a viper key from NewDefaultConfig.
func defaultDuration(viperKey string) time.Duration {
	v := viper.New()
	setViperDefaults(v)
	return v.GetDuration(viperKey)
}
