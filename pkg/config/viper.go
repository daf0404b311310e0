package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/papercomputeco/duet/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the DUET_ prefix plus OLLAMA_HOST, OPENAI_BASE_URL and OPENAI_API_KEY.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DUET_CONVERSATION_TURNS, OLLAMA_HOST, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution. The file is read into
	// its own viper so values that mean "unset" can be dropped before merging.
	fv := viper.New()
	fv.SetConfigName("config")
	fv.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		fv.AddConfigPath(target)
	}

	if err := fv.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		fileSettings := fv.AllSettings()
		dropZeroTurns(fileSettings)
		if err := v.MergeConfigMap(fileSettings); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: DUET_CONVERSATION_MODEL_A, DUET_PROVIDER_NAME, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("provider.name", d.Provider.Name)

	v.SetDefault("ollama.host", d.Ollama.Host)

	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)

	v.SetDefault("conversation.model_a", d.Conversation.ModelA)
	v.SetDefault("conversation.model_b", d.Conversation.ModelB)
	v.SetDefault("conversation.turns", d.Conversation.Turns)
	v.SetDefault("conversation.system_a", d.Conversation.SystemA)
	v.SetDefault("conversation.system_b", d.Conversation.SystemB)
	v.SetDefault("conversation.timeout", d.Conversation.Timeout)
}

// dropZeroTurns removes a turns = 0 read from config.toml. LoadConfig treats
// that value as unset, so the default applies here too.
func dropZeroTurns(settings map[string]any) {
	conv, ok := settings["conversation"].(map[string]any)
	if !ok {
		return
	}

	raw, ok := conv["turns"]
	if !ok {
		return
	}

	if n, err := cast.ToInt64E(raw); err == nil && n == 0 {
		delete(conv, "turns")
	}
}

// Settings is the fully resolved configuration for a single conversation run.
type Settings struct {
	Provider      string
	OllamaHost    string
	OpenAIBaseURL string
	OpenAIAPIKey  string

	ModelA  string
	ModelB  string
	Turns   uint
	SystemA string
	SystemB string
	Timeout time.Duration
}

// SettingsFromViper reads the resolved run settings out of v.
func SettingsFromViper(v *viper.Viper) (*Settings, error) {
	timeout, err := time.ParseDuration(v.GetString("conversation.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid conversation.timeout: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("conversation.timeout must be positive, got %s", timeout)
	}

	turns, err := cast.ToUintE(v.Get("conversation.turns"))
	if err != nil {
		return nil, fmt.Errorf("invalid conversation.turns: %w", err)
	}

	return &Settings{
		Provider:      strings.ToLower(v.GetString("provider.name")),
		OllamaHost:    v.GetString("ollama.host"),
		OpenAIBaseURL: v.GetString("openai.base_url"),
		OpenAIAPIKey:  v.GetString(KeyOpenAIAPIKey),

		ModelA:  v.GetString("conversation.model_a"),
		ModelB:  v.GetString("conversation.model_b"),
		Turns:   turns,
		SystemA: v.GetString("conversation.system_a"),
		SystemB: v.GetString("conversation.system_b"),
		Timeout: timeout,
	}, nil
}
