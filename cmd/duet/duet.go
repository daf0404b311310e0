// Package duetcmder is the root duet command: it runs a conversation between
// two models and prints the transcript.
package duetcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/term"

	authcmder "github.com/papercomputeco/duet/cmd/duet/auth"
	configcmder "github.com/papercomputeco/duet/cmd/duet/config"
	versioncmder "github.com/papercomputeco/duet/cmd/version"
	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/config"
	"github.com/papercomputeco/duet/pkg/conversation"
	"github.com/papercomputeco/duet/pkg/credentials"
	"github.com/papercomputeco/duet/pkg/llm"
	"github.com/papercomputeco/duet/pkg/llm/provider"
	"github.com/papercomputeco/duet/pkg/logger"
	"github.com/papercomputeco/duet/pkg/tracing"
)

const duetLongDesc string = `Duet has two language models talk to each other.

Both models receive the same opening prompt. They then take turns, model A
first, each seeing the other's replies. Every turn is printed as
"<model>: <text>".

Models are served by a local Ollama server by default (OLLAMA_HOST), or by
an OpenAI-compatible API with --provider openai (OPENAI_API_KEY,
OPENAI_BASE_URL). Flag defaults can be persisted with 'duet config set'.

A prompt that matches a subcommand name (config, auth, version) runs that
subcommand. Put it after "--" to use it as a prompt: duet -- version

Examples:
  duet "Is a hot dog a sandwich?"
  duet --model-a llama2 --model-b mistral --turns 6 "Debate tabs vs spaces"
  duet -p openai --model-a gpt-4o-mini --model-b gpt-4o "Plan a heist"
  duet --option temperature=0.2 --system-a "You are a pirate." "Ahoy"
  duet -n 2 -- version`

const duetShortDesc string = "Duet - two models, one conversation"

type duetCommander struct {
	provider      string
	ollamaHost    string
	openAIBaseURL string
	apiKey        string
	modelA        string
	modelB        string
	turns         uint
	systemA       string
	systemB       string
	timeout       time.Duration

	options   []string
	format    string
	render    bool
	logFile   string
	envFile   string
	traceFile string

	viper *viper.Viper
}

func NewDuetCmd() *cobra.Command {
	cmder := &duetCommander{}

	cmd := &cobra.Command{
		Use:          "duet [flags] <prompt>",
		Short:        duetShortDesc,
		Long:         duetLongDesc,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			if err := config.LoadDotEnv(cmder.envFile); err != nil {
				return err
			}
			if err := validateFormat(cmder.format); err != nil {
				return err
			}

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ConversationFlags, config.ConversationFlagKeys())
			cmder.viper = v

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], configDir, debug)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .duet/ config directory")

	fs := config.ConversationFlags
	config.AddStringFlag(cmd, fs, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, fs, config.FlagOllamaHost, &cmder.ollamaHost)
	config.AddStringFlag(cmd, fs, config.FlagOpenAIBaseURL, &cmder.openAIBaseURL)
	config.AddStringFlag(cmd, fs, config.FlagAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, fs, config.FlagModelA, &cmder.modelA)
	config.AddStringFlag(cmd, fs, config.FlagModelB, &cmder.modelB)
	config.AddUintFlag(cmd, fs, config.FlagTurns, &cmder.turns)
	config.AddStringFlag(cmd, fs, config.FlagSystemA, &cmder.systemA)
	config.AddStringFlag(cmd, fs, config.FlagSystemB, &cmder.systemB)
	config.AddDurationFlag(cmd, fs, config.FlagTimeout, &cmder.timeout)

	cmd.Flags().StringArrayVarP(&cmder.options, "option", "o", nil, "Generation option as key=value, repeatable (values parsed as JSON when valid)")
	cmd.Flags().StringVarP(&cmder.format, "format", "f", formatText, "Transcript output format (text, json, yaml)")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render each response as markdown (text format only)")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", config.DefaultEnvFile, "Load environment variables from this file if present")
	cmd.Flags().StringVar(&cmder.traceFile, "trace-file", "", "Append OpenTelemetry spans for each turn to this file as JSON")

	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

func (c *duetCommander) run(ctx context.Context, out, errOut io.Writer, prompt, configDir string, debug bool) error {
	settings, err := config.SettingsFromViper(c.viper)
	if err != nil {
		return err
	}

	options, err := parseOptions(c.options)
	if err != nil {
		return err
	}

	log, closeLog, err := c.newLogger(errOut, debug)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(settings, configDir)
	if err != nil {
		return err
	}

	log.Debug("resolved settings",
		"provider", settings.Provider,
		"model_a", settings.ModelA,
		"model_b", settings.ModelB,
		"turns", settings.Turns,
		"timeout", settings.Timeout,
	)

	tracer, closeTrace, err := c.newTracer()
	if err != nil {
		return err
	}
	defer closeTrace()

	orch := conversation.New(
		conversation.WithClient(client),
		conversation.WithLogger(log),
		conversation.WithTracer(tracer),
	)
	params := conversation.Params{
		ModelA:  settings.ModelA,
		ModelB:  settings.ModelB,
		Prompt:  prompt,
		Turns:   int(settings.Turns),
		SystemA: settings.SystemA,
		SystemB: settings.SystemB,
		Options: options,
		Timeout: settings.Timeout,
	}

	var transcript llm.Transcript
	converse := func() error {
		var err error
		transcript, err = orch.Converse(ctx, params)
		return err
	}

	if isTerminal(errOut) && !debug {
		msg := fmt.Sprintf("%s and %s talking for %d turns", settings.ModelA, settings.ModelB, settings.Turns)
		err = cliui.Step(errOut, msg, converse)
	} else {
		err = converse()
	}
	if err != nil {
		log.Debug("conversation failed", "error", err)
		return err
	}

	return writeTranscript(out, transcript, c.format, c.render)
}

// newLogger logs to errOut, pretty when it supports color, and additionally
// as JSON to --log-file when set.
func (c *duetCommander) newLogger(errOut io.Writer, debug bool) (*slog.Logger, func(), error) {
	pretty := termenv.NewOutput(errOut).ColorProfile() != termenv.Ascii
	base := logger.New(
		logger.WithWriter(errOut),
		logger.WithDebug(debug),
		logger.WithPretty(pretty),
	)

	if c.logFile == "" {
		return base, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLog := logger.New(
		logger.WithWriter(f),
		logger.WithJSON(true),
		logger.WithDebug(true),
	)

	return logger.Multi(base, fileLog), func() { _ = f.Close() }, nil
}

// newTracer appends spans to --trace-file when set.
func (c *duetCommander) newTracer() (trace.Tracer, func(), error) {
	if c.traceFile == "" {
		return tracing.Nop(), func() {}, nil
	}

	f, err := os.OpenFile(c.traceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening trace file: %w", err)
	}

	tp, err := tracing.NewProvider(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}

	return tp.Tracer(), func() {
		_ = tp.Shutdown(context.Background())
		_ = f.Close()
	}, nil
}

func newClient(s *config.Settings, configDir string) (provider.Client, error) {
	cfg := provider.Config{}

	switch s.Provider {
	case provider.Ollama:
		cfg.BaseURL = s.OllamaHost
	case provider.OpenAI:
		mgr, err := credentials.NewManager(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		key, err := mgr.ResolveKey(provider.OpenAI, s.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		cfg.BaseURL = s.OpenAIBaseURL
		cfg.APIKey = key
	}

	return provider.New(s.Provider, cfg)
}

// parseOptions turns key=value pairs into a generation options map. Values
// that parse as JSON keep their JSON type; anything else is a string.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	options := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --option %q: expected key=value", pair)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		options[key] = value
	}

	return options, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
