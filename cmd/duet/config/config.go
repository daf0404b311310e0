// Package configcmder provides the config command for managing persistent
// duet defaults stored in the .duet/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/config"
)

const configLongDesc string = `Manage persistent duet configuration.

Configuration is stored as config.toml in the .duet/ directory and provides
default values for the conversation flags. CLI flags and environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  provider.name, ollama.host, openai.base_url,
  conversation.model_a, conversation.model_b, conversation.turns,
  conversation.system_a, conversation.system_b, conversation.timeout

API keys are never stored here; use 'duet auth' instead.

Examples:
  duet config set conversation.model_b mistral
  duet config set conversation.turns 6
  duet config get provider.name
  duet config list`

const configShortDesc string = "Manage persistent duet configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		lipgloss.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	lipgloss.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
