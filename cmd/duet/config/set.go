package configcmder

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file stored in
the .duet/ directory. conversation.turns must be a non-negative integer and
conversation.timeout a Go duration such as 90s or 2m.

Examples:
  duet config set provider.name openai
  duet config set ollama.host http://gpu-box:11434
  duet config set conversation.system_a "You are a pirate."`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
	}

	return cmd
}

func runSet(w io.Writer, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKeyError(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger.GetTarget())

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	lipgloss.Fprintf(w, "  %s %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)

	return nil
}
