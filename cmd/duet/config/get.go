package configcmder

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Reads the value for the given key from the config.toml file stored in the
.duet/ directory, falling back to the built-in default.

Examples:
  duet config get conversation.model_a
  duet config get ollama.host`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runGet(cmd.OutOrStdout(), args[0], configDir)
		},
	}

	return cmd
}

func runGet(w io.Writer, key, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKeyError(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger.GetTarget())

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	if value == "" {
		lipgloss.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.DimStyle.Render("<not set>"))
	} else {
		lipgloss.Fprintf(w, "  %s  %s\n\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
	}

	return nil
}
