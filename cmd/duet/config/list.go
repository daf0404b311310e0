package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key and its current value from the config.toml
file stored in the .duet/ directory, with defaults filled in.

Examples:
  duet config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(w io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger.GetTarget())

	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		cliui.KeyValue(w, key, value)
	}

	return nil
}
