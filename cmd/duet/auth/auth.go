// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/credentials"
)

const authLongDesc string = `Store API credentials for hosted model providers.

Credentials are stored in credentials.toml in the .duet/ directory and are
used when neither --api-key nor the provider's environment variable is set.
The key is passed through to the provider as-is.

Supported providers: openai

Examples:
  duet auth openai              Prompt for an OpenAI API key
  duet auth --list              List stored credentials
  duet auth --remove openai     Remove stored OpenAI credentials
  echo $KEY | duet auth openai  Pipe API key from stdin`

const authShortDesc string = "Store API credentials for hosted model providers"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return runAuth(cmd.InOrStdin(), out, args[0], configDir)
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List stored credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func runAuth(in io.Reader, out io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	if !credentials.IsSupportedProvider(provider) {
		return fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}

	apiKey, err := readAPIKey(in, out, provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	envVar := credentials.EnvVarForProvider(provider)
	lipgloss.Fprintf(out, "\n  %s Stored %s credentials %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(overridden by "+envVar+" or --api-key)"),
	)

	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	providers, err := mgr.ListProviders()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		lipgloss.Fprintf(out, "\n  %s No stored credentials.\n", cliui.DimStyle.Render("●"))
		lipgloss.Fprintf(out, "  Use 'duet auth <provider>' to store credentials.\n")
		lipgloss.Fprintf(out, "  Supported providers: %s\n\n", strings.Join(credentials.SupportedProviders(), ", "))
		return nil
	}

	lipgloss.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored credentials"))
	for _, p := range providers {
		envVar := credentials.EnvVarForProvider(p)
		if envVar != "" {
			lipgloss.Fprintf(out, "  %s  %s  %s\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("→ "+envVar),
			)
		} else {
			lipgloss.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p))
		}
	}
	lipgloss.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, provider, configDir string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	lipgloss.Fprintf(out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey prompts with hidden input when in is a terminal and otherwise
// reads the first line of in.
func readAPIKey(in io.Reader, out io.Writer, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		envVar := credentials.EnvVarForProvider(provider)
		lipgloss.Fprintf(out, "Enter API key for %s (%s): ", provider, envVar)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		lipgloss.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}

		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
