package duetcmder

import (
	"encoding/json"
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/duet/pkg/cliui"
	"github.com/papercomputeco/duet/pkg/llm"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown --format %q (supported: %s, %s, %s)", format, formatText, formatJSON, formatYAML)
	}
}

func writeTranscript(w io.Writer, transcript llm.Transcript, format string, render bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(transcript)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(transcript); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, turn := range transcript {
		if !render {
			if _, err := fmt.Fprintln(w, turn.String()); err != nil {
				return err
			}
			continue
		}

		rendered, err := cliui.RenderMarkdown(turn.Text)
		if err != nil {
			return fmt.Errorf("rendering response: %w", err)
		}
		if _, err := lipgloss.Fprintf(w, "%s:\n%s", cliui.NameStyle.Render(turn.Speaker), rendered); err != nil {
			return err
		}
	}

	return nil
}
