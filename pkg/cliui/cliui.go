// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, styled key/value output, markdown rendering) for duet commands.
package cliui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	NameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const markdownWrap = 80

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	var mu sync.Mutex

	go func() {
		defer close(stopped)

		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			lipgloss.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)
	<-stopped

	mu.Lock()
	lipgloss.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// KeyValue prints a styled "key = value" line. Empty values are shown dimmed
// as "(unset)".
func KeyValue(w io.Writer, key, value string) {
	rendered := ValueStyle.Render(value)
	if value == "" {
		rendered = DimStyle.Render("(unset)")
	}
	lipgloss.Fprintln(w, KeyStyle.Render(key)+" = "+rendered)
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// On failure the original content is returned along with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWrap),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}
