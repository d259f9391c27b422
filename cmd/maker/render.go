package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Section title style - bold cyan
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// field is one label/value line of a text report.
type field struct {
	label string
	value string
}

func kv(label, format string, args ...any) field {
	return field{label: label, value: fmt.Sprintf(format, args...)}
}

// renderFields lays fields out as an aligned, boxed block under title.
func renderFields(title string, fields []field) string {
	width := 0
	for _, fl := range fields {
		width = max(width, len(fl.label))
	}
	lines := make([]string, 0, len(fields)+1)
	lines = append(lines, titleStyle.Render(title))
	for _, fl := range fields {
		pad := strings.Repeat(" ", width-len(fl.label))
		lines = append(lines, labelStyle.Render(fl.label)+pad+"  "+valueStyle.Render(fl.value))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// emit writes v as JSON, or calls text for the text format.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func percent(p float64) string {
	return fmt.Sprintf("%.4f%%", p*100)
}
