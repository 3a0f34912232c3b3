package main

import (
	"fmt"
	"strings"

	"battlelog/internal/types"

	"github.com/charmbracelet/glamour"
)

// battleLine renders "<no>. <title> | <location> | <region>".
func battleLine(b types.Battle) string {
	return fmt.Sprintf("%d. %s | %s | %s", b.No, b.Title(), b.Location.Name, b.Location.Region)
}

// mdTable builds a markdown table. Pipes inside cells are escaped.
func mdTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(escapeCells(headers), " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	return sb.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func battlesMarkdown(battles []types.Battle) string {
	if len(battles) == 0 {
		return "_No battles recorded yet._\n"
	}
	rows := make([][]string, 0, len(battles))
	for _, b := range battles {
		rows = append(rows, []string{
			fmt.Sprintf("%d", b.No),
			b.Title(),
			b.Type,
			b.Location.Name,
			b.Location.Region,
			fmt.Sprintf("%d", b.Round),
		})
	}
	return "## Battles\n\n" + mdTable([]string{"No", "Battle", "Type", "Location", "Region", "Round"}, rows)
}

// renderMarkdown renders md for the terminal using the configured theme.
// When rendering fails the raw markdown is returned.
func renderMarkdown(md string) string {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(100)}
	switch cfg.UI.Theme {
	case "dark", "light":
		opts = append(opts, glamour.WithStylePath(cfg.UI.Theme))
	case "plain":
		opts = append(opts, glamour.WithStylePath("notty"))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
