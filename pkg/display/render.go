package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"preload/pkg/common"
)

// FormatOutput renders structured data from an Output struct as text.
func FormatOutput(out *common.Output, theme *Theme) string {
	if out == nil {
		return ""
	}
	var sb strings.Builder

	if out.Message != "" {
		sb.WriteString(out.Message + "\n")
	}

	for _, kv := range out.KV {
		fmt.Fprintf(&sb, "%-12s %s\n", kv.Key+":", kv.Value)
	}

	if out.Table != nil {
		sb.WriteString(formatTable(out.Table, theme))
	}

	for _, b := range out.Blocks {
		if b.Title != "" {
			sb.WriteString("\n" + theme.Styled(theme.Bold, b.Title) + "\n")
		}
		sb.WriteString(b.Body)
		if b.Body != "" && !strings.HasSuffix(b.Body, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatTable(t *common.Table, theme *Theme) string {
	if len(t.Header) == 0 {
		return ""
	}

	// Widths are measured on the unstyled text, cells may carry ANSI styling.
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, style func(string) string) {
		var line strings.Builder
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			pad := widths[i] - lipgloss.Width(cell)
			line.WriteString(style(cell) + strings.Repeat(" ", pad) + "  ")
		}
		sb.WriteString(strings.TrimRight(line.String(), " ") + "\n")
	}

	writeRow(t.Header, func(s string) string { return theme.Styled(theme.Bold, s) })

	totalWidth := 0
	for _, w := range widths {
		totalWidth += w + 2
	}
	sb.WriteString(strings.Repeat("-", totalWidth-2) + "\n")

	for _, row := range t.Rows {
		writeRow(row, func(s string) string { return s })
	}
	return sb.String()
}
