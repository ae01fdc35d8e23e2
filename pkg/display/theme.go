package display

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors and symbols for terminal output using lipgloss.
type Theme struct {
	Bold   lipgloss.Style
	Cyan   lipgloss.Style
	Green  lipgloss.Style
	Yellow lipgloss.Style
	Dim    lipgloss.Style
	Red    lipgloss.Style

	Check  string
	Cross  string
	Arrow  string
	Bullet string
}

func DefaultTheme() *Theme {
	return &Theme{
		Bold:   lipgloss.NewStyle().Bold(true),
		Cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Green:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Dim:    lipgloss.NewStyle().Faint(true),
		Red:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		Check:  "✓",
		Cross:  "✗",
		Arrow:  "→",
		Bullet: "•",
	}
}

func (t *Theme) Styled(style lipgloss.Style, text string) string {
	return style.Render(text)
}

// Status styles a summary status cell.
func (t *Theme) Status(status string) string {
	switch status {
	case StatusOK:
		return t.Styled(t.Green, status)
	case StatusFailed:
		return t.Styled(t.Red, status)
	case StatusCanceled:
		return t.Styled(t.Yellow, status)
	}
	return status
}

// Summary status values.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)
