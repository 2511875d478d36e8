package tui

import (
	"github.com/charmbracelet/lipgloss"

	"buildbench/internal/progress"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("#5B8DEF"))
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F7B801"))
	busyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F7B801"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	kindStyles = map[progress.Kind]lipgloss.Style{
		progress.KindAnnounce:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		progress.KindStderr:      lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		progress.KindSucceeded:   lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		progress.KindFailed:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		progress.KindSpawnFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		progress.KindSkipped:     lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")),
		progress.KindComplete:    lipgloss.NewStyle().Bold(true),
		progress.KindNotice:      lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		progress.KindError:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

func renderMessage(m progress.Message) string {
	if style, ok := kindStyles[m.Kind]; ok {
		return style.Render(m.Text)
	}
	return m.Text
}
