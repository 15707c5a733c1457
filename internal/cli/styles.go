// Package cli holds the terminal UIs behind the relaybot commands.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const Logo = "📨"
const Version = "0.3.0"

var (
	Accent = lipgloss.Color("#25D366")
	Subtle = lipgloss.Color("#555555")
	Green  = lipgloss.Color("#04B575")
	Red    = lipgloss.Color("#FF4444")

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	BoldStyle  = lipgloss.NewStyle().Bold(true)
	BotLabel   = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	UserLabel  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AAAAAA"))
	ErrStyle   = lipgloss.NewStyle().Foreground(Red)
	OkStyle    = lipgloss.NewStyle().Foreground(Green).Bold(true)
	DimStyle   = lipgloss.NewStyle().Foreground(Subtle)

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Accent).
			Padding(0, 2).
			MarginLeft(2)
)

func StatusBadge(ok bool) string {
	if ok {
		return OkStyle.Render("✓")
	}
	return DimStyle.Render("✗")
}

// RenderBanner returns the boxed title shown on the chat welcome screen.
func RenderBanner() string {
	lines := []string{
		TitleStyle.Render(Logo + " relaybot v" + Version),
		DimStyle.Render("Talk to the backend the way a relayed chat would."),
	}
	return bannerStyle.Render(strings.Join(lines, "\n")) + "\n"
}
