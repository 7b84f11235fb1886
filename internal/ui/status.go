package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderLoading is shown until the first cycle settles.
func (m Model) renderLoading() string {
	styles := m.theme.Styles()
	return lipgloss.Place(
		m.width,
		m.contentHeight(),
		lipgloss.Center,
		lipgloss.Center,
		m.spinner.View()+" "+styles.Text.Render("Loading honeypot data..."),
	)
}

// renderError is shown when no cycle has ever succeeded and the last one
// failed.
func (m Model) renderError() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	width := min(maxInt(m.width-8, 20), 80)

	var b strings.Builder
	b.WriteString(styles.DangerText.Render("Could not connect to the collector"))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Width(width).Render(snap.ErrorMessage))

	if snap.ConsecutiveFailures > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.MutedText.Render(fmt.Sprintf("Failed cycles: %d", snap.ConsecutiveFailures)))
	}

	if m.keys.Retry.Enabled() {
		b.WriteString("\n\n")
		if snap.InFlight || m.retryPending {
			b.WriteString(m.spinner.View() + " " + styles.WarningText.Render("Retrying..."))
		} else {
			b.WriteString(styles.AccentText.Render("Press r to retry"))
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Danger)).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, box)
}
