package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/honeywatch/internal/logtail"
)

// logState holds the logs view state.
type logState struct {
	entries []logtail.Entry
	err     error
	follow  bool
	loaded  bool
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// refreshLogs reads the tail of the log file off the update loop.
func (m *Model) refreshLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	path := m.logPath
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogTailLines)
		return logsMsg{entries: entries, err: err}
	}
}

// updateLogViewport resizes the log viewport and re-renders its content.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	height := maxInt(m.contentHeight()-2, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(m.width, height)
	}
	m.logViewport.Width = m.width
	m.logViewport.Height = height
	m.logViewport.SetContent(m.renderLogContent())

	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view: title, entries, status line.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	title := styles.AccentText.Bold(true).Render("Log") + " " +
		styles.MutedText.Render(truncateMiddle(m.logPath, maxInt(m.width-6, 10)))
	return title + "\n" + m.logViewport.View() + "\n" + m.renderLogStatus()
}

func (m Model) renderLogStatus() string {
	styles := m.theme.Styles()
	mode := ternary(m.logState.follow, "Following", "Paused")
	modeStyle := styles.SuccessText
	if !m.logState.follow {
		modeStyle = styles.WarningText
	}
	return modeStyle.Render(mode) + styles.FaintText.Render(fmt.Sprintf("  %d entries", len(m.logState.entries)))
}

// renderLogContent renders the parsed entries, one per line.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles()
	switch {
	case m.logPath == "":
		return styles.MutedText.Render("File logging is disabled. Set log_file to enable it.")
	case m.logState.err != nil:
		return styles.DangerText.Render("Unable to read log: " + m.logState.err.Error())
	case !m.logState.loaded:
		return styles.MutedText.Render("Reading log...")
	case len(m.logState.entries) == 0:
		return styles.MutedText.Render("Log is empty.")
	}

	lines := make([]string, len(m.logState.entries))
	for i, e := range m.logState.entries {
		lines[i] = formatLogEntry(e, styles)
	}
	return strings.Join(lines, "\n")
}

// formatLogEntry colors one entry by level. Lines that were not slog JSON
// are shown as they are.
func formatLogEntry(e logtail.Entry, styles Styles) string {
	if e.Level == "" && e.Time.IsZero() {
		return styles.Text.Render(e.Message)
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.MutedText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(styles.LevelStyle(e.Level).Render(padRight(e.Level, 5)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		b.WriteString(styles.FaintText.Render(" " + a.Key + "=" + a.Value))
	}
	return b.String()
}

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.refreshLogs()
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		m.logState.follow = false
	}

	return m, nil
}
