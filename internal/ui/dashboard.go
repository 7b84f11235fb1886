package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/honeywatch/internal/collector"
	"github.com/five82/honeywatch/internal/state"
)

// renderHeader renders the one-line status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{
		bg.Render("honeywatch", styles.Logo),
		m.connectionIndicator(styles, bg),
	}

	if snap.ActiveEndpoint != "" {
		if compact {
			parts = append(parts, bg.Render(truncateMiddle(snap.ActiveEndpoint, 32), styles.Text))
		} else {
			parts = append(parts,
				bg.Render("Connected at:", styles.MutedText)+bg.Space()+
					bg.Render(snap.ActiveEndpoint, styles.Text))
		}
	}

	if snap.HasData() {
		parts = append(parts,
			bg.Render("Last update:", styles.MutedText)+bg.Space()+
				bg.Render(formatTimestamp(snap.LastUpdate), styles.Text))
	}

	if snap.InFlight || m.retryPending {
		parts = append(parts, bg.Render("• Updating...", styles.WarningText))
	}

	if m.showPhase {
		parts = append(parts, bg.Render(phaseLabel(snap), styles.InfoText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) connectionIndicator(styles Styles, bg BgStyle) string {
	snap := m.snapshot
	switch {
	case snap.Loading && !snap.HasData():
		return bg.Render("● CONNECTING", styles.WarningText.Bold(true))
	case snap.IsOffline():
		return bg.Render("● OFFLINE", styles.DangerText)
	case snap.ErrorMessage != "":
		return bg.Render("● DEGRADED", styles.WarningText.Bold(true))
	default:
		return bg.Render("● LIVE", styles.SuccessText)
	}
}

// phaseLabel describes where the current cycle is, e.g.
// "Trying candidate 2/3".
func phaseLabel(snap state.SyncState) string {
	if snap.Phase == state.PhaseTryingCandidate && len(snap.Candidates) > 0 {
		return fmt.Sprintf("Trying candidate %d/%d", snap.CandidateIndex+1, len(snap.Candidates))
	}
	return titleCase(snap.Phase.String())
}

// renderDashboard renders the summary cards and the records table.
func (m Model) renderDashboard() string {
	var sections []string

	if banner := m.renderStaleBanner(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, m.renderCards())

	if len(m.snapshot.Records) == 0 {
		sections = append(sections, m.renderEmpty())
	} else {
		sections = append(sections, m.renderTableHeader(), m.tableViewport.View())
	}
	return strings.Join(sections, "\n")
}

// renderStaleBanner reports a failed refresh while older data stays on
// screen. It is empty when the last cycle succeeded.
func (m Model) renderStaleBanner() string {
	snap := m.snapshot
	if snap.ErrorMessage == "" || !snap.HasData() {
		return ""
	}
	msg := fmt.Sprintf("Showing data from %s. %s", formatTimestamp(snap.LastUpdate), snap.ErrorMessage)
	if m.keys.Retry.Enabled() {
		msg += " [r to retry]"
	}
	return m.theme.Styles().Banner.Width(m.width).Render(truncate(msg, maxInt(m.width-2, 1)))
}

// renderCards renders the three summary cards side by side.
func (m Model) renderCards() string {
	styles := m.theme.Styles()
	stats := m.snapshot.Stats
	cardWidth := maxInt(m.width/3-2, 12)

	status, statusStyle := m.statusLabel(styles)
	cards := []string{
		renderCard(styles, cardWidth, "Total attempts", strconv.FormatInt(stats.TotalAttempts, 10), styles.Text.Bold(true)),
		renderCard(styles, cardWidth, "Unique IPs", strconv.FormatInt(stats.UniqueIPs, 10), styles.Text.Bold(true)),
		renderCard(styles, cardWidth, "Status", status, statusStyle),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func renderCard(styles Styles, width int, label, value string, valueStyle lipgloss.Style) string {
	return styles.Card.Width(width).Render(
		styles.MutedText.Render(label) + "\n" + valueStyle.Render(value),
	)
}

func (m Model) statusLabel(styles Styles) (string, lipgloss.Style) {
	switch {
	case m.snapshot.IsOffline():
		return "Offline", styles.DangerText
	case m.snapshot.ErrorMessage != "":
		return "Degraded", styles.WarningText
	default:
		return "Active", styles.SuccessText
	}
}

// renderEmpty fills the table area while no attempts exist.
func (m Model) renderEmpty() string {
	styles := m.theme.Styles()
	text := styles.Text.Bold(true).Render("No attempts recorded yet") + "\n" +
		styles.MutedText.Render(fmt.Sprintf("Honeypot waiting for connections on port %d", honeypotPort))
	return lipgloss.Place(m.width, m.tableHeight()+1, lipgloss.Center, lipgloss.Center, text)
}

type tableColumns struct {
	id, ip, data, ts int
}

// columnsFor sizes the table for width. The data column takes whatever the
// fixed columns leave over.
func columnsFor(width int, records []collector.AttemptRecord) tableColumns {
	ip := columnIPWidth
	for _, rec := range records {
		if n := len([]rune(rec.IP)); n > ip {
			ip = min(n, columnIPWideWidth)
		}
	}
	c := tableColumns{id: columnIDWidth, ip: ip, ts: columnTimestampWidth}
	c.data = maxInt(width-c.id-c.ip-c.ts-3*columnGap, minDataWidth)
	return c
}

func (c tableColumns) row(id, ip, data, ts string) string {
	gap := strings.Repeat(" ", columnGap)
	return padRight(truncate(id, c.id), c.id) + gap +
		padRight(truncate(ip, c.ip), c.ip) + gap +
		padRight(truncate(data, c.data), c.data) + gap +
		ts
}

func (m Model) renderTableHeader() string {
	cols := columnsFor(m.width, m.snapshot.Records)
	return m.theme.Styles().ColumnHeader.Render(cols.row("ID", "IP", "Connection data", "Timestamp"))
}

// renderRows renders every record in collector order.
func (m Model) renderRows() string {
	records := m.snapshot.Records
	if len(records) == 0 {
		return ""
	}
	styles := m.theme.Styles()
	cols := columnsFor(m.width, records)
	alt := styles.AltRow.Width(m.width)

	lines := make([]string, len(records))
	for i, rec := range records {
		line := cols.row(
			"#"+strconv.FormatInt(rec.ID, 10),
			rec.IP,
			dataPreview(rec.Data),
			formatTimestamp(rec.Timestamp),
		)
		if i%2 == 1 {
			line = alt.Render(line)
		} else {
			line = styles.Text.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// tableHeight is the number of record rows that fit under the cards.
func (m Model) tableHeight() int {
	h := m.contentHeight() - cardHeight - 1
	if m.renderStaleBanner() != "" {
		h--
	}
	return maxInt(h, 1)
}

// updateTableViewport resizes the table viewport and refreshes its rows.
func (m *Model) updateTableViewport() {
	if !m.ready {
		return
	}
	if m.tableViewport.Width == 0 {
		m.tableViewport = viewport.New(m.width, m.tableHeight())
	}
	m.tableViewport.Width = m.width
	m.tableViewport.Height = m.tableHeight()
	m.tableViewport.SetContent(m.renderRows())
}
