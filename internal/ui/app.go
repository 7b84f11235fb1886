package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/honeywatch/internal/prefs"
	"github.com/five82/honeywatch/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewDashboard View = iota
	ViewLogs
)

// StateSource provides copies of the sync state. Implemented by *state.Store.
type StateSource interface {
	Snapshot() state.SyncState
}

// Options configures the UI.
type Options struct {
	Store StateSource
	// Trigger requests an immediate poll cycle. Nil disables the retry key.
	Trigger func()
	// LogPath is the honeywatch log file shown in the logs view.
	LogPath     string
	RefreshTick time.Duration
	ThemeName   string
	PrefsPath   string
	ShowPhase   bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	store       StateSource
	trigger     func()
	logPath     string
	prefsPath   string
	refreshTick time.Duration

	theme       Theme
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	showPhase   bool

	snapshot state.SyncState

	// retryFrom is the cycle that was current when retry was pressed; the
	// retry is pending until a different cycle shows up.
	retryPending bool
	retryFrom    string

	tableViewport viewport.Model
	logViewport   viewport.Model
	logState      logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	refresh := opts.RefreshTick
	if refresh <= 0 {
		refresh = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(themeName)
	m := Model{
		store:       opts.Store,
		trigger:     opts.Trigger,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		refreshTick: refresh,
		theme:       theme,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		currentView: ViewDashboard,
		showPhase:   opts.ShowPhase,
		snapshot:    state.SyncState{Loading: true},
		logState:    logState{follow: true},
	}
	if m.trigger == nil {
		m.keys.Retry.SetEnabled(false)
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.refreshTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.updateTableViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.SyncState(msg)
		if m.retryPending && m.snapshot.CycleID != m.retryFrom {
			m.retryPending = false
		}
		m.updateTableViewport()
		return m, nil

	case logsMsg:
		m.logState.entries = msg.entries
		m.logState.err = msg.err
		m.logState.loaded = true
		m.updateLogViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.savePrefs()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.TogglePhase):
		m.showPhase = !m.showPhase
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Retry):
		m.trigger()
		m.retryPending = true
		m.retryFrom = m.snapshot.CycleID
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case key.Matches(msg, m.keys.ViewDashboard), key.Matches(msg, m.keys.Escape):
		m.currentView = ViewDashboard
		return m, nil
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

// handleDashboardKey scrolls the records table.
func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vp := &m.tableViewport
	switch {
	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	case key.Matches(msg, m.keys.PageDown):
		vp.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		vp.PageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		vp.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		vp.HalfPageUp()
	}
	return m, nil
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}

	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.refreshTick))
	return m, tea.Batch(cmds...)
}

func (m *Model) applyTheme() {
	styles := m.theme.Styles()
	m.spinner.Style = styles.AccentText
	m.help.Styles.ShortKey = styles.AccentText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, ShowPhase: m.showPhase})
}

// renderMain renders header, the active view, and the key hint footer.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	body := m.renderContent()
	b.WriteString(lipgloss.NewStyle().
		Width(m.width).
		Height(m.contentHeight()).
		MaxHeight(m.contentHeight()).
		Render(body))
	b.WriteString("\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

// renderContent picks the body for the current view and sync state.
func (m Model) renderContent() string {
	if m.currentView == ViewLogs {
		return m.renderLogs()
	}
	switch {
	case m.snapshot.Loading:
		return m.renderLoading()
	case m.snapshot.ErrorMessage != "" && !m.snapshot.HasData():
		return m.renderError()
	default:
		return m.renderDashboard()
	}
}

func (m Model) renderFooter() string {
	return m.theme.Styles().Footer.Width(m.width).Render(m.help.View(m.keys))
}

// contentHeight is the space between the header and footer lines.
func (m Model) contentHeight() int {
	return maxInt(m.height-2, 1)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.SyncState

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store StateSource) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
