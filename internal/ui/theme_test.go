package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/honeywatch/internal/state"
)

func TestGetThemeFallsBack(t *testing.T) {
	if got := GetTheme("does-not-exist").Name; got != "Nightfox" {
		t.Fatalf("fallback theme = %q, want Nightfox", got)
	}
	for _, name := range ThemeNames() {
		if got := GetTheme(name).Name; got != name {
			t.Fatalf("GetTheme(%q).Name = %q", name, got)
		}
	}
}

func TestNextThemeCycles(t *testing.T) {
	seen := map[string]bool{}
	name := ThemeNames()[0]
	for range ThemeNames() {
		seen[name] = true
		name = NextTheme(name)
	}
	if name != ThemeNames()[0] {
		t.Fatalf("cycle did not wrap, ended at %q", name)
	}
	if len(seen) != len(ThemeNames()) {
		t.Fatalf("cycle visited %d themes, want %d", len(seen), len(ThemeNames()))
	}
	if got := NextTheme("unknown"); got != ThemeNames()[0] {
		t.Fatalf("NextTheme(unknown) = %q", got)
	}
}

func TestLevelStyle(t *testing.T) {
	theme := GetTheme("Slate")
	styles := theme.Styles()

	if got := styles.LevelStyle("warn").GetForeground(); got != lipgloss.Color(theme.LevelColors["WARN"]) {
		t.Fatalf("warn foreground = %v", got)
	}
	if got := styles.LevelStyle("TRACE").GetForeground(); got != lipgloss.Color(theme.Text) {
		t.Fatalf("unknown level should use text color, got %v", got)
	}
}

func TestPhaseLabel(t *testing.T) {
	cases := []struct {
		snap state.SyncState
		want string
	}{
		{state.SyncState{Phase: state.PhaseIdle}, "Idle"},
		{state.SyncState{Phase: state.PhaseFetchingStats}, "Fetching Stats"},
		{state.SyncState{Phase: state.PhaseTryingCandidate, CandidateIndex: 0, Candidates: []string{"a", "b"}}, "Trying candidate 1/2"},
		{state.SyncState{Phase: state.PhaseTryingCandidate}, "Trying Candidate"},
	}
	for _, tc := range cases {
		if got := phaseLabel(tc.snap); got != tc.want {
			t.Fatalf("phaseLabel(%v) = %q, want %q", tc.snap.Phase, got, tc.want)
		}
	}
}
