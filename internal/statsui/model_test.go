package statsui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/leetboard/internal/facet"
	"github.com/verte-zerg/leetboard/internal/model"
	"github.com/verte-zerg/leetboard/internal/snapshot"
)

type fakeLoader struct {
	result snapshot.LoadResult
	calls  int
}

func (l *fakeLoader) LoadAll() (snapshot.LoadResult, error) {
	l.calls++
	return l.result, nil
}

func duelRecord(identity int64, name string) model.PlayerRecord {
	return model.PlayerRecord{
		Identity:    identity,
		DisplayName: name,
		Stats: model.Metrics{
			"ct_opening_aggression_success_rate": 0.3, "ct_opening_duel_success_percentage": 48,
			"t_opening_aggression_success_rate": 0.35, "t_opening_duel_success_percentage": 52,
		},
		FetchedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestModel(t *testing.T, loader *fakeLoader, facets ...string) *Model {
	t.Helper()
	fs, err := facet.Resolve(facets)
	require.NoError(t, err)
	m := NewModel(loader, fs, model.ShowConfig{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestDashboardTabs(t *testing.T) {
	loader := &fakeLoader{result: snapshot.LoadResult{Records: []model.PlayerRecord{duelRecord(1, "narf")}}}
	m := newTestModel(t, loader, "duel", "trade")

	view := m.View()
	require.Contains(t, view, "Duels")
	require.Contains(t, view, "Trades")
	require.Contains(t, view, "ct_opening_duel_success_percentage")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 1, m.activeTab)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, 0, m.activeTab)
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, 1, m.activeTab)
}

func TestDashboardWarningsInFooter(t *testing.T) {
	loader := &fakeLoader{result: snapshot.LoadResult{Records: []model.PlayerRecord{duelRecord(1, "narf")}}}
	m := newTestModel(t, loader, "trade")

	view := m.View()
	require.Contains(t, view, "1 warning(s)")
	require.Contains(t, view, "No players to show.")
}

func TestDashboardPlayerFilter(t *testing.T) {
	loader := &fakeLoader{result: snapshot.LoadResult{Records: []model.PlayerRecord{
		duelRecord(1, "narf"),
		duelRecord(2, "julian"),
	}}}
	m := newTestModel(t, loader, "duel")

	m.Update(keyRunes("/"))
	require.True(t, m.filterMode)
	m.Update(keyRunes("julian"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.filterMode)
	require.Equal(t, []string{"julian"}, m.cfg.Players)
	require.Contains(t, m.viewports[0].View(), "julian")
	require.NotContains(t, m.renderFilterSummary(), "all")

	m.Update(keyRunes("/"))
	m.filterInput.SetValue("nobody")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.filterMode)
	require.Contains(t, m.filterError, "nobody")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.filterMode)
	require.Equal(t, []string{"julian"}, m.cfg.Players)
}

func TestDashboardReload(t *testing.T) {
	loader := &fakeLoader{}
	m := newTestModel(t, loader, "duel")
	require.Contains(t, m.View(), "No player records found")

	loader.result = snapshot.LoadResult{Records: []model.PlayerRecord{duelRecord(1, "narf")}}
	m.Update(keyRunes("r"))
	require.Equal(t, 2, loader.calls)
	require.Contains(t, m.View(), "narf")
}

func TestParsePlayers(t *testing.T) {
	require.Equal(t, []string{"narf", "julian"}, ParsePlayers(" narf, ,julian,narf "))
	require.Empty(t, ParsePlayers(""))
}

func TestTruncateLine(t *testing.T) {
	require.Equal(t, "abcdefg", truncateLine("abcdefg", 10))
	require.Equal(t, "abcd...", truncateLine("abcdefghij", 7))
	require.Equal(t, "ab", truncateLine("abcdef", 2))
	require.True(t, strings.HasPrefix(fitLines("a\nb\nc", 3, 2), "a  \nb  "))
}
