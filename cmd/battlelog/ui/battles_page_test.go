package ui

import (
	"errors"
	"strings"
	"testing"

	"battlelog/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

func testBattles(nos ...int64) []types.Battle {
	out := make([]types.Battle, 0, len(nos))
	for _, no := range nos {
		out = append(out, types.Battle{
			No:        no,
			Type:      "Single",
			Opponent1: types.Trainer{Class: "Youngster", Name: "Joey"},
			Location:  types.Location{Name: "Route 1", Region: "Kanto"},
		})
	}
	return out
}

func TestBattlesPage_LoadingAndEmpty(t *testing.T) {
	m := NewBattlesPageModel(DefaultStyles())
	if !strings.Contains(m.View(), "Loading") {
		t.Errorf("expected loading text before the first poll")
	}

	m, _ = m.Update(BattlesLoadedMsg{Battles: []types.Battle{}})
	if !strings.Contains(m.View(), "No battles recorded yet") {
		t.Errorf("expected empty text, got:\n%s", m.View())
	}
}

func TestBattlesPage_Navigation(t *testing.T) {
	m := NewBattlesPageModel(DefaultStyles())
	m, _ = m.Update(BattlesLoadedMsg{Battles: testBattles(3, 2, 1)})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if b, _ := m.Selected(); b.No != 2 {
		t.Errorf("expected battle 2 after down, got %d", b.No)
	}

	m, _ = m.Update(runes("G"))
	if b, _ := m.Selected(); b.No != 1 {
		t.Errorf("expected battle 1 after G, got %d", b.No)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if b, _ := m.Selected(); b.No != 1 {
		t.Errorf("cursor should stop at the last battle, got %d", b.No)
	}

	m, _ = m.Update(runes("g"))
	if b, _ := m.Selected(); b.No != 3 {
		t.Errorf("expected battle 3 after g, got %d", b.No)
	}
}

func TestBattlesPage_RefreshKeepsSelection(t *testing.T) {
	m := NewBattlesPageModel(DefaultStyles())
	m, _ = m.Update(BattlesLoadedMsg{Battles: testBattles(3, 2, 1)})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})

	// A new battle arrives at the top.
	m, _ = m.Update(BattlesLoadedMsg{Battles: testBattles(4, 3, 2, 1)})
	if b, _ := m.Selected(); b.No != 2 {
		t.Errorf("expected selection to stay on battle 2, got %d", b.No)
	}

	// The selected battle disappears.
	m, _ = m.Update(BattlesLoadedMsg{Battles: testBattles(4, 3)})
	if b, _ := m.Selected(); b.No != 4 {
		t.Errorf("expected selection to reset to the top, got %d", b.No)
	}
}

func TestBattlesPage_ErrorKeepsList(t *testing.T) {
	m := NewBattlesPageModel(DefaultStyles())
	m, _ = m.Update(BattlesLoadedMsg{Battles: testBattles(1)})
	m, _ = m.Update(BattlesLoadedMsg{Err: errors.New("connection refused")})

	view := m.View()
	if !strings.Contains(view, "Youngster Joey") {
		t.Errorf("expected the previous list to remain, got:\n%s", view)
	}
	if !strings.Contains(view, "Refresh failed: connection refused") {
		t.Errorf("expected refresh warning, got:\n%s", view)
	}

	m, _ = m.Update(BattlesLoadedMsg{Battles: testBattles(1)})
	if strings.Contains(m.View(), "Refresh failed") {
		t.Errorf("warning should clear after a good poll")
	}
}
