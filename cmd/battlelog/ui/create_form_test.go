package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"battlelog/internal/form"
	"battlelog/internal/resolver"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestForm(t *testing.T, gw *fakeGateway) (CreateFormModel, *form.Controller) {
	t.Helper()
	ctrl := form.New(gw, resolver.AutoConfirm{}, form.Hooks{})
	t.Cleanup(ctrl.Close)

	if err := ctrl.LoadOptions(context.Background()); err != nil {
		t.Fatalf("LoadOptions: %v", err)
	}
	ctrl.Wait()

	m := NewCreateFormModel(context.Background(), ctrl, DefaultStyles())
	m, _ = m.Update(FormChangedMsg{})
	return m, ctrl
}

func press(m CreateFormModel, keys ...tea.KeyMsg) CreateFormModel {
	for _, k := range keys {
		m, _ = m.Update(k)
	}
	return m
}

var tab = tea.KeyMsg{Type: tea.KeyTab}

func TestCreateForm_Defaults(t *testing.T) {
	m, _ := newTestForm(t, newFakeGateway())

	s := m.State()
	if s.PlaythroughIDNo != "pt-1" {
		t.Errorf("expected pt-1 selected, got %q", s.PlaythroughIDNo)
	}
	if s.Location.Region != "Kanto" {
		t.Errorf("expected the reversed region list to default to Kanto, got %q", s.Location.Region)
	}
	if s.BattleType != "Single" {
		t.Errorf("expected Single, got %q", s.BattleType)
	}
	if m.Focused() != "Location" {
		t.Errorf("expected focus on Location, got %q", m.Focused())
	}
}

func TestCreateForm_TypingUpdatesController(t *testing.T) {
	m, ctrl := newTestForm(t, newFakeGateway())

	m = press(m, runes("Route 1"))
	ctrl.Wait()
	m, _ = m.Update(FormChangedMsg{})

	s := m.State()
	if s.Location.Name != "Route 1" {
		t.Errorf("expected location Route 1, got %q", s.Location.Name)
	}
	if !s.LocationValid {
		t.Errorf("expected Route 1 to check as valid")
	}
	if !strings.Contains(m.View(), "✓") {
		t.Errorf("expected a valid flag in the view")
	}
}

func TestCreateForm_TabSkipsDisabledSlots(t *testing.T) {
	m, _ := newTestForm(t, newFakeGateway())

	want := []string{"Region", "Battle type", "Opponent class", "Opponent name", "Opponent 2", "Partner", "Round", "Lost", "Create Battle", "Playthrough", "Location"}
	for _, w := range want {
		m = press(m, tab)
		if m.Focused() != w {
			t.Fatalf("expected focus on %q, got %q", w, m.Focused())
		}
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.Focused() != "Playthrough" {
		t.Errorf("expected shift+tab to go back to Playthrough, got %q", m.Focused())
	}
}

func TestCreateForm_ToggleOpponent2(t *testing.T) {
	m, _ := newTestForm(t, newFakeGateway())

	m = press(m, tab, tab, tab, tab, tab)
	if m.Focused() != "Opponent 2" {
		t.Fatalf("expected focus on Opponent 2, got %q", m.Focused())
	}

	m = press(m, tea.KeyMsg{Type: tea.KeySpace})
	if !m.State().Opponent2.Enabled {
		t.Fatalf("expected opponent 2 enabled")
	}

	m = press(m, tab)
	if m.Focused() != "class" {
		t.Errorf("expected focus on the opponent 2 class, got %q", m.Focused())
	}
}

func TestCreateForm_SelectorsCycle(t *testing.T) {
	m, ctrl := newTestForm(t, newFakeGateway())

	m = press(m, tab, tea.KeyMsg{Type: tea.KeyRight})
	ctrl.Wait()
	if got := m.State().Location.Region; got != "Johto" {
		t.Errorf("expected Johto after right, got %q", got)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	ctrl.Wait()
	if got := m.State().Location.Region; got != "Kanto" {
		t.Errorf("expected the selector to wrap to Kanto, got %q", got)
	}

	m = press(m, tab, tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.State().BattleType; got != "Double" {
		t.Errorf("expected left to wrap to Double, got %q", got)
	}
}

func TestCreateForm_SubmitResets(t *testing.T) {
	gw := newFakeGateway()
	m, ctrl := newTestForm(t, gw)

	m = press(m, runes("Route 1"), tab, tab, tab, runes("Youngster"), tab, runes("Joey"))
	m = press(m, tab, tab, tab, runes("2"))
	ctrl.Wait()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatalf("expected ctrl+s to return a submit command")
	}
	msg := cmd().(SubmitDoneMsg)
	if msg.Err != nil {
		t.Fatalf("submit failed: %v", msg.Err)
	}
	if msg.Report.BattleNo != 1 {
		t.Errorf("expected battle 1, got %d", msg.Report.BattleNo)
	}

	if len(gw.created) != 1 {
		t.Fatalf("expected one battle created, got %d", len(gw.created))
	}
	p := gw.created[0]
	if p.Opponent1Class != "Youngster" || p.Opponent1Name != "Joey" || p.Round != 2 || p.LocationName != "Route 1" {
		t.Errorf("unexpected params %+v", p)
	}

	m, _ = m.Update(msg)
	s := m.State()
	if s.Opponent1.Trainer.Class != "" || s.Opponent1.Trainer.Name != "" {
		t.Errorf("expected opponent 1 cleared, got %+v", s.Opponent1.Trainer)
	}
	if s.Location.Name != "Route 1" || s.Round != 2 {
		t.Errorf("expected location and round kept, got %q / %d", s.Location.Name, s.Round)
	}
	if m.Focused() != "Opponent class" {
		t.Errorf("expected focus back on the opponent class, got %q", m.Focused())
	}
}

func TestCreateForm_SubmitFailureKeepsValues(t *testing.T) {
	gw := newFakeGateway()
	gw.err = errors.New("disk full")
	m, ctrl := newTestForm(t, gw)

	m = press(m, runes("Route 1"), tab, tab, tab, runes("Youngster"), tab, runes("Joey"))
	ctrl.Wait()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	msg := cmd().(SubmitDoneMsg)
	if msg.Err == nil {
		t.Fatalf("expected an error")
	}

	m, _ = m.Update(msg)
	if got := m.State().Opponent1.Trainer.Name; got != "Joey" {
		t.Errorf("expected the form to keep its values, got name %q", got)
	}
}
