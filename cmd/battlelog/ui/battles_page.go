package ui

import (
	"fmt"
	"strings"

	"battlelog/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

// BattlesLoadedMsg carries one poll of read_battles.
type BattlesLoadedMsg struct {
	Battles []types.Battle
	Err     error
}

// BattlesPageModel lists battles, newest first.
type BattlesPageModel struct {
	battles []types.Battle
	cursor  int
	err     error
	loaded  bool
	styles  Styles
	width   int
	height  int
}

// NewBattlesPageModel creates an empty battles page.
func NewBattlesPageModel(styles Styles) BattlesPageModel {
	return BattlesPageModel{styles: styles}
}

// SetSize updates the page dimensions.
func (m *BattlesPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetBattles replaces the list, keeping the cursor on the same battle when it
// is still present.
func (m *BattlesPageModel) SetBattles(battles []types.Battle) {
	var selected int64
	if b, ok := m.Selected(); ok {
		selected = b.No
	}
	m.battles = battles
	m.loaded = true
	m.err = nil
	m.cursor = 0
	for i, b := range battles {
		if b.No == selected {
			m.cursor = i
			break
		}
	}
}

// Selected returns the battle under the cursor.
func (m BattlesPageModel) Selected() (types.Battle, bool) {
	if m.cursor < 0 || m.cursor >= len(m.battles) {
		return types.Battle{}, false
	}
	return m.battles[m.cursor], true
}

// Update handles list navigation and poll results.
func (m BattlesPageModel) Update(msg tea.Msg) (BattlesPageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case BattlesLoadedMsg:
		if msg.Err != nil {
			// Keep the last good list; the next poll may succeed.
			m.err = msg.Err
			return m, nil
		}
		m.SetBattles(msg.Battles)
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.battles)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			if len(m.battles) > 0 {
				m.cursor = len(m.battles) - 1
			}
		}
	}
	return m, nil
}

// View renders the page.
func (m BattlesPageModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Battles"))
	sb.WriteString("\n")

	switch {
	case !m.loaded && m.err == nil:
		sb.WriteString(m.styles.Muted.Render("Loading..."))
		sb.WriteString("\n")
	case len(m.battles) == 0 && m.loaded:
		sb.WriteString(m.styles.Muted.Render("No battles recorded yet. Press n to add one."))
		sb.WriteString("\n")
	default:
		table := NewSimpleTable("No", "Battle", "Location", "Region")
		for _, b := range m.battles {
			table.AddRow(fmt.Sprintf("%d", b.No), b.Title(), b.Location.Name, b.Location.Region)
		}
		table.Selected = m.cursor
		sb.WriteString(table.View(m.styles, m.height-8))
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Warning.Render("Refresh failed: " + m.err.Error()))
		sb.WriteString("\n")
	}
	return sb.String()
}
