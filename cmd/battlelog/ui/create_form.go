package ui

import (
	"context"
	"strconv"
	"strings"

	"battlelog/internal/form"
	"battlelog/internal/resolver"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// FormChangedMsg tells the page to re-read the controller state.
type FormChangedMsg struct{}

// SubmitDoneMsg carries the result of a battle submission.
type SubmitDoneMsg struct {
	Report *resolver.Report
	Err    error
}

type field int

const (
	fieldPlaythrough field = iota
	fieldLocationName
	fieldRegion
	fieldBattleType
	fieldOpp1Class
	fieldOpp1Name
	fieldOpp2Enabled
	fieldOpp2Class
	fieldOpp2Name
	fieldPartnerEnabled
	fieldPartnerClass
	fieldPartnerName
	fieldRound
	fieldLost
	fieldSubmit
	numFields
)

var fieldLabels = [numFields]string{
	fieldPlaythrough:    "Playthrough",
	fieldLocationName:   "Location",
	fieldRegion:         "Region",
	fieldBattleType:     "Battle type",
	fieldOpp1Class:      "Opponent class",
	fieldOpp1Name:       "Opponent name",
	fieldOpp2Enabled:    "Opponent 2",
	fieldOpp2Class:      "  class",
	fieldOpp2Name:       "  name",
	fieldPartnerEnabled: "Partner",
	fieldPartnerClass:   "  class",
	fieldPartnerName:    "  name",
	fieldRound:          "Round",
	fieldLost:           "Lost",
}

func (f field) isText() bool {
	switch f {
	case fieldLocationName, fieldOpp1Class, fieldOpp1Name, fieldOpp2Class, fieldOpp2Name,
		fieldPartnerClass, fieldPartnerName, fieldRound:
		return true
	}
	return false
}

// trainerField maps a class or name field to its slot; isClass tells which.
func (f field) trainerField() (slot resolver.Slot, isClass bool) {
	switch f {
	case fieldOpp1Class:
		return resolver.SlotOpponent1, true
	case fieldOpp1Name:
		return resolver.SlotOpponent1, false
	case fieldOpp2Class:
		return resolver.SlotOpponent2, true
	case fieldOpp2Name:
		return resolver.SlotOpponent2, false
	case fieldPartnerClass:
		return resolver.SlotPartner, true
	case fieldPartnerName:
		return resolver.SlotPartner, false
	}
	return resolver.SlotNone, false
}

// CreateFormModel is the battle creation page. Field values live in the
// form.Controller; the page only mirrors them for display.
type CreateFormModel struct {
	ctx    context.Context
	ctrl   *form.Controller
	state  form.State
	inputs [numFields]textinput.Model
	focus  field
	styles Styles
	width  int
}

// NewCreateFormModel creates the page over ctrl. Submissions run under ctx.
func NewCreateFormModel(ctx context.Context, ctrl *form.Controller, styles Styles) CreateFormModel {
	m := CreateFormModel{ctx: ctx, ctrl: ctrl, styles: styles, focus: fieldLocationName}
	for f := field(0); f < numFields; f++ {
		if !f.isText() {
			continue
		}
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 64
		ti.Width = 30
		ti.TextStyle = styles.Body
		if f == fieldRound {
			ti.CharLimit = 4
			ti.Placeholder = "0"
		}
		m.inputs[f] = ti
	}
	m.state = ctrl.Snapshot()
	m.syncInputs()
	m.applyFocus()
	return m
}

// SetWidth updates the page width.
func (m *CreateFormModel) SetWidth(w int) {
	m.width = w
}

// Focused returns the focused field's label, for tests and the footer.
func (m CreateFormModel) Focused() string {
	if m.focus == fieldSubmit {
		return "Create Battle"
	}
	return strings.TrimSpace(fieldLabels[m.focus])
}

// State returns the mirrored controller state.
func (m CreateFormModel) State() form.State {
	return m.state
}

func (m *CreateFormModel) syncInputs() {
	s := m.state
	set := func(f field, v string) {
		if m.inputs[f].Value() != v {
			m.inputs[f].SetValue(v)
		}
	}
	set(fieldLocationName, s.Location.Name)
	set(fieldOpp1Class, s.Opponent1.Trainer.Class)
	set(fieldOpp1Name, s.Opponent1.Trainer.Name)
	set(fieldOpp2Class, s.Opponent2.Trainer.Class)
	set(fieldOpp2Name, s.Opponent2.Trainer.Name)
	set(fieldPartnerClass, s.Partner.Trainer.Class)
	set(fieldPartnerName, s.Partner.Trainer.Name)
	if m.inputs[fieldRound].Value() != "" || s.Round != 0 {
		set(fieldRound, strconv.Itoa(s.Round))
	}
}

func (m *CreateFormModel) applyFocus() {
	for f := field(0); f < numFields; f++ {
		if !f.isText() {
			continue
		}
		if f == m.focus {
			m.inputs[f].Focus()
		} else {
			m.inputs[f].Blur()
		}
	}
}

// skipped reports whether a field is hidden because its slot is disabled.
func (m CreateFormModel) skipped(f field) bool {
	switch f {
	case fieldOpp2Class, fieldOpp2Name:
		return !m.state.Opponent2.Enabled
	case fieldPartnerClass, fieldPartnerName:
		return !m.state.Partner.Enabled
	}
	return false
}

func (m *CreateFormModel) move(delta int) {
	f := m.focus
	for i := 0; i < int(numFields); i++ {
		f = field((int(f) + delta + int(numFields)) % int(numFields))
		if !m.skipped(f) {
			break
		}
	}
	m.focus = f
	m.applyFocus()
}

// Update handles form keys and controller notifications.
func (m CreateFormModel) Update(msg tea.Msg) (CreateFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case FormChangedMsg:
		m.state = m.ctrl.Snapshot()
		return m, nil

	case SubmitDoneMsg:
		m.state = m.ctrl.Snapshot()
		if msg.Err == nil {
			m.syncInputs()
			m.focus = fieldOpp1Class
			m.applyFocus()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m CreateFormModel) handleKey(msg tea.KeyMsg) (CreateFormModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.move(1)
		return m, nil
	case "shift+tab", "up":
		m.move(-1)
		return m, nil
	case "ctrl+s":
		return m, m.submit()
	}

	switch m.focus {
	case fieldPlaythrough, fieldRegion, fieldBattleType:
		if d := direction(msg); d != 0 {
			m.cycle(d)
		}
	case fieldOpp2Enabled, fieldPartnerEnabled, fieldLost:
		if k := msg.String(); k == " " || k == "enter" {
			m.toggle()
		}
	case fieldSubmit:
		if msg.String() == "enter" {
			return m, m.submit()
		}
	default:
		var cmd tea.Cmd
		before := m.inputs[m.focus].Value()
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		if after := m.inputs[m.focus].Value(); after != before {
			m.edit(m.focus, after)
		}
		return m, cmd
	}
	m.state = m.ctrl.Snapshot()
	return m, nil
}

func direction(msg tea.KeyMsg) int {
	switch msg.String() {
	case "left", "h":
		return -1
	case "right", "l", " ":
		return 1
	}
	return 0
}

// edit pushes a text field's new value into the controller.
func (m *CreateFormModel) edit(f field, v string) {
	switch f {
	case fieldLocationName:
		m.ctrl.SetLocationName(v)
	case fieldRound:
		v = strings.TrimSpace(v)
		if v == "" {
			m.ctrl.SetRound(0)
		} else if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			m.ctrl.SetRound(n)
		}
	default:
		slot, isClass := f.trainerField()
		if isClass {
			m.ctrl.SetTrainerClass(slot, v)
		} else {
			m.ctrl.SetTrainerName(slot, v)
		}
	}
	m.state = m.ctrl.Snapshot()
}

func (m *CreateFormModel) cycle(d int) {
	s := m.state
	switch m.focus {
	case fieldPlaythrough:
		ids := make([]string, len(s.Options.Playthroughs))
		for i, p := range s.Options.Playthroughs {
			ids[i] = p.IDNo
		}
		if v, ok := step(ids, s.PlaythroughIDNo, d); ok {
			m.ctrl.SetPlaythrough(v)
		}
	case fieldRegion:
		if v, ok := step(s.Options.Regions, s.Location.Region, d); ok {
			m.ctrl.SetLocationRegion(v)
		}
	case fieldBattleType:
		if v, ok := step(s.Options.BattleTypes, s.BattleType, d); ok {
			m.ctrl.SetBattleType(v)
		}
	}
}

// step moves d places from current in options, wrapping around.
func step(options []string, current string, d int) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	i := -1
	for j, o := range options {
		if o == current {
			i = j
			break
		}
	}
	if i < 0 {
		return options[0], true
	}
	return options[(i+d+len(options))%len(options)], true
}

func (m *CreateFormModel) toggle() {
	s := m.state
	switch m.focus {
	case fieldOpp2Enabled:
		m.ctrl.SetEnabled(resolver.SlotOpponent2, !s.Opponent2.Enabled)
	case fieldPartnerEnabled:
		m.ctrl.SetEnabled(resolver.SlotPartner, !s.Partner.Enabled)
	case fieldLost:
		m.ctrl.SetLost(!s.Lost)
	}
}

func (m CreateFormModel) submit() tea.Cmd {
	if m.state.Submitting {
		return nil
	}
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		report, err := ctrl.Submit(ctx)
		return SubmitDoneMsg{Report: report, Err: err}
	}
}

// View renders the form.
func (m CreateFormModel) View() string {
	s := m.state
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Create Battle"))
	sb.WriteString("\n")

	for f := field(0); f < fieldSubmit; f++ {
		if m.skipped(f) {
			continue
		}
		label := m.styles.Label
		if f == m.focus {
			label = m.styles.FocusedLabel
		}
		sb.WriteString(label.Render(fieldLabels[f]))
		sb.WriteString(" ")
		sb.WriteString(m.value(f))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	button := m.styles.Button
	if m.focus == fieldSubmit {
		button = m.styles.ActiveButton
	}
	text := "Create Battle"
	if s.Submitting {
		text = "Creating..."
	}
	sb.WriteString(button.Render(text))
	sb.WriteString("\n")
	return sb.String()
}

func (m CreateFormModel) value(f field) string {
	s := m.state
	switch f {
	case fieldPlaythrough:
		label := s.PlaythroughIDNo
		for _, p := range s.Options.Playthroughs {
			if p.IDNo == s.PlaythroughIDNo {
				label = p.Label()
			}
		}
		if label == "" {
			label = "(none - create one with battlelog playthroughs create)"
		}
		return selector(label)
	case fieldRegion:
		return selector(s.Location.Region)
	case fieldBattleType:
		return selector(s.BattleType)
	case fieldLocationName:
		return m.inputs[f].View() + " " + m.flag(s.LocationValid, s.LocationChecking, s.Location.Name)
	case fieldOpp2Enabled:
		return checkbox(s.Opponent2.Enabled)
	case fieldPartnerEnabled:
		return checkbox(s.Partner.Enabled)
	case fieldLost:
		return checkbox(s.Lost)
	case fieldRound:
		return m.inputs[f].View()
	}

	slot, isClass := f.trainerField()
	tf := s.Trainer(slot)
	if tf == nil {
		return ""
	}
	valid, value := tf.Validity.Name, tf.Trainer.Name
	if isClass {
		valid, value = tf.Validity.Class, tf.Trainer.Class
	}
	return m.inputs[f].View() + " " + m.flag(valid, tf.Checking, value)
}

// flag shows whether a value is known to exist. Unknown values will be
// created on submit after confirmation.
func (m CreateFormModel) flag(valid, checking bool, value string) string {
	switch {
	case strings.TrimSpace(value) == "":
		return ""
	case checking:
		return m.styles.Muted.Render("…")
	case valid:
		return m.styles.Valid.Render("✓")
	default:
		return m.styles.Invalid.Render("new")
	}
}

func selector(v string) string {
	return "< " + v + " >"
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

