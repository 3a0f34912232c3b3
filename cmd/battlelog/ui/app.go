package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"battlelog/internal/form"
	"battlelog/internal/logging"
	"battlelog/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Gateway is the set of commands the interface issues directly.
type Gateway interface {
	form.Gateway
	ReadBattles(ctx context.Context, howMany int) ([]types.BattleRecord, error)
	DeleteBattle(ctx context.Context, no int64) error
}

// Subscription is a background feed that runs while its page is shown.
type Subscription interface {
	Start(ctx context.Context)
	Stop()
}

// Bridge forwards messages from other goroutines into the running program.
type Bridge struct {
	p atomic.Pointer[tea.Program]
}

// Attach sets the program messages go to.
func (b *Bridge) Attach(p *tea.Program) {
	b.p.Store(p)
}

// Send delivers msg and blocks until the program takes it or has exited.
// It must not be called from Update.
func (b *Bridge) Send(msg tea.Msg) {
	if p := b.p.Load(); p != nil {
		p.Send(msg)
	}
}

// Post delivers msg without blocking the caller. Safe from Update.
func (b *Bridge) Post(msg tea.Msg) {
	go b.Send(msg)
}

// feed switches a Subscription on and off from commands. Requests run off
// the event loop in any order; only the most recent one takes effect.
type feed struct {
	sub Subscription
	gen atomic.Uint64
	mu  sync.Mutex
}

func (f *feed) request(ctx context.Context, run bool) tea.Cmd {
	g := f.gen.Add(1)
	return func() tea.Msg {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.gen.Load() != g {
			return nil
		}
		if run {
			f.sub.Start(ctx)
		} else {
			f.sub.Stop()
		}
		return nil
	}
}

type page int

const (
	pageBattles page = iota
	pageCreate
)

// OptionsLoadedMsg reports the result of loading the form options.
type OptionsLoadedMsg struct{ Err error }

// DeleteDoneMsg reports the result of deleting a battle.
type DeleteDoneMsg struct {
	No  int64
	Err error
}

// AppModel is the root model.
type AppModel struct {
	ctx     context.Context
	gw      Gateway
	form    *form.Controller
	battles *feed

	page       page
	battleList BattlesPageModel
	create     CreateFormModel
	dialogs    []*dialog
	status     string
	spinner    spinner.Model
	styles     Styles
	width      int
	height     int
	quitting   bool
}

// NewApp builds the root model. battles feeds BattlesLoadedMsg while the
// battles page is shown.
func NewApp(ctx context.Context, gw Gateway, ctrl *form.Controller, battles Subscription, styles Styles) AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return AppModel{
		ctx:        ctx,
		gw:         gw,
		form:       ctrl,
		battles:    &feed{sub: battles},
		battleList: NewBattlesPageModel(styles),
		create:     NewCreateFormModel(ctx, ctrl, styles),
		spinner:    sp,
		styles:     styles,
	}
}

// Init starts the battles feed and loads the form options.
func (m AppModel) Init() tea.Cmd {
	m.battles.sub.Start(m.ctx)
	ctx, ctrl := m.ctx, m.form
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return OptionsLoadedMsg{Err: ctrl.LoadOptions(ctx)}
		},
	)
}

// Update routes messages. An open dialog takes every key press.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.battleList.SetSize(msg.Width, msg.Height)
		m.create.SetWidth(msg.Width)
		return m, nil

	case ConfirmRequestMsg:
		m.dialogs = append(m.dialogs, confirmDialog(msg))
		return m, nil

	case ErrorMsg:
		logging.UIError("%s: %v", msg.Title, msg.Err)
		m.dialogs = append(m.dialogs, errorDialog(msg))
		return m, nil

	case OptionsLoadedMsg:
		if msg.Err != nil {
			return m.showError("Error Loading Form Options", msg.Err)
		}
		m.create, _ = m.create.Update(FormChangedMsg{})
		return m, nil

	case BattlesLoadedMsg:
		m.battleList, _ = m.battleList.Update(msg)
		return m, nil

	case FormChangedMsg:
		m.create, _ = m.create.Update(msg)
		return m, nil

	case SubmitDoneMsg:
		m.create, _ = m.create.Update(msg)
		if msg.Err != nil {
			return m.showError("Error Creating Battle", msg.Err)
		}
		m.status = fmt.Sprintf("Battle %d created", msg.Report.BattleNo)
		logging.UI("Battle %d created", msg.Report.BattleNo)
		return m, nil

	case DeleteDoneMsg:
		if msg.Err != nil {
			return m.showError("Error Deleting Battle", msg.Err)
		}
		m.status = fmt.Sprintf("Battle %d deleted", msg.No)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AppModel) showError(title string, err error) (tea.Model, tea.Cmd) {
	logging.UIError("%s: %v", title, err)
	m.dialogs = append(m.dialogs, errorDialog(ErrorMsg{Title: title, Err: err}))
	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if n := len(m.dialogs); n > 0 {
		top := m.dialogs[n-1]
		closed, cmd := top.handleKey(msg)
		if closed {
			m.dialogs = m.dialogs[:n-1]
		}
		return m, cmd
	}

	switch m.page {
	case pageBattles:
		switch msg.String() {
		case "q":
			return m.quit()
		case "n", "tab":
			return m.switchTo(pageCreate)
		case "d", "delete":
			return m.confirmDelete()
		}
		var cmd tea.Cmd
		m.battleList, cmd = m.battleList.Update(msg)
		return m, cmd

	case pageCreate:
		if msg.String() == "esc" {
			return m.switchTo(pageBattles)
		}
		var cmd tea.Cmd
		m.create, cmd = m.create.Update(msg)
		return m, cmd
	}
	return m, nil
}

// switchTo changes page. The battles feed runs only while its page is shown;
// stopping it happens off the event loop since it waits for an in-flight
// delivery.
func (m AppModel) switchTo(p page) (tea.Model, tea.Cmd) {
	if m.page == p {
		return m, nil
	}
	m.page = p
	m.status = ""
	logging.UIDebug("Switched to %s page", m.Page())
	return m, m.battles.request(m.ctx, p == pageBattles)
}

func (m AppModel) confirmDelete() (tea.Model, tea.Cmd) {
	b, ok := m.battleList.Selected()
	if !ok {
		return m, nil
	}
	ctx, gw := m.ctx, m.gw
	d := &dialog{
		kind:    dialogConfirm,
		title:   "Delete Battle?",
		message: fmt.Sprintf("Are you sure you want to delete battle %d against %s", b.No, b.Title()),
		onConfirm: func() tea.Cmd {
			return func() tea.Msg {
				return DeleteDoneMsg{No: b.No, Err: gw.DeleteBattle(ctx, b.No)}
			}
		},
	}
	m.dialogs = append(m.dialogs, d)
	return m, nil
}

func (m AppModel) quit() (tea.Model, tea.Cmd) {
	for _, d := range m.dialogs {
		d.cancel()
	}
	m.dialogs = nil
	m.quitting = true
	return m, tea.Quit
}

// View renders the header, the active page, any dialog and the footer.
func (m AppModel) View() string {
	if m.quitting {
		return ""
	}

	tabs := []string{"Battles", "Create Battle"}
	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		style := m.styles.Tab
		if page(i) == m.page {
			style = m.styles.TabOn
		}
		rendered[i] = style.Render(t)
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, m.styles.Header.Render("battlelog"), " ", strings.Join(rendered, ""))

	var body string
	switch m.page {
	case pageCreate:
		body = m.create.View()
	default:
		body = m.battleList.View()
	}
	if n := len(m.dialogs); n > 0 {
		body = m.dialogs[n-1].View(m.styles, m.width)
	}

	// The status line only ever reports completed actions.
	status := m.styles.Success.Render(m.status)
	if m.create.State().Submitting || m.create.State().Checking() {
		status = m.spinner.View() + " " + status
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.styles.Content.Render(body),
		m.styles.RenderDivider(m.width),
		m.styles.Footer.Render(m.help()),
		status,
	)
}

func (m AppModel) help() string {
	if len(m.dialogs) > 0 {
		return ""
	}
	if m.page == pageCreate {
		return "tab/↑↓ move • ←/→ choose • space toggle • ctrl+s submit • esc back"
	}
	return "↑/↓ select • n new battle • d delete • q quit"
}

// Page reports the active page name, for tests.
func (m AppModel) Page() string {
	if m.page == pageCreate {
		return "create"
	}
	return "battles"
}

// DialogTitle returns the title of the open dialog, if any.
func (m AppModel) DialogTitle() string {
	if n := len(m.dialogs); n > 0 {
		return m.dialogs[n-1].title
	}
	return ""
}
