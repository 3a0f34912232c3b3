package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmRequestMsg asks the app to show a yes/no dialog. The answer is sent
// on Reply exactly once.
type ConfirmRequestMsg struct {
	Title   string
	Message string
	Reply   chan<- bool
}

// ErrorMsg asks the app to show a blocking error dialog.
type ErrorMsg struct {
	Title string
	Err   error
}

// TUIPrompter implements resolver.Prompter by routing questions through the
// running program.
type TUIPrompter struct {
	send func(tea.Msg)
}

// NewTUIPrompter creates a prompter that delivers requests with send,
// usually (*tea.Program).Send.
func NewTUIPrompter(send func(tea.Msg)) *TUIPrompter {
	return &TUIPrompter{send: send}
}

// Confirm shows the dialog and blocks until it is answered or ctx is done.
func (p *TUIPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	reply := make(chan bool, 1)
	p.send(ConfirmRequestMsg{Title: title, Message: message, Reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type dialogKind int

const (
	dialogConfirm dialogKind = iota
	dialogError
)

// dialog is a modal box. While open it takes every key press.
type dialog struct {
	kind    dialogKind
	title   string
	message string
	reply   chan<- bool
	// onConfirm runs instead of reply for dialogs opened by the app itself.
	onConfirm func() tea.Cmd
}

func confirmDialog(req ConfirmRequestMsg) *dialog {
	return &dialog{kind: dialogConfirm, title: req.Title, message: req.Message, reply: req.Reply}
}

func errorDialog(msg ErrorMsg) *dialog {
	text := "unknown error"
	if msg.Err != nil {
		text = msg.Err.Error()
	}
	return &dialog{kind: dialogError, title: msg.Title, message: text}
}

// handleKey answers the dialog. It reports whether the dialog closed and
// returns any follow-up command.
func (d *dialog) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if d.kind == dialogError {
		switch msg.String() {
		case "enter", "esc", " ", "q":
			return true, nil
		}
		return false, nil
	}

	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		return true, d.answer(true)
	case "n", "esc", "q":
		return true, d.answer(false)
	}
	return false, nil
}

func (d *dialog) answer(ok bool) tea.Cmd {
	if d.reply != nil {
		d.reply <- ok
		return nil
	}
	if ok && d.onConfirm != nil {
		return d.onConfirm()
	}
	return nil
}

// cancel declines a pending confirmation, used when the app quits.
func (d *dialog) cancel() {
	if d.kind == dialogConfirm && d.reply != nil {
		d.reply <- false
	}
}

func (d *dialog) View(styles Styles, width int) string {
	titleStyle := styles.Title
	hint := "[y] yes   [n] no"
	if d.kind == dialogError {
		titleStyle = styles.Error.MarginBottom(1)
		hint = "[enter] ok"
	}

	boxWidth := 60
	if width > 0 && width-4 < boxWidth {
		boxWidth = width - 4
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(d.title),
		styles.Body.Width(boxWidth-8).Render(d.message),
		"",
		styles.Muted.Render(hint),
	)
	return styles.Dialog.Width(boxWidth).Render(body)
}
