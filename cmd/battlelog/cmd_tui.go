package main

import (
	"context"
	"fmt"

	"battlelog/cmd/battlelog/ui"
	"battlelog/internal/form"
	"battlelog/internal/logging"
	"battlelog/internal/poller"
	"battlelog/internal/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive interface (default)",
	Long: `Starts the full-screen interface: a battles list refreshed every
battles.poll_interval, and a form for recording new battles.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := &ui.Bridge{}

	// Hooks fire from the event loop as well as from check goroutines, so they
	// never block on the program.
	ctrl := form.New(s.client, ui.NewTUIPrompter(bridge.Send), form.Hooks{
		OnChange: func(form.State) { bridge.Post(ui.FormChangedMsg{}) },
		OnError: func(title string, err error) {
			bridge.Post(ui.ErrorMsg{Title: title, Err: err})
		},
	})
	defer ctrl.Close()

	howMany := cfg.Battles.HowMany
	battles := poller.New("battles", cfg.GetPollInterval(),
		func(ctx context.Context) ([]types.BattleRecord, error) {
			return s.client.ReadBattles(ctx, howMany)
		},
		func(records []types.BattleRecord, err error) {
			var msg ui.BattlesLoadedMsg
			if err != nil {
				msg.Err = err
			} else {
				msg.Battles = types.Battles(records)
			}
			bridge.Send(msg)
		},
	)
	defer battles.Stop()

	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
	app := ui.NewApp(ctx, s.client, ctrl, battles, styles)

	p := tea.NewProgram(app, tea.WithAltScreen())
	bridge.Attach(p)

	logging.UI("Interactive interface starting")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interface error: %w", err)
	}
	logging.UI("Interactive interface stopped")
	return nil
}
