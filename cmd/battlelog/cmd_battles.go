package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"battlelog/internal/form"
	"battlelog/internal/poller"
	"battlelog/internal/resolver"
	"battlelog/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var battlesCmd = &cobra.Command{
	Use:   "battles",
	Short: "List, watch, create and delete battles",
}

var battlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List battles, newest first",
	RunE:  runBattlesList,
}

var battlesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the battles list and print it whenever it changes",
	Long: `Polls read_battles every battles.poll_interval (default 250ms) and reprints
the list when it changes. Stops on Ctrl+C.`,
	RunE: runBattlesWatch,
}

var battlesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a battle, creating missing locations and trainers",
	Long: `Records a battle. Trainers are given as "Class/Name".

Any location, trainer class or trainer that does not exist yet is created after
you confirm it. Declining a prompt aborts the battle; records confirmed before
that stay created.

Example:
  battlelog battles create --location "Route 1" --region Kanto \
      --opponent1 "Youngster/Joey" --round 1`,
	RunE: runBattlesCreate,
}

var battlesDeleteCmd = &cobra.Command{
	Use:   "delete [no]",
	Short: "Delete a battle by number",
	Args:  cobra.ExactArgs(1),
	RunE:  runBattlesDelete,
}

func init() {
	battlesListCmd.Flags().Int("how-many", 0, "Only show the newest N battles (default: battles.how_many)")
	battlesListCmd.Flags().Bool("plain", false, "Print one line per battle instead of a table")

	battlesWatchCmd.Flags().Int("how-many", 0, "Only show the newest N battles (default: battles.how_many)")

	f := battlesCreateCmd.Flags()
	f.String("playthrough", "", "Playthrough id (default: most recent)")
	f.String("location", "", "Location name")
	f.String("region", "", "Location region (default: first region)")
	f.String("type", "", "Battle type (default: first battle type)")
	f.String("opponent1", "", `First opponent as "Class/Name"`)
	f.String("opponent2", "", `Second opponent as "Class/Name"`)
	f.String("partner", "", `Partner as "Class/Name"`)
	f.Int("round", 0, "Round number")
	f.Bool("lost", false, "The battle was lost")
	f.BoolP("yes", "y", false, "Create missing records without asking")
	_ = battlesCreateCmd.MarkFlagRequired("location")
	_ = battlesCreateCmd.MarkFlagRequired("opponent1")

	battlesDeleteCmd.Flags().BoolP("yes", "y", false, "Delete without asking")

	battlesCmd.AddCommand(battlesListCmd)
	battlesCmd.AddCommand(battlesWatchCmd)
	battlesCmd.AddCommand(battlesCreateCmd)
	battlesCmd.AddCommand(battlesDeleteCmd)
}

func howManyFlag(cmd *cobra.Command) int {
	n, _ := cmd.Flags().GetInt("how-many")
	if n <= 0 {
		n = cfg.Battles.HowMany
	}
	return n
}

func runBattlesList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.client.ReadBattles(ctx, howManyFlag(cmd))
	if err != nil {
		return fmt.Errorf("failed to read battles: %w", err)
	}
	battles := types.Battles(records)
	logger.Debug("Read battles", zap.Int("count", len(battles)))

	out := cmd.OutOrStdout()
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		for _, b := range battles {
			fmt.Fprintln(out, battleLine(b))
		}
		return nil
	}
	fmt.Fprint(out, renderMarkdown(battlesMarkdown(battles)))
	return nil
}

func runBattlesWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	howMany := howManyFlag(cmd)
	out := cmd.OutOrStdout()
	var last []types.Battle
	first := true

	p := poller.New("battles", cfg.GetPollInterval(),
		func(ctx context.Context) ([]types.BattleRecord, error) {
			return s.client.ReadBattles(ctx, howMany)
		},
		func(records []types.BattleRecord, err error) {
			if err != nil {
				logger.Warn("Poll failed", zap.Error(err))
				return
			}
			battles := types.Battles(records)
			if !first && cmp.Equal(battles, last) {
				return
			}
			first = false
			last = battles
			fmt.Fprintln(out, "---")
			for _, b := range battles {
				fmt.Fprintln(out, battleLine(b))
			}
		},
	)

	logger.Info("Watching battles", zap.Duration("interval", p.Interval()))
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}

// parseTrainer parses "Class/Name". The class may contain spaces; the name
// is everything after the last slash.
func parseTrainer(s string) (types.Trainer, error) {
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return types.Trainer{}, fmt.Errorf("trainer %q must be given as Class/Name", s)
	}
	return types.Trainer{
		Class: strings.TrimSpace(s[:i]),
		Name:  strings.TrimSpace(s[i+1:]),
	}, nil
}

func runBattlesCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	f := cmd.Flags()
	opponent1, err := parseTrainer(mustString(f.GetString("opponent1")))
	if err != nil {
		return err
	}
	optional := map[resolver.Slot]string{
		resolver.SlotOpponent2: mustString(f.GetString("opponent2")),
		resolver.SlotPartner:   mustString(f.GetString("partner")),
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var prompt resolver.Prompter = resolver.AutoConfirm{}
	if yes, _ := f.GetBool("yes"); !yes {
		tp := resolver.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		defer tp.Close()
		prompt = tp
	}

	c := form.New(s.client, prompt, form.Hooks{
		OnError: func(title string, err error) {
			logger.Warn(title, zap.Error(err))
		},
	})
	defer c.Close()

	if err := c.LoadOptions(ctx); err != nil {
		return fmt.Errorf("failed to load form options: %w", err)
	}

	if v := mustString(f.GetString("playthrough")); v != "" {
		c.SetPlaythrough(v)
	}
	if v := mustString(f.GetString("type")); v != "" {
		c.SetBattleType(v)
	}
	loc := c.Snapshot().Location
	loc.Name = mustString(f.GetString("location"))
	if v := mustString(f.GetString("region")); v != "" {
		loc.Region = v
	}
	c.SetLocation(loc)
	c.SetTrainer(resolver.SlotOpponent1, opponent1)
	for _, slot := range []resolver.Slot{resolver.SlotOpponent2, resolver.SlotPartner} {
		if optional[slot] == "" {
			continue
		}
		t, err := parseTrainer(optional[slot])
		if err != nil {
			return err
		}
		c.SetEnabled(slot, true)
		c.SetTrainer(slot, t)
	}
	round, _ := f.GetInt("round")
	c.SetRound(round)
	lost, _ := f.GetBool("lost")
	c.SetLost(lost)

	// Submit against settled validity flags.
	c.Wait()

	report, err := c.Submit(ctx)
	out := cmd.OutOrStdout()
	if report != nil && len(report.Steps) > 0 {
		fmt.Fprintln(out, report.String())
	}
	if err != nil {
		var cancelled *resolver.UserCancelledError
		if errors.As(err, &cancelled) {
			return fmt.Errorf("battle not created: %w", err)
		}
		return fmt.Errorf("failed to create battle: %w", err)
	}
	fmt.Fprintf(out, "Battle %d recorded.\n", report.BattleNo)
	// The battle itself is the last created step.
	if n := len(report.Created()) - 1; n > 0 {
		fmt.Fprintf(out, "%d new records created along the way.\n", n)
	}
	return nil
}

func mustString(s string, _ error) string {
	return s
}

func runBattlesDelete(cmd *cobra.Command, args []string) error {
	no, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || no <= 0 {
		return fmt.Errorf("invalid battle number %q", args[0])
	}

	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.client.ReadBattles(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read battles: %w", err)
	}
	var target *types.Battle
	for _, r := range records {
		if r.No == no {
			b := r.Battle()
			target = &b
			break
		}
	}
	if target == nil {
		return fmt.Errorf("battle %d not found", no)
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		p := resolver.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
		defer p.Close()
		ok, err := p.Confirm(ctx, "Delete Battle?", deletePrompt(*target))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	if err := s.client.DeleteBattle(ctx, no); err != nil {
		return fmt.Errorf("failed to delete battle %d: %w", no, err)
	}
	logger.Info("Battle deleted", zap.Int64("no", no))
	fmt.Fprintf(cmd.OutOrStdout(), "Battle %d deleted.\n", no)
	return nil
}

func deletePrompt(b types.Battle) string {
	return fmt.Sprintf("Are you sure you want to delete battle %d against %s", b.No, b.Title())
}
