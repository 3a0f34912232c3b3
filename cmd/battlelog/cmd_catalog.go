package main

import (
	"fmt"
	"time"

	"battlelog/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var playthroughsCmd = &cobra.Command{
	Use:   "playthroughs",
	Short: "List or start playthroughs",
	RunE:  runPlaythroughsList,
}

var playthroughsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List playthroughs, most recently started first",
	RunE:  runPlaythroughsList,
}

var playthroughsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new playthrough",
	Long: `Starts a new playthrough and prints its id.

Example:
  battlelog playthroughs create --name "Nuzlocke" --version Crystal --started 2024-03-01`,
	RunE: runPlaythroughsCreate,
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List regions",
	RunE:  runRegions,
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List locations",
	RunE:  runLocations,
}

var trainersCmd = &cobra.Command{
	Use:   "trainers",
	Short: "List trainers",
	RunE:  runTrainers,
}

func init() {
	playthroughsCreateCmd.Flags().String("name", "", "Playthrough name (required)")
	playthroughsCreateCmd.Flags().String("version", "", "Game version (required)")
	playthroughsCreateCmd.Flags().String("started", "", "Start date as YYYY-MM-DD (default: now)")
	_ = playthroughsCreateCmd.MarkFlagRequired("name")
	_ = playthroughsCreateCmd.MarkFlagRequired("version")

	playthroughsCmd.AddCommand(playthroughsListCmd)
	playthroughsCmd.AddCommand(playthroughsCreateCmd)

	locationsCmd.Flags().String("region", "", "Only list locations in this region")
	trainersCmd.Flags().String("class", "", "Only list trainers of this class")
}

func runPlaythroughsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ps, err := s.client.ReadPlaythroughs(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playthroughs: %w", err)
	}
	if len(ps) == 0 {
		fmt.Fprint(cmd.OutOrStdout(), renderMarkdown("_No playthroughs yet. Start one with `battlelog playthroughs create`._\n"))
		return nil
	}

	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{p.IDNo, p.Name, p.Label()})
	}
	md := "## Playthroughs\n\n" + mdTable([]string{"Id", "Name", "Version"}, rows)
	fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(md))
	return nil
}

func runPlaythroughsCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	name, _ := cmd.Flags().GetString("name")
	version, _ := cmd.Flags().GetString("version")
	params := types.CreatePlaythroughParams{Name: name, Version: version}
	if started, _ := cmd.Flags().GetString("started"); started != "" {
		t, err := time.Parse("2006-01-02", started)
		if err != nil {
			return fmt.Errorf("invalid --started %q: want YYYY-MM-DD", started)
		}
		params.AdventureStarted = t
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.client.CreatePlaythrough(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to create playthrough: %w", err)
	}
	logger.Info("Playthrough created", zap.String("id_no", id), zap.String("version", version))
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runRegions(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	regions, err := s.client.ReadRegions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read regions: %w", err)
	}
	for _, r := range regions {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return nil
}

func runLocations(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	var region *string
	if v, _ := cmd.Flags().GetString("region"); v != "" {
		region = &v
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	locs, err := s.client.ReadLocations(ctx, nil, region)
	if err != nil {
		return fmt.Errorf("failed to read locations: %w", err)
	}
	rows := make([][]string, 0, len(locs))
	for _, l := range locs {
		rows = append(rows, []string{l.Name, l.Region})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderMarkdown("## Locations\n\n"+mdTable([]string{"Location", "Region"}, rows)))
	return nil
}

func runTrainers(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	var class *string
	if v, _ := cmd.Flags().GetString("class"); v != "" {
		class = &v
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	trainers, err := s.client.ReadTrainers(ctx, nil, class)
	if err != nil {
		return fmt.Errorf("failed to read trainers: %w", err)
	}
	rows := make([][]string, 0, len(trainers))
	for _, t := range trainers {
		rows = append(rows, []string{t.Class, t.Name})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderMarkdown("## Trainers\n\n"+mdTable([]string{"Class", "Name"}, rows)))
	return nil
}
