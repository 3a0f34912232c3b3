package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"battlelog/internal/config"
	"battlelog/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// initCmd prepares the data directory
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize battlelog in the current directory",
	Long: `Creates the .battlelog/ directory with a default config.yaml and a database
seeded with the standard regions and battle types.

Running init again keeps the existing config, backs up the database, applies
any pending migrations and adds missing seed rows.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("global", false, "Initialize ~/.battlelog instead of ./.battlelog")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := filepath.Join(".", ".battlelog")
	if global, _ := cmd.Flags().GetBool("global"); global {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".battlelog")
	}
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return err
	}
	dataDir = abs

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataDir, err)
	}

	out := cmd.OutOrStdout()
	cfgPath := filepath.Join(dataDir, "config.yaml")
	c := cfg
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		c = config.DefaultConfig()
		c.DataDir = dataDir
		if err := c.Save(cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", cfgPath)
	} else {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		c = loaded
		if c.DataDir == "" {
			c.DataDir = dataDir
		}
	}

	dbPath := c.DatabasePath()
	if _, err := os.Stat(dbPath); err == nil {
		backup, err := store.CreateBackup(dbPath)
		if err != nil {
			return fmt.Errorf("failed to back up database: %w", err)
		}
		logger.Info("Database backed up", zap.String("backup", backup))
		fmt.Fprintf(out, "Backed up %s to %s\n", dbPath, backup)
	}

	st, err := store.Open(c.Store.Driver, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	ctx, cancel := commandContext()
	defer cancel()

	added, err := st.Seed(ctx, store.DefaultRegions, store.DefaultBattleTypes)
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	fmt.Fprintf(out, "Database %s ready (%d seed rows added)\n", dbPath, added)

	return printStats(ctx, st, out)
}

func printStats(ctx context.Context, st *store.Store, out io.Writer) error {
	stats, err := st.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	for _, k := range sortedKeys(stats) {
		fmt.Fprintf(out, "  %-14s %d\n", k, stats[k])
	}
	return nil
}
