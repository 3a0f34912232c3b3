package store

import (
	"context"
	"fmt"

	"battlelog/internal/logging"
)

// DefaultRegions are seeded by `battlelog init`, oldest first.
var DefaultRegions = []string{
	"Kanto", "Johto", "Hoenn", "Sinnoh", "Unova", "Kalos", "Alola", "Galar", "Paldea",
}

// DefaultBattleTypes are seeded by `battlelog init`. The first is the form default.
var DefaultBattleTypes = []string{
	"Single", "Double", "Multi", "Triple", "Rotation", "Horde", "Raid",
}

// Seed inserts the given regions and battle types, skipping ones that exist.
// It returns how many rows were added.
func (s *Store) Seed(ctx context.Context, regions, battleTypes []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	insert := func(table string, names []string) error {
		for _, name := range names {
			res, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO "+table+" (name) VALUES (?)", name)
			if err != nil {
				return fmt.Errorf("failed to seed %s %q: %w", table, name, err)
			}
			n, _ := res.RowsAffected()
			added += int(n)
		}
		return nil
	}
	if err := insert("region", regions); err != nil {
		return 0, err
	}
	if err := insert("battle_type", battleTypes); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	logging.Store("Seeded %d rows", added)
	return added, nil
}
