package store

import (
	"context"
	"fmt"
	"time"

	"battlelog/internal/logging"
	"battlelog/internal/types"
)

// Regions returns region names in insertion order.
func (s *Store) Regions(ctx context.Context) ([]string, error) {
	return s.names(ctx, "SELECT name FROM region ORDER BY rowid", nil)
}

// CreateRegion inserts a region.
func (s *Store) CreateRegion(ctx context.Context, name string) error {
	return s.exec(ctx, "INSERT INTO region (name) VALUES (?)", name)
}

// Locations returns locations matching the optional exact-match filters.
func (s *Store) Locations(ctx context.Context, name, region *string) ([]types.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f filter
	f.eq("name", name)
	f.eq("region", region)

	rows, err := s.db.QueryContext(ctx, "SELECT name, region FROM location"+f.where()+" ORDER BY region, name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	locations := make([]types.Location, 0)
	for rows.Next() {
		var l types.Location
		if err := rows.Scan(&l.Name, &l.Region); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// CreateLocation inserts a location under an existing region and returns the
// number of rows inserted.
func (s *Store) CreateLocation(ctx context.Context, l types.Location) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO location (name, region) VALUES (?, ?)", l.Name, l.Region)
	if err != nil {
		return 0, fmt.Errorf("failed to create location %q: %w", l.String(), classify(err))
	}
	n, _ := res.RowsAffected()
	logging.Store("Created location %s", l)
	return n, nil
}

// TrainerClasses returns class names, optionally filtered by exact name.
func (s *Store) TrainerClasses(ctx context.Context, name *string) ([]string, error) {
	var f filter
	f.eq("name", name)
	return s.names(ctx, "SELECT name FROM trainer_class"+f.where()+" ORDER BY name", f.args)
}

// CreateTrainerClass inserts a trainer class.
func (s *Store) CreateTrainerClass(ctx context.Context, name string) error {
	if err := s.exec(ctx, "INSERT INTO trainer_class (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("failed to create trainer class %q: %w", name, err)
	}
	logging.Store("Created trainer class %s", name)
	return nil
}

// Trainers returns trainers matching the optional exact-match filters.
func (s *Store) Trainers(ctx context.Context, name, class *string) ([]types.Trainer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var f filter
	f.eq("name", name)
	f.eq("class", class)

	rows, err := s.db.QueryContext(ctx, "SELECT name, class FROM trainer"+f.where()+" ORDER BY class, name", f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trainers: %w", err)
	}
	defer rows.Close()

	trainers := make([]types.Trainer, 0)
	for rows.Next() {
		var t types.Trainer
		if err := rows.Scan(&t.Name, &t.Class); err != nil {
			return nil, fmt.Errorf("failed to scan trainer: %w", err)
		}
		trainers = append(trainers, t)
	}
	return trainers, rows.Err()
}

// CreateTrainer inserts a trainer of an existing class and returns its id.
func (s *Store) CreateTrainer(ctx context.Context, t types.Trainer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO trainer (class, name) VALUES (?, ?)", t.Class, t.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to create trainer %q: %w", t.String(), classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read trainer id: %w", err)
	}
	logging.Store("Created trainer %s (id=%d)", t, id)
	return id, nil
}

// Playthroughs returns all playthroughs, most recently started first.
func (s *Store) Playthroughs(ctx context.Context) ([]types.Playthrough, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id_no, name, version, adventure_started FROM playthrough ORDER BY adventure_started DESC, id_no")
	if err != nil {
		return nil, fmt.Errorf("failed to query playthroughs: %w", err)
	}
	defer rows.Close()

	playthroughs := make([]types.Playthrough, 0)
	for rows.Next() {
		var (
			p       types.Playthrough
			started string
		)
		if err := rows.Scan(&p.IDNo, &p.Name, &p.Version, &started); err != nil {
			return nil, fmt.Errorf("failed to scan playthrough: %w", err)
		}
		p.AdventureStarted, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return nil, fmt.Errorf("playthrough %s has invalid start time %q: %w", p.IDNo, started, err)
		}
		playthroughs = append(playthroughs, p)
	}
	return playthroughs, rows.Err()
}

// CreatePlaythrough inserts a playthrough. The caller assigns IDNo.
func (s *Store) CreatePlaythrough(ctx context.Context, p types.Playthrough) error {
	err := s.exec(ctx,
		"INSERT INTO playthrough (id_no, name, version, adventure_started) VALUES (?, ?, ?, ?)",
		p.IDNo, p.Name, p.Version, p.AdventureStarted.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create playthrough %q: %w", p.Name, err)
	}
	logging.Store("Created playthrough %s (%s)", p.IDNo, p.Label())
	return nil
}

// BattleTypes returns battle type names in insertion order.
func (s *Store) BattleTypes(ctx context.Context) ([]string, error) {
	return s.names(ctx, "SELECT name FROM battle_type ORDER BY rowid", nil)
}

// CreateBattleType inserts a battle type.
func (s *Store) CreateBattleType(ctx context.Context, name string) error {
	return s.exec(ctx, "INSERT INTO battle_type (name) VALUES (?)", name)
}

func (s *Store) names(ctx context.Context, query string, args []interface{}) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return classify(err)
	}
	return nil
}
