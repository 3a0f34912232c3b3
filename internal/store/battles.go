package store

import (
	"context"
	"database/sql"
	"fmt"

	"battlelog/internal/logging"
	"battlelog/internal/types"
)

// CreateBattle inserts an event for the playthrough and location, then the
// battle row keyed by the new event number. Returns the event number.
func (s *Store) CreateBattle(ctx context.Context, p types.CreateBattleParams) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "CreateBattle")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO event (playthrough_id_no, location_name, location_region) VALUES (?, ?, ?)",
		p.PlaythroughIDNo, p.LocationName, p.LocationRegion,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", classify(err))
	}
	no, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event number: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO battle_event (
			no, battle_type,
			opponent1_class, opponent1_name,
			opponent2_class, opponent2_name,
			partner_class, partner_name,
			round, lost
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		no, p.BattleType,
		p.Opponent1Class, p.Opponent1Name,
		nullable(p.Opponent2Class), nullable(p.Opponent2Name),
		nullable(p.PartnerClass), nullable(p.PartnerName),
		p.Round, p.Lost,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert battle: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit battle: %w", err)
	}

	logging.Store("Created battle %d against %s %s", no, p.Opponent1Class, p.Opponent1Name)
	return no, nil
}

// Battles returns battles newest first. howMany <= 0 returns all of them.
func (s *Store) Battles(ctx context.Context, howMany int) ([]types.BattleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT b.no, b.battle_type, b.lost,
			b.opponent1_class, b.opponent1_name,
			b.opponent2_class, b.opponent2_name,
			b.partner_class, b.partner_name,
			b.round,
			e.no, e.playthrough_id_no, e.location_name, e.location_region
		FROM battle_event b
		JOIN event e ON e.no = b.no
		ORDER BY b.no DESC`
	var args []interface{}
	if howMany > 0 {
		query += " LIMIT ?"
		args = append(args, howMany)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	battles := make([]types.BattleRecord, 0)
	for rows.Next() {
		var (
			r                      types.BattleRecord
			lost                   bool
			round                  int
			o2Class, o2Name        sql.NullString
			partnerClass, partName sql.NullString
		)
		if err := rows.Scan(
			&r.No, &r.BattleType, &lost,
			&r.Opponent1Class, &r.Opponent1Name,
			&o2Class, &o2Name,
			&partnerClass, &partName,
			&round,
			&r.Event.No, &r.Event.PlaythroughIDNo, &r.Event.LocationName, &r.Event.LocationRegion,
		); err != nil {
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		r.Lost, r.Round = &lost, &round
		r.Opponent2Class = fromNullable(o2Class)
		r.Opponent2Name = fromNullable(o2Name)
		r.PartnerClass = fromNullable(partnerClass)
		r.PartnerName = fromNullable(partName)
		battles = append(battles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate battles: %w", err)
	}

	logging.StoreDebug("Read %d battles (howMany=%d)", len(battles), howMany)
	return battles, nil
}

// DeleteBattle removes a battle and its event. Returns ErrNotFound when no
// battle has that number.
func (s *Store) DeleteBattle(ctx context.Context, no int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM battle_event WHERE no = ?", no)
	if err != nil {
		return fmt.Errorf("failed to delete battle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("battle %d: %w", no, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM event WHERE no = ?", no); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	logging.Store("Deleted battle %d", no)
	return nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func fromNullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
