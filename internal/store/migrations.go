package store

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"battlelog/internal/logging"
)

// Schema versions:
// v1: regions, locations, playthroughs, trainer classes, trainers, battle types, events, battle events
// v2: lookup indexes for event and location filters
const CurrentSchemaVersion = 2

// recordTables lists the tables reported by GetStats, in dependency order.
var recordTables = []string{
	"region", "location", "playthrough", "trainer_class", "trainer",
	"battle_type", "event", "battle_event",
}

// Migration moves the schema from Version-1 to Version.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// migrations lists every schema migration in order.
var migrations = []Migration{
	{
		Version:     1,
		Description: "base schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS region (
				name TEXT PRIMARY KEY NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS location (
				name TEXT NOT NULL,
				region TEXT NOT NULL REFERENCES region(name),
				PRIMARY KEY (name, region)
			)`,
			`CREATE TABLE IF NOT EXISTS playthrough (
				id_no TEXT PRIMARY KEY NOT NULL,
				name TEXT NOT NULL,
				version TEXT NOT NULL,
				adventure_started TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS trainer_class (
				name TEXT PRIMARY KEY NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS trainer (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				class TEXT NOT NULL REFERENCES trainer_class(name),
				name TEXT NOT NULL,
				UNIQUE(class, name)
			)`,
			`CREATE TABLE IF NOT EXISTS battle_type (
				name TEXT PRIMARY KEY NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS event (
				no INTEGER PRIMARY KEY,
				playthrough_id_no TEXT NOT NULL REFERENCES playthrough(id_no),
				location_name TEXT NOT NULL,
				location_region TEXT NOT NULL,
				FOREIGN KEY (location_name, location_region) REFERENCES location(name, region)
			)`,
			`CREATE TABLE IF NOT EXISTS battle_event (
				no INTEGER PRIMARY KEY NOT NULL REFERENCES event(no) ON DELETE CASCADE,
				battle_type TEXT NOT NULL REFERENCES battle_type(name),
				opponent1_class TEXT NOT NULL,
				opponent1_name TEXT NOT NULL,
				opponent2_class TEXT,
				opponent2_name TEXT,
				partner_class TEXT,
				partner_name TEXT,
				round INTEGER NOT NULL DEFAULT 0,
				lost INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (opponent1_class, opponent1_name) REFERENCES trainer(class, name),
				FOREIGN KEY (opponent2_class, opponent2_name) REFERENCES trainer(class, name),
				FOREIGN KEY (partner_class, partner_name) REFERENCES trainer(class, name)
			)`,
		},
	},
	{
		Version:     2,
		Description: "lookup indexes",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_location_region ON location(region)`,
			`CREATE INDEX IF NOT EXISTS idx_event_playthrough ON event(playthrough_id_no)`,
			`CREATE INDEX IF NOT EXISTS idx_trainer_name ON trainer(name)`,
		},
	},
}

// RunMigrations applies every migration newer than the database's recorded
// schema version, each in its own transaction.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	if err := ensureVersionTable(db); err != nil {
		return err
	}

	current := GetSchemaVersion(db)
	logging.Store("Schema version %d, target %d", current, CurrentSchemaVersion)

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			logging.Get(logging.CategoryStore).Error("Migration v%d failed: %v", m.Version, err)
			return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Description, err)
		}
		applied++
	}

	logging.Store("Schema migrations complete: applied=%d", applied)
	return nil
}

func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	logging.StoreDebug("Applied migration v%d: %s", m.Version, m.Description)
	return tx.Commit()
}

func ensureVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the highest applied schema version, or 0 for a
// fresh database.
func GetSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version); err != nil {
		logging.StoreDebug("Schema version lookup failed: %v", err)
		return 0
	}
	return int(version.Int64)
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("Table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}

// CreateBackup copies the database file next to itself and returns the
// backup's path. Used by `battlelog init` before touching an existing file.
func CreateBackup(dbPath string) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "CreateBackup")
	defer timer.Stop()

	backupPath := dbPath + fmt.Sprintf(".backup_%s", time.Now().Format("20060102_150405"))

	src, err := os.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source database: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return "", fmt.Errorf("failed to copy database to backup: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync backup to disk: %w", err)
	}

	logging.Store("Database backup created: %s (%d bytes)", backupPath, n)
	return backupPath, nil
}
