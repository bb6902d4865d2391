// Package store provides schema migrations for engram's local database.
// Migrations here are additive-only: a list of (table, column, definition)
// triples applied with ALTER TABLE ADD COLUMN when missing. There is no
// destructive migration path; a column that already exists, in whatever
// form, is left alone.
package store

import (
	"database/sql"
	"fmt"

	"engram/internal/logging"
)

// CurrentSchemaVersion tracks the additive schema generation. Bump it and
// append to pendingMigrations when a new column is introduced.
const CurrentSchemaVersion = 1

// Migration describes one additive column change.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after a table's initial creation.
// Empty for the first schema generation; future additive changes append here.
var pendingMigrations = []Migration{}

// RunMigrations applies any pending additive migrations. Safe to call on
// every startup: it is a no-op once a database is current.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	if len(pendingMigrations) == 0 {
		return setSchemaVersion(db, CurrentSchemaVersion)
	}

	applied, skipped := 0, 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			skipped++
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			logging.Get(logging.CategoryStore).Warn("migration failed for %s.%s: %v", m.Table, m.Column, err)
			skipped++
			continue
		}
		logging.Store("migration applied: %s.%s", m.Table, m.Column)
		applied++
	}

	logging.Store("schema migrations complete: applied=%d skipped=%d", applied, skipped)
	return setSchemaVersion(db, CurrentSchemaVersion)
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

func setSchemaVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return fmt.Errorf("create schema_meta: %w", err)
	}
	_, err := db.Exec(
		`INSERT INTO schema_meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprintf("%d", version),
	)
	return err
}

// GetSchemaVersion returns the database's recorded schema version, or 0 if
// none has been recorded yet.
func GetSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "schema_meta") {
		return 0
	}
	var value string
	if err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schema_version'`).Scan(&value); err != nil {
		return 0
	}
	var version int
	fmt.Sscanf(value, "%d", &version)
	return version
}
