package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up:      migration001InitialSchema,
	},
	{
		Version: 2,
		Name:    "add_match_settings_table",
		Up:      migration002AddMatchSettingsTable,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue // Already applied
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			migration.Version, migration.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migration001InitialSchema(tx *sql.Tx) error {
	// Dates are stored as ISO-8601 text so window queries can compare
	// lexicographically; amounts are stored as decimal strings and cast
	// only inside pre-filter queries.
	statements := []string{
		`CREATE TABLE invoice_records (
			id TEXT PRIMARY KEY,
			document_number TEXT NOT NULL,
			issue_date TEXT NOT NULL,
			supplier_nif TEXT NOT NULL DEFAULT '',
			supplier_name TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'EUR',
			matching_status TEXT NOT NULL DEFAULT 'unmatched',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_invoice_records_status ON invoice_records(matching_status)`,
		`CREATE INDEX idx_invoice_records_issue_date ON invoice_records(issue_date)`,

		`CREATE TABLE bank_movements (
			id TEXT PRIMARY KEY,
			movement_date TEXT NOT NULL,
			value_date TEXT,
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			matching_status TEXT NOT NULL DEFAULT 'unmatched',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_bank_movements_status ON bank_movements(matching_status)`,
		`CREATE INDEX idx_bank_movements_date ON bank_movements(movement_date)`,

		`CREATE TABLE match_results (
			id TEXT PRIMARY KEY,
			invoice_id TEXT NOT NULL REFERENCES invoice_records(id),
			movement_id TEXT NOT NULL REFERENCES bank_movements(id),
			confidence REAL NOT NULL,
			matching_method TEXT NOT NULL,
			date_difference INTEGER NOT NULL,
			amount_difference TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'proposed',
			confirmed_by TEXT,
			confirmed_at TEXT,
			rejected_by TEXT,
			rejected_at TEXT,
			rejection_reason TEXT,
			created_at TEXT NOT NULL
		)`,
		// One active match per record side. Rejected results do not block a
		// new proposal between the same records.
		`CREATE UNIQUE INDEX idx_match_results_active_invoice
			ON match_results(invoice_id) WHERE status != 'rejected'`,
		`CREATE UNIQUE INDEX idx_match_results_active_movement
			ON match_results(movement_id) WHERE status != 'rejected'`,
		`CREATE INDEX idx_match_results_status ON match_results(status)`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func migration002AddMatchSettingsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE match_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	return err
}
