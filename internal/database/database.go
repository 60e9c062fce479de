// Package database persists monitored sources, issued warnings, lifetime
// detection counters, and runtime configuration in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Counter keys tracked in detector_stats.
const (
	CounterSourcesMonitored = "sources_monitored"
	CounterWarningsIssued   = "warnings_issued"
	CounterFlashesDetected  = "flashes_detected"
)

// Database handles SQLite database operations.
type Database struct {
	db *sql.DB
}

// SourceRecord represents a monitored video source.
type SourceRecord struct {
	ID        string
	Label     string
	Status    string
	CreatedAt time.Time
}

// WarningRecord represents an issued flash warning.
type WarningRecord struct {
	ID                  string
	SourceID            string
	Kind                string
	FlashesInWindow     int
	MaxFlashesPerWindow int
	TotalFlashCount     int
	PositionMs          float64
	IssuedAt            time.Time
}

// New creates a new database connection.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations.
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			status TEXT DEFAULT 'idle',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS warnings (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			flashes_in_window INTEGER NOT NULL,
			max_flashes_per_window INTEGER NOT NULL,
			total_flash_count INTEGER NOT NULL,
			position_ms REAL NOT NULL,
			issued_at DATETIME NOT NULL,
			FOREIGN KEY (source_id) REFERENCES sources(id)
		)`,
		`CREATE TABLE IF NOT EXISTS detector_stats (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS app_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_warnings_source_time ON warnings(source_id, issued_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_warnings_time ON warnings(issued_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveSource saves or updates a monitored source.
func (d *Database) SaveSource(src *SourceRecord) error {
	query := `INSERT INTO sources (id, label, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			status = excluded.status`

	_, err := d.db.Exec(query, src.ID, src.Label, src.Status, src.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

// GetSource retrieves a source by ID, or nil if it does not exist.
func (d *Database) GetSource(id string) (*SourceRecord, error) {
	query := `SELECT id, label, status, created_at FROM sources WHERE id = ?`

	var src SourceRecord
	err := d.db.QueryRow(query, id).Scan(&src.ID, &src.Label, &src.Status, &src.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &src, nil
}

// ListSources returns all sources, newest first.
func (d *Database) ListSources() ([]*SourceRecord, error) {
	query := `SELECT id, label, status, created_at FROM sources ORDER BY created_at DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*SourceRecord
	for rows.Next() {
		var src SourceRecord
		if err := rows.Scan(&src.ID, &src.Label, &src.Status, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, &src)
	}
	return sources, nil
}

// UpdateSourceStatus updates only the status of a source.
func (d *Database) UpdateSourceStatus(id, status string) error {
	_, err := d.db.Exec("UPDATE sources SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}
	return nil
}

// DeleteSource deletes a source by ID.
func (d *Database) DeleteSource(id string) error {
	_, err := d.db.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// SaveWarning saves an issued warning.
func (d *Database) SaveWarning(w *WarningRecord) error {
	query := `INSERT INTO warnings
		(id, source_id, kind, flashes_in_window, max_flashes_per_window, total_flash_count, position_ms, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query, w.ID, w.SourceID, w.Kind, w.FlashesInWindow,
		w.MaxFlashesPerWindow, w.TotalFlashCount, w.PositionMs, w.IssuedAt)
	if err != nil {
		return fmt.Errorf("failed to save warning: %w", err)
	}
	return nil
}

// ListWarnings returns warnings with optional filtering, newest first.
func (d *Database) ListWarnings(sourceID string, since *time.Time, limit int) ([]*WarningRecord, error) {
	query := `SELECT id, source_id, kind, flashes_in_window, max_flashes_per_window,
		total_flash_count, position_ms, issued_at
		FROM warnings WHERE 1=1`
	args := []interface{}{}

	if sourceID != "" {
		query += " AND source_id = ?"
		args = append(args, sourceID)
	}
	if since != nil {
		query += " AND issued_at >= ?"
		args = append(args, *since)
	}

	query += " ORDER BY issued_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}
	defer rows.Close()

	var warnings []*WarningRecord
	for rows.Next() {
		var w WarningRecord
		if err := rows.Scan(&w.ID, &w.SourceID, &w.Kind, &w.FlashesInWindow,
			&w.MaxFlashesPerWindow, &w.TotalFlashCount, &w.PositionMs, &w.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		warnings = append(warnings, &w)
	}
	return warnings, nil
}

// DeleteOldWarnings deletes warnings issued before the given time.
func (d *Database) DeleteOldWarnings(before time.Time) (int64, error) {
	result, err := d.db.Exec("DELETE FROM warnings WHERE issued_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old warnings: %w", err)
	}
	return result.RowsAffected()
}

// IncrementCounter atomically adds delta to a lifetime counter.
func (d *Database) IncrementCounter(key string, delta int64) error {
	query := `INSERT INTO detector_stats (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = value + excluded.value`

	_, err := d.db.Exec(query, key, delta)
	if err != nil {
		return fmt.Errorf("failed to increment counter %s: %w", key, err)
	}
	return nil
}

// GetCounter returns the current value of a lifetime counter (0 if unset).
func (d *Database) GetCounter(key string) (int64, error) {
	var value int64
	err := d.db.QueryRow("SELECT value FROM detector_stats WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	return value, nil
}

// GetCounters returns all lifetime counters.
func (d *Database) GetCounters() (map[string]int64, error) {
	rows, err := d.db.Query("SELECT key, value FROM detector_stats")
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int64)
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		counters[key] = value
	}
	return counters, nil
}

// SaveConfig saves a configuration value.
func (d *Database) SaveConfig(key, value string) error {
	query := `INSERT INTO app_config (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`

	_, err := d.db.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GetConfig retrieves a configuration value ("" if unset).
func (d *Database) GetConfig(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM app_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config: %w", err)
	}
	return value, nil
}

// ListConfigs returns all configuration values.
func (d *Database) ListConfigs() (map[string]string, error) {
	rows, err := d.db.Query("SELECT key, value FROM app_config")
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		configs[key] = value
	}
	return configs, nil
}

// DeleteConfig deletes a configuration value.
func (d *Database) DeleteConfig(key string) error {
	_, err := d.db.Exec("DELETE FROM app_config WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	return nil
}
