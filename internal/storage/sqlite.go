package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alienxp03/mealjury/internal/core"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteStorage) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS estimates (
		id TEXT PRIMARY KEY,
		food_name TEXT NOT NULL,
		quantity TEXT,
		user_id TEXT,
		estimates_json TEXT NOT NULL,
		consensus_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS corrections (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		food_name TEXT NOT NULL,
		original_calories INTEGER NOT NULL,
		corrected_calories INTEGER NOT NULL,
		correction_factor REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS patterns (
		category TEXT PRIMARY KEY,
		avg_correction_factor REAL NOT NULL,
		correction_count INTEGER NOT NULL,
		confidence REAL NOT NULL,
		last_updated DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_corrections_user_id ON corrections(user_id);
	CREATE INDEX IF NOT EXISTS idx_estimates_created_at ON estimates(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveEstimate persists an estimation record with its inputs and result.
func (s *SQLiteStorage) SaveEstimate(record *core.EstimateRecord) error {
	estimatesJSON, err := json.Marshal(record.Estimates)
	if err != nil {
		return fmt.Errorf("failed to marshal estimates: %w", err)
	}
	consensusJSON, err := json.Marshal(record.Consensus)
	if err != nil {
		return fmt.Errorf("failed to marshal consensus: %w", err)
	}

	query := `
	INSERT INTO estimates (id, food_name, quantity, user_id, estimates_json, consensus_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		record.ID,
		record.FoodName,
		record.Quantity,
		record.UserID,
		string(estimatesJSON),
		string(consensusJSON),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert estimate: %w", err)
	}

	return nil
}

// GetEstimate retrieves an estimation record by ID.
func (s *SQLiteStorage) GetEstimate(id string) (*core.EstimateRecord, error) {
	query := `
	SELECT id, food_name, quantity, user_id, estimates_json, consensus_json, created_at
	FROM estimates
	WHERE id = ?
	`

	var record core.EstimateRecord
	var estimatesJSON, consensusJSON string

	err := s.db.QueryRow(query, id).Scan(
		&record.ID,
		&record.FoodName,
		&record.Quantity,
		&record.UserID,
		&estimatesJSON,
		&consensusJSON,
		&record.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get estimate: %w", err)
	}

	if err := json.Unmarshal([]byte(estimatesJSON), &record.Estimates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimates: %w", err)
	}
	if err := json.Unmarshal([]byte(consensusJSON), &record.Consensus); err != nil {
		return nil, fmt.Errorf("failed to unmarshal consensus: %w", err)
	}

	return &record, nil
}

// ListEstimates returns estimation records, newest first.
func (s *SQLiteStorage) ListEstimates(limit, offset int) ([]*core.EstimateRecord, error) {
	query := `
	SELECT id, food_name, quantity, user_id, estimates_json, consensus_json, created_at
	FROM estimates
	ORDER BY created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}
	defer rows.Close()

	var records []*core.EstimateRecord
	for rows.Next() {
		var record core.EstimateRecord
		var estimatesJSON, consensusJSON string

		err := rows.Scan(
			&record.ID,
			&record.FoodName,
			&record.Quantity,
			&record.UserID,
			&estimatesJSON,
			&consensusJSON,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan estimate: %w", err)
		}

		if err := json.Unmarshal([]byte(estimatesJSON), &record.Estimates); err != nil {
			return nil, fmt.Errorf("failed to unmarshal estimates: %w", err)
		}
		if err := json.Unmarshal([]byte(consensusJSON), &record.Consensus); err != nil {
			return nil, fmt.Errorf("failed to unmarshal consensus: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}

// DeleteEstimate deletes an estimation record.
func (s *SQLiteStorage) DeleteEstimate(id string) error {
	_, err := s.db.Exec("DELETE FROM estimates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete estimate: %w", err)
	}
	return nil
}

// SaveCorrection persists one user correction.
func (s *SQLiteStorage) SaveCorrection(correction *core.UserCorrection) error {
	query := `
	INSERT INTO corrections (id, user_id, food_name, original_calories, corrected_calories, correction_factor, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		correction.ID,
		correction.UserID,
		correction.FoodName,
		correction.OriginalCalories,
		correction.CorrectedCalories,
		correction.CorrectionFactor,
		correction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction: %w", err)
	}

	return nil
}

// ListCorrections returns a user's corrections, oldest first.
func (s *SQLiteStorage) ListCorrections(userID string) ([]*core.UserCorrection, error) {
	query := `
	SELECT id, user_id, food_name, original_calories, corrected_calories, correction_factor, created_at
	FROM corrections
	WHERE user_id = ?
	ORDER BY created_at ASC
	`
	return s.queryCorrections(query, userID)
}

// AllCorrections returns every correction, oldest first.
func (s *SQLiteStorage) AllCorrections() ([]*core.UserCorrection, error) {
	query := `
	SELECT id, user_id, food_name, original_calories, corrected_calories, correction_factor, created_at
	FROM corrections
	ORDER BY created_at ASC
	`
	return s.queryCorrections(query)
}

func (s *SQLiteStorage) queryCorrections(query string, args ...any) ([]*core.UserCorrection, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var corrections []*core.UserCorrection
	for rows.Next() {
		var c core.UserCorrection
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.FoodName,
			&c.OriginalCalories,
			&c.CorrectedCalories,
			&c.CorrectionFactor,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, &c)
	}

	return corrections, nil
}

// UpsertPattern inserts or replaces a learned correction pattern.
func (s *SQLiteStorage) UpsertPattern(pattern *core.CorrectionPattern) error {
	query := `
	INSERT INTO patterns (category, avg_correction_factor, correction_count, confidence, last_updated)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(category) DO UPDATE SET
		avg_correction_factor = excluded.avg_correction_factor,
		correction_count = excluded.correction_count,
		confidence = excluded.confidence,
		last_updated = excluded.last_updated
	`

	_, err := s.db.Exec(query,
		pattern.Category,
		pattern.AvgCorrectionFactor,
		pattern.CorrectionCount,
		pattern.Confidence,
		pattern.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}

	return nil
}

// ListPatterns returns all learned patterns.
func (s *SQLiteStorage) ListPatterns() ([]*core.CorrectionPattern, error) {
	query := `
	SELECT category, avg_correction_factor, correction_count, confidence, last_updated
	FROM patterns
	ORDER BY category ASC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*core.CorrectionPattern
	for rows.Next() {
		var p core.CorrectionPattern
		err := rows.Scan(
			&p.Category,
			&p.AvgCorrectionFactor,
			&p.CorrectionCount,
			&p.Confidence,
			&p.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		patterns = append(patterns, &p)
	}

	return patterns, nil
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mealjury.db"
	}
	return filepath.Join(home, ".mealjury", "mealjury.db")
}
