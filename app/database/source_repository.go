package database

import (
	"database/sql"
	"fmt"
	"time"
)

type sourceRepository struct {
	db *DB
}

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *DB) SourceRepository {
	return &sourceRepository{db: db}
}

// Timestamps are stored as RFC3339 text so they round-trip through the
// sqlite driver without depending on declared-type conversion.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// UpsertSource inserts or updates a source from its configuration
func (r *sourceRepository) UpsertSource(name, kind, url string, enabled bool) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (name, kind, url, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET kind = excluded.kind, url = excluded.url, enabled = excluded.enabled,
		    updated_at = CURRENT_TIMESTAMP
	`, name, kind, url, enabled)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

// UpdateRunResult records the outcome of a collection run and schedules the next one
func (r *sourceRepository) UpdateRunResult(name string, lastRun, nextRun time.Time, runError string) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_run_at = ?, next_run_at = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, fmtTime(lastRun), fmtTime(nextRun), runError, name)

	if err != nil {
		return fmt.Errorf("failed to update run result: %w", err)
	}

	return nil
}

// GetSourcesDueForRun returns enabled sources whose next run time has passed
func (r *sourceRepository) GetSourcesDueForRun() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT name, kind, url, enabled, last_run_at, next_run_at, last_error, created_at, updated_at
		FROM sources
		WHERE enabled = 1
		  AND (next_run_at IS NULL OR next_run_at <= ?)
		ORDER BY COALESCE(next_run_at, '1970-01-01T00:00:00Z')
	`, fmtTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to get sources due for run: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// GetSource retrieves a source by its name
func (r *sourceRepository) GetSource(name string) (*Source, error) {
	row := r.db.QueryRow(`
		SELECT name, kind, url, enabled, last_run_at, next_run_at, last_error, created_at, updated_at
		FROM sources
		WHERE name = ?
	`, name)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// GetSourceCount returns the total number of sources
func (r *sourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (Source, error) {
	var source Source
	var lastRun, nextRun sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&source.Name, &source.Kind, &source.URL, &source.Enabled,
		&lastRun, &nextRun, &source.LastError,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return source, err
	}
	if err != nil {
		return source, fmt.Errorf("failed to scan source row: %w", err)
	}

	source.LastRunAt = parseTime(lastRun)
	source.NextRunAt = parseTime(nextRun)
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		source.CreatedAt = t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
		source.UpdatedAt = t
	}

	return source, nil
}
