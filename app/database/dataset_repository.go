package database

import (
	"fmt"
	"strings"

	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/features"
)

type datasetRepository struct {
	db *DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *DB) DatasetRepository {
	return &datasetRepository{db: db}
}

// Feature vectors are stored as one comma-joined TEXT column in schema
// order; individual values are numeric and never contain commas.
func encodeFeatures(rec features.Record) string {
	return strings.Join(rec.Values(), ",")
}

func decodeFeatures(s string) (features.Record, error) {
	return features.ParseValues(strings.Split(s, ","))
}

// LoadAll returns every stored row, phishing first to keep snapshot
// ordering stable across runs.
func (r *datasetRepository) LoadAll() ([]dataset.Row, error) {
	rows, err := r.db.Query(`
		SELECT url, target, verification_time, visible_text, features, result, fetch_date
		FROM dataset_rows
		ORDER BY result DESC, fetch_date, url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset rows: %w", err)
	}
	defer rows.Close()

	var result []dataset.Row
	for rows.Next() {
		var row dataset.Row
		var featureText string
		err := rows.Scan(
			&row.URL, &row.Target, &row.VerificationTime, &row.VisibleText,
			&featureText, &row.Result, &row.FetchDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset row: %w", err)
		}

		row.Features, err = decodeFeatures(featureText)
		if err != nil {
			return nil, fmt.Errorf("failed to decode features for %s: %w", row.URL, err)
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dataset rows: %w", err)
	}

	return result, nil
}

// ReplaceAll swaps the stored dataset for the given rows in a single
// transaction. Duplicate hashes within the batch collapse to one row.
func (r *datasetRepository) ReplaceAll(rows []dataset.Row) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM dataset_rows"); err != nil {
		return fmt.Errorf("failed to clear dataset rows: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO dataset_rows
			(row_hash, url, target, verification_time, visible_text, features, result, fetch_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.Exec(
			row.Hash(), row.URL, row.Target, row.VerificationTime,
			row.VisibleText, encodeFeatures(row.Features), row.Result, row.FetchDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert dataset row for %s: %w", row.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset replace: %w", err)
	}

	return nil
}

// GetStats returns row counts per label
func (r *datasetRepository) GetStats() (DatasetStats, error) {
	var stats DatasetStats
	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN result = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN result = 0 THEN 1 ELSE 0 END), 0)
		FROM dataset_rows
	`).Scan(&stats.Total, &stats.Phishing, &stats.Legitimate)
	if err != nil {
		return stats, fmt.Errorf("failed to get dataset stats: %w", err)
	}
	return stats, nil
}

// GetRootDomains returns the set of root domains already present in the
// dataset, used to exclude known hosts from new legitimate batches.
func (r *datasetRepository) GetRootDomains() (map[string]bool, error) {
	rows, err := r.db.Query("SELECT url FROM dataset_rows")
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset urls: %w", err)
	}
	defer rows.Close()

	domains := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		if domain := dataset.RootDomain(url); domain != "" {
			domains[domain] = true
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating urls: %w", err)
	}

	return domains, nil
}
