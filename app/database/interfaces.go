package database

import (
	"time"

	"github.com/idchenko/phishset/app/dataset"
)

type SourceRepository interface {
	GetSource(name string) (*Source, error)
	GetSourceCount() (int, error)

	UpsertSource(name, kind, url string, enabled bool) error
	UpdateRunResult(name string, lastRun, nextRun time.Time, runError string) error
	GetSourcesDueForRun() ([]Source, error)
}

type DatasetRepository interface {
	LoadAll() ([]dataset.Row, error)
	ReplaceAll(rows []dataset.Row) error
	GetStats() (DatasetStats, error)
	GetRootDomains() (map[string]bool, error)
}
