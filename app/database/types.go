package database

import (
	"time"
)

type Source struct {
	Name      string // Configuration source identifier derived from filename
	Kind      string // phishing_feed or popular_domains
	URL       string
	Enabled   bool
	LastRunAt *time.Time
	NextRunAt *time.Time
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DatasetStats struct {
	Total      int
	Phishing   int
	Legitimate int
}
