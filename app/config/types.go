package config

// Source kinds determine which collection pipeline a source drives.
const (
	KindPhishingFeed   = "phishing_feed"
	KindPopularDomains = "popular_domains"
)

type Config struct {
	Source   SourceInfo     `yaml:"source"`
	Settings SourceSettings `yaml:"settings"`

	// Name is derived from the filename (without .yml extension)
	Name string `yaml:"-"`
}

type SourceInfo struct {
	Kind string `yaml:"kind"`
	URL  string `yaml:"url"`
}

type SourceSettings struct {
	Enabled         bool `yaml:"enabled"`
	Limit           int  `yaml:"limit"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	Timeout         int  `yaml:"timeout"`          // seconds, feed/list request

	// Quality filter threshold: minimum HTML length in bytes for a fetched
	// page to be usable. Observed values vary between 5000 and 6000.
	MinContentLength int `yaml:"min_content_length"`

	// ReferenceDate selects which verification day the phishing feed is
	// filtered to: "today" or "yesterday".
	ReferenceDate string `yaml:"reference_date"`

	// OversampleFactor inflates the number of candidate domains fetched on
	// the popular_domains path to compensate for dead or low-quality sites.
	OversampleFactor int `yaml:"oversample_factor"`

	RetryAttempts int `yaml:"retry_attempts"`
	RetryDelay    int `yaml:"retry_delay"` // seconds
}
