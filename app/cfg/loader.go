package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./phishset.db" description:"Path to the SQLite dataset database"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for collection tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Fetch configuration
	FetchConcurrency int    `long:"fetch-concurrency" env:"FETCH_CONCURRENCY" default:"5" description:"Maximum number of in-flight page fetches"`
	FetchSizeLimit   int    `long:"fetch-size-limit" env:"FETCH_SIZE_LIMIT" default:"225280" description:"Page fetch size ceiling in bytes"`
	UserAgent        string `long:"user-agent" env:"USER_AGENT" description:"Override user agent for page fetches (default: rotating browser pool)"`

	// Remote dataset store configuration
	HubEndpoint string `long:"hub-endpoint" env:"HUB_ENDPOINT" default:"https://huggingface.co" description:"Remote dataset store endpoint"`
	HubRepo     string `long:"hub-repo" env:"HUB_REPO" description:"Remote dataset repository identifier"`
	HubFilename string `long:"hub-filename" env:"HUB_FILENAME" default:"phish_dataset.csv" description:"Dataset snapshot filename in the remote repository"`
	HubToken    string `long:"hub-token" env:"HUB_TOKEN" description:"Bearer token for the remote dataset store"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		FetchConcurrency:  raw.FetchConcurrency,
		FetchSizeLimit:    raw.FetchSizeLimit,
		UserAgent:         raw.UserAgent,
		HubEndpoint:       raw.HubEndpoint,
		HubRepo:           raw.HubRepo,
		HubFilename:       raw.HubFilename,
		HubToken:          raw.HubToken,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
