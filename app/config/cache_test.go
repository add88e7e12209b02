package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	content := `
source:
  kind: "phishing_feed"
  url: "http://data.phishtank.com/data/online-valid.json"

settings:
  enabled: true
  limit: 100
  refresh_interval: 86400
  timeout: 10
  min_content_length: 6000
  reference_date: "yesterday"
`

	err := os.WriteFile(filepath.Join(tempDir, "phishtank.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	err = cache.Run()
	if err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 source config, got %d", cache.GetConfigCount())
	}

	sourceConfig, err := cache.GetConfig("phishtank")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Name != "phishtank" {
		t.Errorf("Expected name 'phishtank', got '%s'", sourceConfig.Name)
	}
	if sourceConfig.Source.Kind != KindPhishingFeed {
		t.Errorf("Expected kind '%s', got '%s'", KindPhishingFeed, sourceConfig.Source.Kind)
	}
	if sourceConfig.Settings.Limit != 100 {
		t.Errorf("Expected limit 100, got %d", sourceConfig.Settings.Limit)
	}
	if sourceConfig.Settings.MinContentLength != 6000 {
		t.Errorf("Expected min content length 6000, got %d", sourceConfig.Settings.MinContentLength)
	}
	if sourceConfig.Settings.ReferenceDate != "yesterday" {
		t.Errorf("Expected reference date 'yesterday', got '%s'", sourceConfig.Settings.ReferenceDate)
	}
}

func TestCacheDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
source:
  kind: "popular_domains"
  url: "https://tranco-list.eu/top-1m.csv"

settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "tranco.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	sourceConfig, err := cache.GetConfig("tranco")
	if err != nil {
		t.Fatal(err)
	}

	if sourceConfig.Settings.Limit != 100 {
		t.Errorf("Expected default limit 100, got %d", sourceConfig.Settings.Limit)
	}
	if sourceConfig.Settings.RefreshInterval != 86400 {
		t.Errorf("Expected default refresh interval 86400, got %d", sourceConfig.Settings.RefreshInterval)
	}
	if sourceConfig.Settings.MinContentLength != 6000 {
		t.Errorf("Expected default min content length 6000, got %d", sourceConfig.Settings.MinContentLength)
	}
	if sourceConfig.Settings.ReferenceDate != "yesterday" {
		t.Errorf("Expected default reference date 'yesterday', got '%s'", sourceConfig.Settings.ReferenceDate)
	}
	if sourceConfig.Settings.OversampleFactor != 3 {
		t.Errorf("Expected default oversample factor 3, got %d", sourceConfig.Settings.OversampleFactor)
	}
	if sourceConfig.Settings.RetryAttempts != 5 {
		t.Errorf("Expected default retry attempts 5, got %d", sourceConfig.Settings.RetryAttempts)
	}
	if sourceConfig.Settings.RetryDelay != 600 {
		t.Errorf("Expected default retry delay 600, got %d", sourceConfig.Settings.RetryDelay)
	}
}

func TestCacheInvalidKind(t *testing.T) {
	tempDir := t.TempDir()

	content := `
source:
  kind: "rss_feed"
  url: "https://example.com/feed.xml"

settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "bad.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	err = cache.Run()
	if err == nil {
		t.Fatal("Expected error for invalid source kind")
	}
	if !strings.Contains(err.Error(), "invalid source kind") {
		t.Errorf("Expected invalid source kind error, got: %v", err)
	}
}

func TestCacheInvalidReferenceDate(t *testing.T) {
	tempDir := t.TempDir()

	content := `
source:
  kind: "phishing_feed"
  url: "http://data.phishtank.com/data/online-valid.json"

settings:
  enabled: true
  reference_date: "tomorrow"
`

	err := os.WriteFile(filepath.Join(tempDir, "bad.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	err = cache.Run()
	if err == nil {
		t.Fatal("Expected error for invalid reference date")
	}
	if !strings.Contains(err.Error(), "invalid reference date") {
		t.Errorf("Expected invalid reference date error, got: %v", err)
	}
}

func TestCacheMissingURL(t *testing.T) {
	tempDir := t.TempDir()

	content := `
source:
  kind: "phishing_feed"

settings:
  enabled: true
`

	err := os.WriteFile(filepath.Join(tempDir, "nourl.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	err = cache.Run()
	if err == nil {
		t.Fatal("Expected error for missing source URL")
	}
}

func TestCacheGetEnabledConfigs(t *testing.T) {
	tempDir := t.TempDir()

	enabled := `
source:
  kind: "phishing_feed"
  url: "http://data.phishtank.com/data/online-valid.json"
settings:
  enabled: true
`
	disabled := `
source:
  kind: "popular_domains"
  url: "https://tranco-list.eu/top-1m.csv"
settings:
  enabled: false
`

	if err := os.WriteFile(filepath.Join(tempDir, "on.yml"), []byte(enabled), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "off.yml"), []byte(disabled), 0644); err != nil {
		t.Fatal(err)
	}

	cache := NewCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetConfigCount() != 2 {
		t.Errorf("Expected 2 configs, got %d", cache.GetConfigCount())
	}

	enabledConfigs := cache.GetEnabledConfigs()
	if len(enabledConfigs) != 1 {
		t.Errorf("Expected 1 enabled config, got %d", len(enabledConfigs))
	}
	if _, ok := enabledConfigs["on"]; !ok {
		t.Error("Expected 'on' source to be enabled")
	}
}

func TestCacheMissingDirectory(t *testing.T) {
	cache := NewCache("/nonexistent/dir")
	if err := cache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if cache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", cache.GetConfigCount())
	}
}
