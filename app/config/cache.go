package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type Cache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewCache(sourcesDir string) *Cache {
	return &Cache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (c *Cache) Run() error {
	if _, err := os.Stat(c.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive source name from filename (remove .yml extension)
		fileName := filepath.Base(file)
		sourceName := fileName[:len(fileName)-4]

		cfg, err := c.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "source", sourceName, "kind", cfg.Source.Kind, "enabled", cfg.Settings.Enabled, "refresh_interval", cfg.Settings.RefreshInterval)
	}

	return nil
}

func (c *Cache) LoadConfig(sourceName string) (*Config, error) {
	configFile := c.getConfigFilePath(sourceName)
	sourceConfig, err := c.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = sourceName

	if err := c.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (c *Cache) GetConfig(sourceName string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sourceConfig, ok := c.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
}

func (c *Cache) GetConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(c.cache))
	for k, v := range c.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (c *Cache) GetEnabledConfigs() map[string]*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range c.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (c *Cache) GetConfigCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sourceConfig.Settings.Limit == 0 {
		sourceConfig.Settings.Limit = 100
	}
	if sourceConfig.Settings.RefreshInterval == 0 {
		sourceConfig.Settings.RefreshInterval = 86400
	}
	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 30
	}
	if sourceConfig.Settings.MinContentLength == 0 {
		sourceConfig.Settings.MinContentLength = 6000
	}
	if sourceConfig.Settings.ReferenceDate == "" {
		sourceConfig.Settings.ReferenceDate = "yesterday"
	}
	if sourceConfig.Settings.OversampleFactor == 0 {
		sourceConfig.Settings.OversampleFactor = 3
	}
	if sourceConfig.Settings.RetryAttempts == 0 {
		sourceConfig.Settings.RetryAttempts = 5
	}
	if sourceConfig.Settings.RetryDelay == 0 {
		sourceConfig.Settings.RetryDelay = 600
	}

	return &sourceConfig, nil
}

func (c *Cache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	requiredFields := map[string]string{
		"source name": sourceConfig.Name,
		"source URL":  sourceConfig.Source.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if sourceConfig.Source.Kind != KindPhishingFeed && sourceConfig.Source.Kind != KindPopularDomains {
		return fmt.Errorf("invalid source kind: %s", sourceConfig.Source.Kind)
	}

	if sourceConfig.Settings.ReferenceDate != "today" && sourceConfig.Settings.ReferenceDate != "yesterday" {
		return fmt.Errorf("invalid reference date: %s", sourceConfig.Settings.ReferenceDate)
	}

	nonNegativeFields := map[string]int{
		"limit":              sourceConfig.Settings.Limit,
		"refresh interval":   sourceConfig.Settings.RefreshInterval,
		"timeout":            sourceConfig.Settings.Timeout,
		"min content length": sourceConfig.Settings.MinContentLength,
		"oversample factor":  sourceConfig.Settings.OversampleFactor,
		"retry attempts":     sourceConfig.Settings.RetryAttempts,
		"retry delay":        sourceConfig.Settings.RetryDelay,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}

func (c *Cache) getConfigFilePath(sourceName string) string {
	return filepath.Join(c.sourcesDir, sourceName+".yml")
}
