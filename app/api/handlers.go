package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/tasks"
)

func NewHandler(configCache *config.Cache, sourceRepo database.SourceRepository,
	datasetRepo database.DatasetRepository, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		configCache: configCache,
		sourceRepo:  sourceRepo,
		datasetRepo: datasetRepo,
		codec:       dataset.NewCodec(),
		scheduler:   scheduler,
	}
}

// GetDataset serves the current stored dataset as a CSV snapshot.
func (h *Handler) GetDataset(c *gin.Context) {
	rows, err := h.datasetRepo.LoadAll()
	if err != nil {
		slog.Error("Database error", "operation", "load_dataset", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	data, err := h.codec.Encode(rows)
	if err != nil {
		slog.Error("Snapshot encoding error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("X-Dataset-Rows", strconv.Itoa(len(rows)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.datasetRepo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"total":      stats.Total,
		"phishing":   stats.Phishing,
		"legitimate": stats.Legitimate,
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sourceInfos := make([]map[string]interface{}, 0, len(configs))

	for _, sourceConfig := range configs {
		info := map[string]interface{}{
			"name":             sourceConfig.Name,
			"kind":             sourceConfig.Source.Kind,
			"url":              sourceConfig.Source.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"limit":            sourceConfig.Settings.Limit,
			"refresh_interval": (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		}

		if source, err := h.sourceRepo.GetSource(sourceConfig.Name); err == nil && source != nil {
			info["last_run_at"] = source.LastRunAt
			info["next_run_at"] = source.NextRunAt
			info["last_error"] = source.LastError
		}

		sourceInfos = append(sourceInfos, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sourceInfos,
		"total":   len(sourceInfos),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if source == nil {
		slog.Error("Source not found in database", "source", name)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found in database"})
		return
	}

	details := map[string]interface{}{
		"name":               name,
		"kind":               sourceConfig.Source.Kind,
		"url":                sourceConfig.Source.URL,
		"enabled":            sourceConfig.Settings.Enabled,
		"limit":              sourceConfig.Settings.Limit,
		"refresh_interval":   (time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second).String(),
		"timeout":            (time.Duration(sourceConfig.Settings.Timeout) * time.Second).String(),
		"min_content_length": sourceConfig.Settings.MinContentLength,
	}

	if sourceConfig.Source.Kind == config.KindPhishingFeed {
		details["reference_date"] = sourceConfig.Settings.ReferenceDate
	}
	if sourceConfig.Source.Kind == config.KindPopularDomains {
		details["oversample_factor"] = sourceConfig.Settings.OversampleFactor
	}

	details["database"] = map[string]interface{}{
		"last_run_at": source.LastRunAt,
		"next_run_at": source.NextRunAt,
		"last_error":  source.LastError,
		"created_at":  source.CreatedAt,
		"updated_at":  source.UpdatedAt,
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIRunSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	if err := h.scheduler.EnqueueSourceRun(name); err != nil {
		slog.Error("Failed to enqueue source run", "source", name, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Collection run scheduled",
		"source":  name,
	})
}
