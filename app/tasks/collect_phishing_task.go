package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/pipeline"
	"github.com/idchenko/phishset/app/sources"
)

type CollectPhishingTask struct {
	Task
	SourceConfig *config.Config
	pipeline     *pipeline.Pipeline
	sourceRepo   database.SourceRepository
	datasetRepo  database.DatasetRepository
}

func NewCollectPhishingTask(sourceName string, sourceConfig *config.Config, p *pipeline.Pipeline,
	sourceRepo database.SourceRepository, datasetRepo database.DatasetRepository) *CollectPhishingTask {
	return &CollectPhishingTask{
		Task:         NewTask(TaskTypeCollectPhishing, sourceName),
		SourceConfig: sourceConfig,
		pipeline:     p,
		sourceRepo:   sourceRepo,
		datasetRepo:  datasetRepo,
	}
}

func (t *CollectPhishingTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	settings := t.SourceConfig.Settings

	client := sources.NewPhishTankClient(
		t.SourceConfig.Source.URL,
		time.Duration(settings.Timeout)*time.Second,
		settings.RetryAttempts,
		time.Duration(settings.RetryDelay)*time.Second)

	entries, err := client.FetchEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch phishing feed: %w", err)
	}

	verified := sources.FilterVerified(entries, settings.ReferenceDate, time.Now())
	if settings.Limit > 0 && len(verified) > settings.Limit {
		verified = verified[:settings.Limit]
	}

	quality := pipeline.NewQualityFilter(settings.MinContentLength)
	rows := t.pipeline.CollectPhishing(ctx, verified, quality)

	added, total, err := mergeIntoDataset(t.datasetRepo, rows)
	if err != nil {
		return fmt.Errorf("failed to store collected rows: %w", err)
	}

	if err := recordRunResult(t.sourceRepo, t.SourceName, settings.RefreshInterval, ""); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "CollectPhishing",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"candidates", len(verified),
		"collected", len(rows),
		"added", added,
		"dataset_total", total)

	return nil
}

// mergeIntoDataset folds freshly collected rows into the stored dataset,
// deduplicating on the exact-row hash.
func mergeIntoDataset(datasetRepo database.DatasetRepository, rows []dataset.Row) (int, int, error) {
	existing, err := datasetRepo.LoadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load stored dataset: %w", err)
	}

	merged := dataset.NewMerger().Run(existing, rows)
	if err := datasetRepo.ReplaceAll(merged); err != nil {
		return 0, 0, fmt.Errorf("failed to replace stored dataset: %w", err)
	}

	return len(merged) - len(existing), len(merged), nil
}

func recordRunResult(sourceRepo database.SourceRepository, sourceName string, refreshInterval int, runError string) error {
	now := time.Now().UTC()
	nextRun := now.Add(time.Duration(refreshInterval) * time.Second)

	if err := sourceRepo.UpdateRunResult(sourceName, now, nextRun, runError); err != nil {
		return fmt.Errorf("failed to record run result: %w", err)
	}

	return nil
}
