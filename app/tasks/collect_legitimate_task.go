package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/pipeline"
	"github.com/idchenko/phishset/app/sources"
)

type CollectLegitimateTask struct {
	Task
	SourceConfig *config.Config
	pipeline     *pipeline.Pipeline
	sourceRepo   database.SourceRepository
	datasetRepo  database.DatasetRepository
}

func NewCollectLegitimateTask(sourceName string, sourceConfig *config.Config, p *pipeline.Pipeline,
	sourceRepo database.SourceRepository, datasetRepo database.DatasetRepository) *CollectLegitimateTask {
	return &CollectLegitimateTask{
		Task:         NewTask(TaskTypeCollectLegitimate, sourceName),
		SourceConfig: sourceConfig,
		pipeline:     p,
		sourceRepo:   sourceRepo,
		datasetRepo:  datasetRepo,
	}
}

func (t *CollectLegitimateTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	settings := t.SourceConfig.Settings

	client := sources.NewTrancoClient(
		t.SourceConfig.Source.URL,
		time.Duration(settings.Timeout)*time.Second)

	// Oversample the ranking: many popular domains are dead, parked or
	// too thin to pass the quality filter.
	candidateCount := settings.Limit * settings.OversampleFactor
	domains, err := client.FetchTopDomains(ctx, candidateCount)
	if err != nil {
		return fmt.Errorf("failed to fetch domain ranking: %w", err)
	}

	known, err := t.datasetRepo.GetRootDomains()
	if err != nil {
		return fmt.Errorf("failed to load known domains: %w", err)
	}

	fresh := make([]string, 0, len(domains))
	for _, domain := range domains {
		if !known[domain] {
			fresh = append(fresh, domain)
		}
	}

	quality := pipeline.NewQualityFilter(settings.MinContentLength)
	rows := t.pipeline.CollectLegitimate(ctx, fresh, quality, settings.Limit)

	added, total, err := mergeIntoDataset(t.datasetRepo, rows)
	if err != nil {
		return fmt.Errorf("failed to store collected rows: %w", err)
	}

	if err := recordRunResult(t.sourceRepo, t.SourceName, settings.RefreshInterval, ""); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "CollectLegitimate",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"candidates", len(fresh),
		"collected", len(rows),
		"added", added,
		"dataset_total", total)

	return nil
}
