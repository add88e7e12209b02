package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/idchenko/phishset/app/cfg"
	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/pipeline"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	sourceRepo  database.SourceRepository
	datasetRepo database.DatasetRepository
	configCache *config.Cache
	pipeline    *pipeline.Pipeline
	snapshots   SnapshotStore
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(configCache *config.Cache, sourceRepo database.SourceRepository,
	datasetRepo database.DatasetRepository, p *pipeline.Pipeline, snapshots SnapshotStore) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		sourceRepo:  sourceRepo,
		datasetRepo: datasetRepo,
		configCache: configCache,
		pipeline:    p,
		snapshots:   snapshots,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueSourceRun queues an immediate collection run for a source,
// bypassing its refresh schedule. Used by the API.
func (s *Scheduler) EnqueueSourceRun(sourceName string) error {
	sourceConfig, err := s.configCache.GetConfig(sourceName)
	if err != nil {
		return fmt.Errorf("unknown source: %w", err)
	}
	if !sourceConfig.Settings.Enabled {
		return fmt.Errorf("source %q is disabled", sourceName)
	}

	task, err := s.collectTaskFor(sourceConfig)
	if err != nil {
		return err
	}

	return s.EnqueueTask(task)
}

func (s *Scheduler) collectTaskFor(sourceConfig *config.Config) (TaskInterface, error) {
	switch sourceConfig.Source.Kind {
	case config.KindPhishingFeed:
		return NewCollectPhishingTask(sourceConfig.Name, sourceConfig, s.pipeline, s.sourceRepo, s.datasetRepo), nil
	case config.KindPopularDomains:
		return NewCollectLegitimateTask(sourceConfig.Name, sourceConfig, s.pipeline, s.sourceRepo, s.datasetRepo), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", sourceConfig.Source.Kind)
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		syncTask := NewSyncSourceConfigTask(sourceConfig.Name, sourceConfig, s.sourceRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceConfigTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Checking enabled sources for due collection runs", "count", len(sourceConfigs))

	enqueued := 0
	for _, sourceConfig := range sourceConfigs {
		source, err := s.sourceRepo.GetSource(sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}
		if source == nil {
			slog.Warn("Source not found in database, skipping", "source", sourceConfig.Name)
			continue
		}

		now := time.Now().UTC()
		if source.NextRunAt != nil && source.NextRunAt.After(now) {
			slog.Debug("Source not due for collection yet", "source", sourceConfig.Name, "next_run_at", source.NextRunAt)
			continue
		}

		task, err := s.collectTaskFor(sourceConfig)
		if err != nil {
			slog.Warn("Failed to build collection task", "source", sourceConfig.Name, "error", err)
			continue
		}
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue collection task", "source", sourceConfig.Name, "error", err)
			continue
		}
		enqueued++
	}

	// Republish after collection runs so the hub snapshot tracks the store
	if enqueued > 0 && s.snapshots != nil {
		publishTask := NewPublishDatasetTask(s.datasetRepo, s.snapshots)
		if err := s.EnqueueTask(publishTask); err != nil {
			slog.Warn("Failed to enqueue PublishDatasetTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
