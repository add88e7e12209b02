package tasks

import (
	"context"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background collection.
// Example usage:
//
//	scheduler := NewScheduler(configCache, sourceRepo, datasetRepo, pipeline, hubClient)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewPublishDatasetTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	EnqueueSourceRun(sourceName string) error
}

// SnapshotStore is the hub surface the publish task needs: pull the
// current published snapshot, push a replacement.
type SnapshotStore interface {
	DownloadLatest(ctx context.Context) ([]byte, error)
	UploadReplacement(ctx context.Context, data []byte) error
}
