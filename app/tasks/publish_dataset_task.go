package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/dataset"
)

// PublishDatasetTask merges the locally collected rows into the published
// hub snapshot and uploads the replacement. The published file only ever
// grows: rows present remotely but not locally are preserved.
type PublishDatasetTask struct {
	Task
	datasetRepo database.DatasetRepository
	snapshots   SnapshotStore
}

func NewPublishDatasetTask(datasetRepo database.DatasetRepository, snapshots SnapshotStore) *PublishDatasetTask {
	return &PublishDatasetTask{
		Task:        NewTask(TaskTypePublishDataset, ""),
		datasetRepo: datasetRepo,
		snapshots:   snapshots,
	}
}

func (t *PublishDatasetTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	local, err := t.datasetRepo.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load stored dataset: %w", err)
	}
	if len(local) == 0 {
		slog.Debug("No local rows to publish, skipping")
		return nil
	}

	remote, err := t.snapshots.DownloadLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to download published snapshot: %w", err)
	}

	codec := dataset.NewCodec()

	var published []dataset.Row
	if remote != nil {
		published, err = codec.Decode(remote)
		if err != nil {
			return fmt.Errorf("failed to decode published snapshot: %w", err)
		}
	}

	merged := dataset.NewMerger().Run(published, local)
	if len(merged) == len(published) {
		slog.Info("Task completed", "type", "PublishDataset", "duration", t.GetDuration(), "published", len(published), "added", 0)
		return nil
	}

	data, err := codec.Encode(merged)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := t.snapshots.UploadReplacement(ctx, data); err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	slog.Info("Task completed",
		"type", "PublishDataset",
		"duration", t.GetDuration(),
		"published", len(merged),
		"added", len(merged)-len(published))

	return nil
}
