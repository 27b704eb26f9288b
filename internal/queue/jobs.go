package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// RemoteCleanupTask is scheduled when a file is deleted locally and the
	// host that stored it supports deletion.
	RemoteCleanupTask = "file:remote_cleanup"
)

// CleanupPayload tells the worker which remote copy to remove. Cleanup is
// best-effort: the registry entry is already gone by the time this runs.
type CleanupPayload struct {
	FileID         string `json:"file_id"`
	Service        string `json:"service"`
	ProviderFileID string `json:"provider_file_id"`
}

// EnqueueCleanup enqueues a remote deletion job.
func EnqueueCleanup(ctx context.Context, client *asynq.Client, payload CleanupPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(RemoteCleanupTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue cleanup task: %w", err)
	}
	return nil
}
