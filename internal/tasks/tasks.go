package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Checks a photo once its upload URL expired
	TypeReconcileUpload = "upload:reconcile"
	// Periodic sweep of pending photos whose reconcile task was lost
	TypeSweepStaleUploads = "upload:sweep_stale"
)

// Queue names, weighted by the worker
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// reconcileGrace is added to the presign TTL before reconciling
const reconcileGrace = time.Minute

// TaskPayload is the common payload for all tasks
type TaskPayload struct {
	PhotoID string `json:"photo_id,omitempty"`
}

// NewReconcileUploadTask creates a task checking photoID against storage
func NewReconcileUploadTask(photoID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{
		PhotoID: photoID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeReconcileUpload, payload), nil
}

// ReconcileUploadOptions delays reconciliation until the upload URL
// issued with presignTTL can no longer be used
func ReconcileUploadOptions(presignTTL time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.ProcessIn(presignTTL + reconcileGrace),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
	}
}

// NewSweepStaleUploadsTask creates the periodic sweep task
func NewSweepStaleUploadsTask() *asynq.Task {
	return asynq.NewTask(TypeSweepStaleUploads, nil)
}

// ParseTaskPayload parses task payload from Asynq task
func ParseTaskPayload(task *asynq.Task) (TaskPayload, error) {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
