package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueRBAC carries permission cache maintenance.
	QueueRBAC = "rbac"
	// TaskSnapshotWarm primes the permission snapshot of one role.
	TaskSnapshotWarm = "rbac:snapshot:warm"
	// TaskSnapshotWarmAll primes every editable role; scheduled nightly.
	TaskSnapshotWarmAll = "rbac:snapshot:warm_all"
)

// SnapshotWarmPayload names the role to warm.
type SnapshotWarmPayload struct {
	Role string `json:"role"`
}

// NewSnapshotWarmTask constructs the per-role warm task.
func NewSnapshotWarmTask(role rbac.Role) (*asynq.Task, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("jobs: %w: %q", rbac.ErrInvalidRole, role)
	}
	data, err := json.Marshal(SnapshotWarmPayload{Role: string(role)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotWarm, data), nil
}

// NewSnapshotWarmAllTask constructs the fan-out warm task.
func NewSnapshotWarmAllTask() *asynq.Task {
	return asynq.NewTask(TaskSnapshotWarmAll, nil)
}
