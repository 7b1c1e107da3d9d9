package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// SnapshotWarmer loads a role's snapshot into the cache.
type SnapshotWarmer interface {
	WarmSnapshot(ctx context.Context, role rbac.Role) (int64, error)
}

// JobRecorder counts task executions.
type JobRecorder interface {
	RecordJob(task string, err error)
}

// SnapshotWarmJob keeps the Redis permission snapshots populated.
type SnapshotWarmJob struct {
	Warmer  SnapshotWarmer
	Logger  *slog.Logger
	Metrics JobRecorder
}

// NewSnapshotWarmJob wires dependencies for the warm handlers.
func NewSnapshotWarmJob(warmer SnapshotWarmer, logger *slog.Logger, metrics JobRecorder) *SnapshotWarmJob {
	return &SnapshotWarmJob{Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSnapshotWarm.
func (j *SnapshotWarmJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Warmer == nil {
		return errors.New("snapshot warm: handler not configured")
	}
	defer func() { j.record(TaskSnapshotWarm, err) }()

	var payload SnapshotWarmPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("snapshot warm: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	role, err := rbac.ParseRole(payload.Role)
	if err != nil {
		return fmt.Errorf("snapshot warm: %v: %w", err, asynq.SkipRetry)
	}
	epoch, err := j.Warmer.WarmSnapshot(ctx, role)
	if err != nil {
		j.logger().Error("snapshot warm failed", slog.String("role", string(role)), slog.Any("error", err))
		return err
	}
	j.logger().Info("snapshot warmed", slog.String("role", string(role)), slog.Int64("epoch", epoch))
	return nil
}

// HandleAll processes TaskSnapshotWarmAll. Every role is attempted; the
// first failure is returned so asynq retries the batch.
func (j *SnapshotWarmJob) HandleAll(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Warmer == nil {
		return errors.New("snapshot warm: handler not configured")
	}
	defer func() { j.record(TaskSnapshotWarmAll, err) }()

	var firstErr error
	for _, role := range rbac.EditableRoles() {
		if _, werr := j.Warmer.WarmSnapshot(ctx, role); werr != nil {
			j.logger().Error("snapshot warm failed", slog.String("role", string(role)), slog.Any("error", werr))
			if firstErr == nil {
				firstErr = werr
			}
		}
	}
	return firstErr
}

func (j *SnapshotWarmJob) record(task string, err error) {
	if j.Metrics != nil {
		j.Metrics.RecordJob(task, err)
	}
}

func (j *SnapshotWarmJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
