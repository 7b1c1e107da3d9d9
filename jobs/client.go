package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// Enqueuer is the subset of *asynq.Client used by Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits permission cache jobs.
type Client struct {
	enqueuer Enqueuer
}

var errNoClient = errors.New("jobs: client not configured")

// NewClient dials Redis through asynq.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{enqueuer: asynq.NewClient(redisOpts)}
}

// NewClientWith wraps an existing enqueuer.
func NewClientWith(enqueuer Enqueuer) *Client {
	return &Client{enqueuer: enqueuer}
}

var _ rbac.SnapshotWarmer = (*Client)(nil)

// EnqueueSnapshotWarm schedules a cache warm-up for role. Repeated requests
// for the same role within a minute collapse into one task.
func (c *Client) EnqueueSnapshotWarm(ctx context.Context, role rbac.Role) error {
	if c == nil || c.enqueuer == nil {
		return errNoClient
	}
	task, err := NewSnapshotWarmTask(role)
	if err != nil {
		return err
	}
	_, err = c.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(QueueRBAC),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
		asynq.Unique(time.Minute),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	if c == nil || c.enqueuer == nil {
		return nil
	}
	return c.enqueuer.Close()
}
