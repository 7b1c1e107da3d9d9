package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	"github.com/odyssey-erp/odyssey-school/jobs"
)

// TaskQueue is the subset of *asynq.Client the CLI needs.
type TaskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// QueueInspector is the subset of *asynq.Inspector the CLI needs.
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Close() error
}

// JobsCLI triggers permission cache jobs and prints queue state.
type JobsCLI struct {
	queue     TaskQueue
	inspector QueueInspector
}

// NewJobsCLI connects to the queue described by opts.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return NewJobsCLIWith(asynq.NewClient(opts), asynq.NewInspector(opts))
}

// NewJobsCLIWith wraps existing queue handles.
func NewJobsCLIWith(queue TaskQueue, inspector QueueInspector) *JobsCLI {
	return &JobsCLI{queue: queue, inspector: inspector}
}

// Close releases both handles and reports the first failure.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.queue != nil {
		errs = append(errs, c.queue.Close())
	}
	return errors.Join(errs...)
}

// BuildTask maps a task name and optional role onto a task.
func BuildTask(name, role string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskSnapshotWarm:
		parsed, err := rbac.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("%s needs --role: %w", name, err)
		}
		return jobs.NewSnapshotWarmTask(parsed)
	case jobs.TaskSnapshotWarmAll:
		return jobs.NewSnapshotWarmAllTask(), nil
	}
	return nil, fmt.Errorf("unsupported task %q", name)
}

// Trigger enqueues name on the rbac queue and prints the task id.
func (c *JobsCLI) Trigger(ctx context.Context, out io.Writer, name, role string) error {
	task, err := BuildTask(name, role)
	if err != nil {
		return err
	}
	info, err := c.queue.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueRBAC), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	_, err = fmt.Fprintf(out, "enqueued %s as %s on %s\n", name, info.ID, info.Queue)
	return err
}

// Inspect prints one row per queue. An empty queue name lists every queue
// known to Redis.
func (c *JobsCLI) Inspect(out io.Writer, queue string) error {
	names := []string{queue}
	if queue == "" {
		all, err := c.inspector.Queues()
		if err != nil {
			return fmt.Errorf("list queues: %w", err)
		}
		sort.Strings(all)
		names = all
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tPAUSED")
	for _, name := range names {
		info, err := c.inspector.GetQueueInfo(name)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", name, err)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", name, info.Pending, info.Active, info.Scheduled, info.Retry, mark(info.Paused))
	}
	return tw.Flush()
}
