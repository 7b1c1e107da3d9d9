package jobs

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var unreachable = asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

func TestNewWorkerValidatesRegistrations(t *testing.T) {
	_, err := NewWorker(WorkerConfig{
		RedisOpts: unreachable,
		Cron:      []CronRegistration{{Spec: "not a cron", Task: NewSnapshotWarmAllTask()}},
	})
	assert.ErrorContains(t, err, "register cron")

	_, err = NewWorker(WorkerConfig{
		RedisOpts: unreachable,
		Cron:      []CronRegistration{{Spec: "@daily"}},
	})
	assert.ErrorContains(t, err, "no task")

	_, err = NewWorker(WorkerConfig{
		RedisOpts: unreachable,
		Handlers:  []TaskHandler{{Type: TaskSnapshotWarm}},
	})
	assert.ErrorContains(t, err, "incomplete handler")

	w, err := NewWorker(WorkerConfig{
		RedisOpts: unreachable,
		Handlers: []TaskHandler{{Type: TaskSnapshotWarm, Handler: func(context.Context, *asynq.Task) error {
			return nil
		}}},
	})
	require.NoError(t, err)
	assert.Nil(t, w.scheduler, "no cron entries, no scheduler")
}

func TestNilWorkerRun(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Run(context.Background()))
}

func TestAsynqLoggerWritesThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	l := asynqLogger{slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	l.Info("scheduler ", "started")
	l.Fatal("lost connection")

	out := buf.String()
	assert.Contains(t, out, `msg="scheduler started"`)
	assert.Contains(t, out, "component=asynq")
	assert.Contains(t, out, "fatal=true")
}
