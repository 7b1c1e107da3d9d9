package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

type stubWarmer struct {
	warmed []rbac.Role
	fail   map[rbac.Role]error
}

func (s *stubWarmer) WarmSnapshot(_ context.Context, role rbac.Role) (int64, error) {
	s.warmed = append(s.warmed, role)
	if err := s.fail[role]; err != nil {
		return 0, err
	}
	return 1, nil
}

type stubRecorder struct {
	tasks  []string
	failed int
}

func (s *stubRecorder) RecordJob(task string, err error) {
	s.tasks = append(s.tasks, task)
	if err != nil {
		s.failed++
	}
}

func TestSnapshotWarmHandle(t *testing.T) {
	warmer := &stubWarmer{}
	recorder := &stubRecorder{}
	job := NewSnapshotWarmJob(warmer, nil, recorder)

	task, err := NewSnapshotWarmTask(rbac.RoleTeacher)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []rbac.Role{rbac.RoleTeacher}, warmer.warmed)
	assert.Equal(t, []string{TaskSnapshotWarm}, recorder.tasks)
	assert.Zero(t, recorder.failed)
}

func TestSnapshotWarmHandleSkipsRetryOnBadPayload(t *testing.T) {
	recorder := &stubRecorder{}
	job := NewSnapshotWarmJob(&stubWarmer{}, nil, recorder)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSnapshotWarm, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskSnapshotWarm, []byte(`{"role":"principal"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 2, recorder.failed)
}

func TestSnapshotWarmHandleReturnsWarmError(t *testing.T) {
	boom := errors.New("db down")
	job := NewSnapshotWarmJob(&stubWarmer{fail: map[rbac.Role]error{rbac.RoleParent: boom}}, nil, nil)
	task, err := NewSnapshotWarmTask(rbac.RoleParent)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestSnapshotWarmHandleAllAttemptsEveryRole(t *testing.T) {
	boom := errors.New("redis down")
	warmer := &stubWarmer{fail: map[rbac.Role]error{rbac.RoleParent: boom}}
	job := NewSnapshotWarmJob(warmer, nil, nil)

	err := job.HandleAll(context.Background(), NewSnapshotWarmAllTask())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, rbac.EditableRoles(), warmer.warmed)
}

func TestSnapshotWarmRequiresWarmer(t *testing.T) {
	var job *SnapshotWarmJob
	assert.Error(t, job.HandleAll(context.Background(), NewSnapshotWarmAllTask()))
}

func TestNewSnapshotWarmTaskRejectsUnknownRole(t *testing.T) {
	_, err := NewSnapshotWarmTask(rbac.Role("ghost"))
	assert.ErrorIs(t, err, rbac.ErrInvalidRole)
}
