package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	args []any
	err  error
}

func (r *recordingExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func TestAuditLoggerRecord(t *testing.T) {
	db := &recordingExecer{}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))

	err := NewAuditLogger(db).Record(context.Background(), AuditLog{
		ActorID: 1, Action: "PERMISSION_SET_FLAG", Entity: "role_permission", EntityID: "teacher:students", At: at,
	})
	require.NoError(t, err)
	require.Len(t, db.args, 6)
	assert.Equal(t, []byte(`{}`), db.args[4])
	stamp, ok := db.args[5].(*time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, stamp.Location())
	assert.True(t, stamp.Equal(at))
}

func TestAuditLoggerRejectsIncompleteEntries(t *testing.T) {
	db := &recordingExecer{}
	err := NewAuditLogger(db).Record(context.Background(), AuditLog{Action: "X", Entity: "role_permission"})
	assert.ErrorContains(t, err, "entity id required")
	assert.Nil(t, db.args)

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: "X", Entity: "e", EntityID: "1"}))
}

func TestAuditLoggerWrapsInsertFailure(t *testing.T) {
	boom := errors.New("conn reset")
	err := NewAuditLogger(&recordingExecer{err: boom}).Record(context.Background(), AuditLog{Action: "X", Entity: "e", EntityID: "1"})
	assert.ErrorIs(t, err, boom)
}

func TestUserSafeMessage(t *testing.T) {
	assert.Empty(t, UserSafeMessage(nil))
	assert.Equal(t, "Invalid email or password.", UserSafeMessage(ErrInvalidCredentials))
	assert.Equal(t, "The request took too long, please try again.", UserSafeMessage(context.DeadlineExceeded))
	assert.Equal(t, "Something went wrong, please try again.", UserSafeMessage(errors.New("pq: relation missing")))
}
