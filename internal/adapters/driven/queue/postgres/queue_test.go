package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

var taskRowColumns = []string{
	"id", "type", "tenant_id", "payload", "status", "priority",
	"attempts", "max_attempts", "error", "created_at", "updated_at",
	"started_at", "completed_at", "scheduled_for",
}

func newMockQueue(t *testing.T) (*Queue, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	q := NewQueue(db)
	q.pollInterval = 5 * time.Millisecond
	return q, mock
}

func taskRow(id string, status domain.TaskStatus, attempts, maxAttempts int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(taskRowColumns).AddRow(
		id, string(domain.TaskTypeIngestDocument), "owner@venue.test",
		[]byte(`{"upload_id":"u1","namespace":"t_00"}`), string(status), 0,
		attempts, maxAttempts, "", now, now, nil, nil, now,
	)
}

func TestQueue_Enqueue(t *testing.T) {
	q, mock := newMockQueue(t)
	task := domain.NewTask(domain.TaskTypeIngestDocument, "owner@venue.test", map[string]string{"upload_id": "u1"})

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(task.ID, sqlmock.AnyArg(), "owner@venue.test", []byte(`{"upload_id":"u1"}`),
			sqlmock.AnyArg(), 0, 0, 3, "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, q.Enqueue(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_EnqueueNil(t *testing.T) {
	q, _ := newMockQueue(t)
	assert.Error(t, q.Enqueue(context.Background(), nil))
}

func TestQueue_DequeueClaimsTask(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM tasks").WillReturnRows(taskRow("task-1", domain.TaskStatusPending, 0, 10))
	mock.ExpectExec("UPDATE tasks").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := q.DequeueWithTimeout(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, task)

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, domain.TaskStatusProcessing, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, "u1", task.UploadID())
	assert.NotNil(t, task.StartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM tasks").WillReturnRows(sqlmock.NewRows(taskRowColumns))
	mock.ExpectRollback()

	task, err := q.DequeueWithTimeout(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_DequeueStopsOnCancel(t *testing.T) {
	q, mock := newMockQueue(t)
	q.pollInterval = time.Hour

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM tasks").WillReturnRows(sqlmock.NewRows(taskRowColumns))
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	task, err := q.DequeueWithTimeout(ctx, 60)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestQueue_Ack(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectExec("UPDATE tasks").
		WithArgs(string(domain.TaskStatusCompleted), sqlmock.AnyArg(), "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.Ack(context.Background(), "task-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_AckUnknown(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

	err := q.Ack(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueue_NackReschedules(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("task-1").
		WillReturnRows(taskRow("task-1", domain.TaskStatusProcessing, 1, 10))
	mock.ExpectExec("UPDATE tasks").
		WithArgs(string(domain.TaskStatusPending), "lock held", sqlmock.AnyArg(), sqlmock.AnyArg(), "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.Nack(context.Background(), "task-1", "lock held"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_NackExhausted(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("task-1").
		WillReturnRows(taskRow("task-1", domain.TaskStatusProcessing, 10, 10))
	mock.ExpectExec("UPDATE tasks").
		WithArgs(string(domain.TaskStatusFailed), "lock held", sqlmock.AnyArg(), sqlmock.AnyArg(), "task-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, q.Nack(context.Background(), "task-1", "lock held"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_NackUnknown(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").WillReturnRows(sqlmock.NewRows(taskRowColumns))

	err := q.Nack(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueue_Stats(t *testing.T) {
	q, mock := newMockQueue(t)

	mock.ExpectQuery("SELECT status, COUNT").WillReturnRows(
		sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 4).
			AddRow("processing", 1).
			AddRow("completed", 9).
			AddRow("failed", 2),
	)

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.PendingCount)
	assert.Equal(t, int64(1), stats.ProcessingCount)
	assert.Equal(t, int64(2), stats.FailedCount)
}
