package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a random (version 4) UUID.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeIngestDocument parses, chunks, embeds and indexes one upload
	TaskTypeIngestDocument TaskType = "ingest_document"
)

// IngestMaxAttempts bounds redeliveries of an ingest task. Attempts are only
// consumed while the tenant lock is held elsewhere; pipeline failures are final.
const IngestMaxAttempts = 10

// Payload keys for ingest tasks
const (
	PayloadNamespace = "namespace"
	PayloadUploadID  = "upload_id"
	PayloadFileName  = "file_name"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// TenantID is the tenant this task belongs to
	TenantID string `json:"tenant_id"`

	// Payload contains task-specific data
	// For ingest_document: {"namespace": "...", "upload_id": "...", "file_name": "..."}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	Priority int `json:"priority"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, tenantID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		TenantID:     tenantID,
		Payload:      payload,
		Status:       TaskStatusPending,
		Priority:     0,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestTask creates the task that ingests an upload for a tenant
func NewIngestTask(u *Upload) *Task {
	t := NewTask(TaskTypeIngestDocument, u.TenantID.String(), map[string]string{
		PayloadNamespace: u.Namespace.String(),
		PayloadUploadID:  u.UploadID,
		PayloadFileName:  u.FileName,
	})
	t.MaxAttempts = IngestMaxAttempts
	return t
}

func (t *Task) payload(key string) string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload[key]
}

// Namespace extracts the namespace from an ingest payload
func (t *Task) Namespace() Namespace { return Namespace(t.payload(PayloadNamespace)) }

// UploadID extracts the upload id from an ingest payload
func (t *Task) UploadID() string { return t.payload(PayloadUploadID) }

// FileName extracts the original file name from an ingest payload
func (t *Task) FileName() string { return t.payload(PayloadFileName) }

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// 1s, 2s, 4s, 8s ... capped at 5 minutes
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// TaskResult represents the outcome of processing a task
type TaskResult struct {
	TaskID   string        `json:"task_id"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Pages    int           `json:"pages,omitempty"`
	Chunks   int           `json:"chunks,omitempty"`
}
