package domain

import "time"

// UploadStatus is the ingestion state of a tenant's document.
type UploadStatus string

const (
	UploadStatusIdle       UploadStatus = "idle"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusReady      UploadStatus = "ready"
	UploadStatusError      UploadStatus = "error"
)

// IsTerminal reports whether polling can stop.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusReady || s == UploadStatusError
}

// Upload is the tenant's current brochure. Exactly one per tenant.
type Upload struct {
	TenantID  TenantID  `json:"tenant_id"`
	Namespace Namespace `json:"namespace"`
	// UploadID identifies the most recent upload; ingestion results for any
	// other id are discarded.
	UploadID  string       `json:"upload_id"`
	FileName  string       `json:"file_name,omitempty"`
	FileSize  int64        `json:"file_size,omitempty"`
	Status    UploadStatus `json:"status"`
	Pages     int          `json:"pages"`
	Chunks    int          `json:"chunks"`
	Error     string       `json:"error,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewIdleUpload is the status view for a tenant that never uploaded.
func NewIdleUpload(ref TenantRef) *Upload {
	return &Upload{
		TenantID:  ref.ID,
		Namespace: ref.Namespace,
		Status:    UploadStatusIdle,
	}
}

// IsStuck reports whether the upload has been processing longer than limit.
func (u *Upload) IsStuck(now time.Time, limit time.Duration) bool {
	if u.Status != UploadStatusProcessing || limit <= 0 {
		return false
	}
	return now.Sub(u.StartedAt) > limit
}

// IngestResult summarises one successful ingestion.
type IngestResult struct {
	Pages  int `json:"pages"`
	Chunks int `json:"chunks"`
}

// UploadStatusView is the status payload returned to operators.
type UploadStatusView struct {
	Namespace Namespace    `json:"namespace"`
	Status    UploadStatus `json:"status"`
	FileName  string       `json:"fileName,omitempty"`
	Pages     *int         `json:"pages,omitempty"`
	Chunks    *int         `json:"chunks,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt *time.Time   `json:"updatedAt,omitempty"`
}

// View converts the record into the status payload. Counts are only
// reported once ingestion has finished.
func (u *Upload) View() *UploadStatusView {
	v := &UploadStatusView{
		Namespace: u.Namespace,
		Status:    u.Status,
		FileName:  u.FileName,
		Error:     u.Error,
	}
	if u.Status == UploadStatusReady {
		pages, chunks := u.Pages, u.Chunks
		v.Pages = &pages
		v.Chunks = &chunks
	}
	if !u.UpdatedAt.IsZero() {
		updated := u.UpdatedAt
		v.UpdatedAt = &updated
	}
	return v
}
