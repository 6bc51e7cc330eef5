package http

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// multipartOverhead is headroom above the file limit for form boundaries
const multipartOverhead = 1 << 20

// UploadResponse acknowledges an accepted upload
// @Description Upload accepted, ingestion runs in the background
type UploadResponse struct {
	OK       bool                `json:"ok" example:"true"`
	Status   domain.UploadStatus `json:"status" example:"processing"`
	UploadID string              `json:"uploadId"`
}

// LinkResponse carries a public chat URL
type LinkResponse struct {
	URL string `json:"url" example:"https://bot.example.com/chat?token=eyJ..."`
}

// handleUpload godoc
// @Summary      Upload a brochure
// @Description  Stores the PDF and schedules ingestion. Returns immediately; poll /admin/status for the outcome.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "PDF brochure"
// @Success      200   {object}  UploadResponse
// @Failure      400   {object}  ErrorResponse  "Missing or invalid file"
// @Failure      401   {object}  ErrorResponse  "Unauthorized"
// @Failure      413   {object}  ErrorResponse  "File too large"
// @Router       /upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.sessionTenant(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	upload, err := s.uploadService.Upload(r.Context(), ref, driving.UploadRequest{
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) {
			s.logger.Error("upload failed", zap.String("namespace", ref.Namespace.String()), zap.Error(err))
		}
		s.writeServiceError(w, err, "upload failed")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		OK:       true,
		Status:   upload.Status,
		UploadID: upload.UploadID,
	})
}

// handleStatus godoc
// @Summary      Document status
// @Description  Returns the tenant's document status. Counts are present once ingestion has finished.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UploadStatusView
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /admin/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.sessionTenant(w, r)
	if !ok {
		return
	}

	view, err := s.uploadService.Status(r.Context(), ref)
	if err != nil {
		s.logger.Error("status read failed", zap.String("namespace", ref.Namespace.String()), zap.Error(err))
		s.writeServiceError(w, err, "could not read status")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleShareLink godoc
// @Summary      Get the public chat link
// @Description  Returns the tenant's share link, minting it on first use. Stable until regenerated.
// @Tags         Sharing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  LinkResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /admin/share-link [get]
func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.sessionTenant(w, r)
	if !ok {
		return
	}

	url, err := s.shareLinkService.Link(r.Context(), ref)
	if err != nil {
		s.logger.Error("share link failed", zap.String("namespace", ref.Namespace.String()), zap.Error(err))
		s.writeServiceError(w, err, "could not issue share link")
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{URL: url})
}

// handleRegenerateLink godoc
// @Summary      Regenerate the public chat link
// @Description  Mints a new share token and replaces the stored link
// @Tags         Sharing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  LinkResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /admin/regenerate-link [post]
func (s *Server) handleRegenerateLink(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.sessionTenant(w, r)
	if !ok {
		return
	}

	url, err := s.shareLinkService.Regenerate(r.Context(), ref)
	if err != nil {
		s.logger.Error("share link regeneration failed", zap.String("namespace", ref.Namespace.String()), zap.Error(err))
		s.writeServiceError(w, err, "could not regenerate share link")
		return
	}
	writeJSON(w, http.StatusOK, LinkResponse{URL: url})
}

// handleAnalytics godoc
// @Summary      Question analytics
// @Description  Totals and the five most asked questions for the range
// @Tags         Analytics
// @Produce      json
// @Security     BearerAuth
// @Param        range  query     string  false  "7d, 30d or all"  default(7d)
// @Success      200    {object}  domain.Analytics
// @Failure      400    {object}  ErrorResponse  "Invalid range"
// @Failure      401    {object}  ErrorResponse  "Unauthorized"
// @Router       /admin/analytics [get]
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ref, ok := s.sessionTenant(w, r)
	if !ok {
		return
	}

	rng, err := domain.ParseAnalyticsRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "range must be 7d, 30d or all")
		return
	}

	summary, err := s.analyticsService.Summary(r.Context(), ref.ID, rng)
	if err != nil {
		s.logger.Error("analytics failed", zap.String("namespace", ref.Namespace.String()), zap.Error(err))
		s.writeServiceError(w, err, "could not load analytics")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleEmbeddingDiagnostics godoc
// @Summary      Embedding diagnostics
// @Description  Embeds a probe string with the configured provider and reports the vector size
// @Tags         Diagnostics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.EmbeddingDiagnostics
// @Failure      502  {object}  ErrorResponse  "Provider failed"
// @Failure      503  {object}  ErrorResponse  "Provider not configured"
// @Router       /admin/diagnostics/embedding [get]
func (s *Server) handleEmbeddingDiagnostics(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionTenant(w, r); !ok {
		return
	}

	diag, err := s.runtime.EmbeddingDiagnostics(r.Context())
	if err != nil {
		s.logger.Warn("embedding diagnostics failed", zap.Error(err))
		s.writeServiceError(w, err, "embedding provider failed")
		return
	}
	writeJSON(w, http.StatusOK, diag)
}
