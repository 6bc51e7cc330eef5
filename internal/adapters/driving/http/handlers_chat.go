package http

import (
	"net/http"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// ChatRequest is a question from the public chat page or the admin preview
type ChatRequest struct {
	Question string `json:"question" example:"How many guests can the hall seat?"`
	TopK     int    `json:"topK,omitempty" example:"6"`
	// Token is the share token of the public chat link. Without it the
	// request must carry an operator session.
	Token string `json:"token,omitempty"`
}

// handleChat godoc
// @Summary      Ask a question
// @Description  Answers from the tenant's brochure. A share token selects the public path; otherwise an operator session is required.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      ChatRequest  true  "Question"
// @Success      200      {object}  domain.Answer
// @Failure      400      {object}  ErrorResponse  "Missing or malformed question"
// @Failure      401      {object}  ErrorResponse  "Invalid session or share token"
// @Failure      429      {object}  ErrorResponse  "Rate limited"
// @Failure      500      {object}  ErrorResponse  "Answering failed"
// @Router       /chat [post]
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		ref    domain.TenantRef
		public = req.Token != ""
		err    error
	)
	if public {
		ref, err = s.tenantResolver.FromShareToken(r.Context(), req.Token)
		if err != nil {
			s.writeServiceError(w, err, "unauthorized")
			return
		}
		if !s.limiter.Allow(req.Token) {
			s.writeServiceError(w, domain.ErrRateLimited, "")
			return
		}
	} else {
		authCtx, status, msg := NewAuthMiddleware(s.authService).resolve(r)
		if authCtx == nil {
			writeError(w, status, msg)
			return
		}
		ref, err = s.tenantResolver.FromSession(authCtx)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	q, err := domain.NewQuestion(req.Question, req.TopK)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}

	answer, err := s.chatService.Ask(r.Context(), ref, q, public)
	s.metrics.ObserveChat(answer, err, public)
	if err != nil {
		s.writeServiceError(w, err, "could not answer right now, please try again")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
