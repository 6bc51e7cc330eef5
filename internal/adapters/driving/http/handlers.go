package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/swaggo/swag"
	"go.uber.org/zap"

	_ "github.com/custodia-labs/brochurebot/docs"
	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports dependency health
// @Description Readiness with per-dependency results
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
}

// MeResponse is the signed-in operator and their tenant namespace
type MeResponse struct {
	OperatorID string           `json:"operator_id"`
	Email      string           `json:"email"`
	Name       string           `json:"name"`
	TenantID   domain.TenantID  `json:"tenant_id"`
	Namespace  domain.Namespace `json:"namespace"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness of the API process
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Checks Postgres, Redis (when configured), the vector index and the embedding provider
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true
	record := func(name string, err error) {
		if err != nil {
			checks[name] = err.Error()
			ready = false
			return
		}
		checks[name] = "ok"
	}

	if s.db != nil {
		record("postgres", s.db.Ping(ctx))
	}
	if s.redisClient != nil {
		record("redis", s.redisClient.Ping(ctx))
	}
	if s.index != nil {
		record("vector_index", s.index.HealthCheck(ctx))
	}
	if s.runtime != nil {
		var err error
		if !s.runtime.Config().EmbeddingAvailable() {
			err = errors.New("not configured")
		}
		record("embedding", err)
	}

	resp := ReadyResponse{Status: "ready", Checks: checks}
	status := http.StatusOK
	if !ready {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.cfg.Version})
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Auth endpoints

// handleLogin godoc
// @Summary      Operator login
// @Description  Authenticate with email and password to receive a session token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "email and password are required")
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case domain.ErrUnauthorized:
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			s.logger.Error("login failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout operator
// @Description  Invalidate the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := extractToken(r); token != "" {
		if err := s.authService.Logout(r.Context(), token); err != nil {
			s.logger.Warn("logout failed", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleGetMe godoc
// @Summary      Get current operator
// @Description  Returns the signed-in operator and the tenant namespace their session resolves to
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MeResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /auth/me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	ref, ok := s.sessionTenant(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		OperatorID: authCtx.OperatorID,
		Email:      authCtx.Email,
		Name:       authCtx.Name,
		TenantID:   ref.ID,
		Namespace:  ref.Namespace,
	})
}

// sessionTenant resolves the tenant of the authenticated operator. It
// writes the error response and returns false on failure.
func (s *Server) sessionTenant(w http.ResponseWriter, r *http.Request) (domain.TenantRef, bool) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.TenantRef{}, false
	}
	ref, err := s.tenantResolver.FromSession(authCtx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.TenantRef{}, false
	}
	return ref, true
}

// writeServiceError maps a service error to a status code and a safe message
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "token expired")
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrUpstreamProvider):
		writeError(w, http.StatusBadGateway, fallback)
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// maxJSONBody bounds JSON request bodies
const maxJSONBody = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
