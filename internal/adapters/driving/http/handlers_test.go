package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
	"github.com/custodia-labs/brochurebot/internal/core/services"
	"github.com/custodia-labs/brochurebot/internal/runtime"
)

// Mock services for testing

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
	logoutFn        func(ctx context.Context, token string) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, operatorID string) error {
	return nil
}

func (m *mockAuthService) CreateOperator(ctx context.Context, req domain.CreateOperatorRequest) (*domain.OperatorSummary, error) {
	return nil, errors.New("not implemented")
}

type mockUploadService struct {
	uploadFn func(ctx context.Context, ref domain.TenantRef, req driving.UploadRequest) (*domain.Upload, error)
	statusFn func(ctx context.Context, ref domain.TenantRef) (*domain.UploadStatusView, error)
}

func (m *mockUploadService) Upload(ctx context.Context, ref domain.TenantRef, req driving.UploadRequest) (*domain.Upload, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, ref, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUploadService) Status(ctx context.Context, ref domain.TenantRef) (*domain.UploadStatusView, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, ref)
	}
	return domain.NewIdleUpload(ref).View(), nil
}

type mockChatService struct {
	askFn func(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error)
}

func (m *mockChatService) Ask(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error) {
	if m.askFn != nil {
		return m.askFn(ctx, ref, q, public)
	}
	return domain.NewFallbackAnswer(), nil
}

type mockAnalyticsService struct {
	summaryFn func(ctx context.Context, tenantID domain.TenantID, r domain.AnalyticsRange) (*domain.Analytics, error)
}

func (m *mockAnalyticsService) Summary(ctx context.Context, tenantID domain.TenantID, r domain.AnalyticsRange) (*domain.Analytics, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, tenantID, r)
	}
	return &domain.Analytics{Range: r, Top: []domain.QuestionCount{}}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

const (
	testSessionToken = "session-token"
	testOperatorMail = "Owner@Acme.test"
)

type testEnv struct {
	server    *Server
	handler   http.Handler
	signer    *mocks.MockShareSigner
	tenants   *mocks.MockTenantStore
	uploads   *mockUploadService
	chat      *mockChatService
	analytics *mockAnalyticsService
	runtime   *runtime.Services
}

func newTestEnv(t *testing.T, mutate func(*Config, *Deps)) *testEnv {
	t.Helper()

	auth := &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			if token != testSessionToken {
				return nil, domain.ErrTokenInvalid
			}
			return &domain.AuthContext{
				OperatorID: "op-1",
				Email:      testOperatorMail,
				Name:       "Acme Venues",
				SessionID:  "sess-1",
			}, nil
		},
	}

	env := &testEnv{
		signer:    mocks.NewMockShareSigner(),
		tenants:   mocks.NewMockTenantStore(),
		uploads:   &mockUploadService{},
		chat:      &mockChatService{},
		analytics: &mockAnalyticsService{},
		runtime:   runtime.NewServices(domain.NewRuntimeConfig("postgres", "qdrant")),
	}

	cfg := DefaultConfig()
	cfg.Version = "test"
	deps := Deps{
		Auth:      auth,
		Uploads:   env.uploads,
		Chat:      env.chat,
		ShareLink: services.NewShareLinkService(env.tenants, env.signer, "https://bot.example.com", nil),
		Analytics: env.analytics,
		Tenants:   services.NewTenantResolver(env.signer, env.tenants, false),
		Runtime:   env.runtime,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	env.server = NewServer(cfg, deps)
	env.handler = env.server.Handler()
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testSessionToken)
	return req
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, field, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(data)
	} else {
		_ = mw.WriteField("note", "no file here")
	}
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error
}

func sessionNamespace(t *testing.T) domain.Namespace {
	t.Helper()
	id, err := domain.NewTenantID(testOperatorMail)
	if err != nil {
		t.Fatalf("tenant id: %v", err)
	}
	return id.Namespace()
}

// Health endpoints

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var resp StatusResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("expected ok, got %q", resp.Status)
	}
}

func TestHandleVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(httptest.NewRequest("GET", "/version", nil))

	var resp VersionResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Version != "test" {
		t.Errorf("expected version test, got %q", resp.Version)
	}
}

func TestHandleReady(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *Config, deps *Deps) {
			deps.DB = stubPinger{}
			deps.Redis = stubPinger{}
		})
		env.runtime.SetEmbeddingService(domain.AIProviderOpenAI, mocks.NewMockEmbeddingService())

		rr := env.do(httptest.NewRequest("GET", "/ready", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp ReadyResponse
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "ok" || resp.Checks["embedding"] != "ok" {
			t.Errorf("unexpected checks %v", resp.Checks)
		}
	})

	t.Run("database down", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *Config, deps *Deps) {
			deps.DB = stubPinger{err: errors.New("connection refused")}
		})
		env.runtime.SetEmbeddingService(domain.AIProviderOpenAI, mocks.NewMockEmbeddingService())

		rr := env.do(httptest.NewRequest("GET", "/ready", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", rr.Code)
		}
		var resp ReadyResponse
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		if resp.Checks["postgres"] != "connection refused" {
			t.Errorf("expected postgres failure reported, got %v", resp.Checks)
		}
	})

	t.Run("embedding not configured", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rr := env.do(httptest.NewRequest("GET", "/ready", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})
}

func TestHandleSwagger(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(httptest.NewRequest("GET", "/swagger/doc.json", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "BrochureBot API") {
		t.Error("expected api title in swagger document")
	}
}

func TestMetricsEndpoint_NilMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404 without metrics, got %d", rr.Code)
	}
}

// Auth endpoints

func TestHandleLogin(t *testing.T) {
	tests := []struct {
		name       string
		authErr    error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "missing fields", authErr: domain.ErrInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "bad password", authErr: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "disabled account", authErr: domain.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "store failure", authErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(cfg *Config, deps *Deps) {
				deps.Auth.(*mockAuthService).authenticateFn = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
					if tt.authErr != nil {
						return nil, tt.authErr
					}
					return &domain.LoginResponse{
						Token:     "new-token",
						ExpiresAt: time.Now().Add(time.Hour),
						Operator:  &domain.OperatorSummary{Email: req.Email},
					}, nil
				}
			})

			rr := env.do(jsonRequest(t, "POST", "/auth/login", domain.LoginRequest{Email: "owner@acme.test", Password: "pw"}))
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var cookie *http.Cookie
			for _, c := range rr.Result().Cookies() {
				if c.Name == SessionCookie {
					cookie = c
				}
			}
			if cookie == nil || cookie.Value != "new-token" || !cookie.HttpOnly {
				t.Errorf("expected http-only session cookie, got %+v", cookie)
			}
		})
	}
}

func TestHandleLogin_InvalidBody(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader("{not json"))
	rr := env.do(req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleLogout(t *testing.T) {
	var loggedOut string
	env := newTestEnv(t, func(cfg *Config, deps *Deps) {
		deps.Auth.(*mockAuthService).logoutFn = func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		}
	})

	rr := env.do(authed(httptest.NewRequest("POST", "/auth/logout", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if loggedOut != testSessionToken {
		t.Errorf("expected session token logged out, got %q", loggedOut)
	}
}

func TestHandleGetMe(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(authed(httptest.NewRequest("GET", "/auth/me", nil)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp MeResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.TenantID != "owner@acme.test" {
		t.Errorf("expected normalised tenant id, got %q", resp.TenantID)
	}
	if resp.Namespace != sessionNamespace(t) {
		t.Errorf("expected namespace %q, got %q", sessionNamespace(t), resp.Namespace)
	}
}

func TestHandleGetMe_CookieSession(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: testSessionToken})

	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

// Upload endpoints

func TestHandleUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	var got driving.UploadRequest
	var gotRef domain.TenantRef
	env.uploads.uploadFn = func(ctx context.Context, ref domain.TenantRef, req driving.UploadRequest) (*domain.Upload, error) {
		got, gotRef = req, ref
		return &domain.Upload{UploadID: "up-1", Status: domain.UploadStatusProcessing}, nil
	}

	pdf := []byte("%PDF-1.7 brochure")
	rr := env.do(authed(multipartRequest(t, "file", "brochure.pdf", pdf)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp UploadResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if !resp.OK || resp.Status != domain.UploadStatusProcessing || resp.UploadID != "up-1" {
		t.Errorf("unexpected response %+v", resp)
	}
	if got.FileName != "brochure.pdf" || !bytes.Equal(got.Data, pdf) {
		t.Errorf("upload service received %q with %d bytes", got.FileName, len(got.Data))
	}
	if gotRef.Namespace != sessionNamespace(t) {
		t.Errorf("expected session namespace, got %q", gotRef.Namespace)
	}
}

func TestHandleUpload_Errors(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rr := env.do(multipartRequest(t, "file", "brochure.pdf", []byte("%PDF-")))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rr.Code)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rr := env.do(authed(multipartRequest(t, "", "", nil)))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		env := newTestEnv(t, nil)
		req := authed(jsonRequest(t, "POST", "/upload", map[string]string{"file": "x"}))
		rr := env.do(req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("file too large", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *Config, deps *Deps) {
			cfg.MaxUploadBytes = 1024
		})
		called := false
		env.uploads.uploadFn = func(ctx context.Context, ref domain.TenantRef, req driving.UploadRequest) (*domain.Upload, error) {
			called = true
			return nil, nil
		}

		data := append([]byte("%PDF-"), bytes.Repeat([]byte("a"), 2048)...)
		rr := env.do(authed(multipartRequest(t, "file", "big.pdf", data)))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected status 413, got %d", rr.Code)
		}
		if called {
			t.Error("upload service must not see oversized files")
		}
	})

	t.Run("rejected by service", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.uploads.uploadFn = func(ctx context.Context, ref domain.TenantRef, req driving.UploadRequest) (*domain.Upload, error) {
			return nil, errors.Join(domain.ErrInvalidInput, errors.New("file is not a PDF"))
		}
		rr := env.do(authed(multipartRequest(t, "file", "notes.txt", []byte("hello"))))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	pages, chunks := 4, 12
	env.uploads.statusFn = func(ctx context.Context, ref domain.TenantRef) (*domain.UploadStatusView, error) {
		return &domain.UploadStatusView{
			Namespace: ref.Namespace,
			Status:    domain.UploadStatusReady,
			FileName:  "brochure.pdf",
			Pages:     &pages,
			Chunks:    &chunks,
		}, nil
	}

	rr := env.do(authed(httptest.NewRequest("GET", "/admin/status", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var view domain.UploadStatusView
	_ = json.NewDecoder(rr.Body).Decode(&view)
	if view.Status != domain.UploadStatusReady || view.Pages == nil || *view.Pages != 4 || *view.Chunks != 12 {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestHandleStatus_Idle(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(authed(httptest.NewRequest("GET", "/admin/status", nil)))

	var raw map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&raw)
	if raw["status"] != "idle" {
		t.Errorf("expected idle, got %v", raw["status"])
	}
	if _, ok := raw["pages"]; ok {
		t.Error("idle status must not report page counts")
	}
}

// Share link endpoints

func TestHandleShareLink_StableUntilRegenerated(t *testing.T) {
	env := newTestEnv(t, nil)

	link := func(method, path string) string {
		rr := env.do(authed(httptest.NewRequest(method, path, nil)))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s %s: expected status 200, got %d", method, path, rr.Code)
		}
		var resp LinkResponse
		_ = json.NewDecoder(rr.Body).Decode(&resp)
		return resp.URL
	}

	first := link("GET", "/admin/share-link")
	if !strings.HasPrefix(first, "https://bot.example.com/chat?token=") {
		t.Fatalf("unexpected link %q", first)
	}
	if again := link("GET", "/admin/share-link"); again != first {
		t.Errorf("expected stable link, got %q then %q", first, again)
	}

	regenerated := link("POST", "/admin/regenerate-link")
	if regenerated == first {
		t.Error("expected a new link after regeneration")
	}
	if after := link("GET", "/admin/share-link"); after != regenerated {
		t.Errorf("expected regenerated link to persist, got %q", after)
	}
}

func TestHandleShareLink_Unauthenticated(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(httptest.NewRequest("GET", "/admin/share-link", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

// Chat endpoint

func TestHandleChat_ShareToken(t *testing.T) {
	env := newTestEnv(t, nil)
	token, _, err := env.signer.Issue("owner@acme.test", "Acme Venues", 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotRef domain.TenantRef
	var gotPublic bool
	var gotQuestion domain.Question
	env.chat.askFn = func(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error) {
		gotRef, gotPublic, gotQuestion = ref, public, q
		return &domain.Answer{Text: "It seats 200 guests [1].", Citations: []int{1}}, nil
	}

	rr := env.do(jsonRequest(t, "POST", "/chat", ChatRequest{Question: "  How many guests?  ", Token: token}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var answer domain.Answer
	_ = json.NewDecoder(rr.Body).Decode(&answer)
	if answer.Text != "It seats 200 guests [1]." || len(answer.Citations) != 1 || answer.Citations[0] != 1 {
		t.Errorf("unexpected answer %+v", answer)
	}
	if !gotPublic {
		t.Error("expected public caller")
	}
	if gotRef.Namespace != sessionNamespace(t) {
		t.Errorf("share token and session must resolve to the same namespace, got %q", gotRef.Namespace)
	}
	if gotQuestion.Text != "How many guests?" || gotQuestion.TopK != domain.DefaultTopK {
		t.Errorf("unexpected question %+v", gotQuestion)
	}
}

func TestHandleChat_Session(t *testing.T) {
	env := newTestEnv(t, nil)
	var gotPublic = true
	var gotTopK int
	env.chat.askFn = func(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error) {
		gotPublic, gotTopK = public, q.TopK
		return domain.NewFallbackAnswer(), nil
	}

	rr := env.do(authed(jsonRequest(t, "POST", "/chat", ChatRequest{Question: "Parking?", TopK: 500})))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotPublic {
		t.Error("expected operator caller")
	}
	if gotTopK != domain.MaxTopK {
		t.Errorf("expected topK clamped to %d, got %d", domain.MaxTopK, gotTopK)
	}

	var raw map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&raw)
	if raw["answer"] != domain.FallbackAnswer {
		t.Errorf("expected fallback answer, got %v", raw["answer"])
	}
}

func TestHandleChat_Errors(t *testing.T) {
	expired := mocks.NewMockShareSigner()
	expired.Now = func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }
	expiredToken, _, _ := expired.Issue("owner@acme.test", "", 1)

	tests := []struct {
		name       string
		req        ChatRequest
		session    bool
		askErr     error
		wantStatus int
	}{
		{name: "no token no session", req: ChatRequest{Question: "hi"}, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", req: ChatRequest{Question: "hi", Token: "not-a-token"}, wantStatus: http.StatusUnauthorized},
		{name: "expired token", req: ChatRequest{Question: "hi", Token: expiredToken}, wantStatus: http.StatusUnauthorized},
		{name: "empty question", req: ChatRequest{Question: "   "}, session: true, wantStatus: http.StatusBadRequest},
		{name: "question too long", req: ChatRequest{Question: strings.Repeat("q", domain.MaxQuestionLength+1)}, session: true, wantStatus: http.StatusBadRequest},
		{name: "provider failure", req: ChatRequest{Question: "hi"}, session: true, askErr: domain.ErrUpstreamProvider, wantStatus: http.StatusBadGateway},
		{name: "unexpected failure", req: ChatRequest{Question: "hi"}, session: true, askErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.chat.askFn = func(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error) {
				if tt.askErr != nil {
					return nil, tt.askErr
				}
				return domain.NewFallbackAnswer(), nil
			}

			req := jsonRequest(t, "POST", "/chat", tt.req)
			if tt.session {
				authed(req)
			}
			rr := env.do(req)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleChat_RateLimitedPerToken(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, deps *Deps) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})
	token, _, _ := env.signer.Issue("owner@acme.test", "", 1)
	other, _, _ := env.signer.Issue("other@venue.test", "", 1)

	first := env.do(jsonRequest(t, "POST", "/chat", ChatRequest{Question: "hi", Token: token}))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", first.Code)
	}
	second := env.do(jsonRequest(t, "POST", "/chat", ChatRequest{Question: "hi", Token: token}))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", second.Code)
	}
	third := env.do(jsonRequest(t, "POST", "/chat", ChatRequest{Question: "hi", Token: other}))
	if third.Code != http.StatusOK {
		t.Errorf("expected another tenant unaffected, got %d", third.Code)
	}
}

// Analytics and diagnostics

func TestHandleAnalytics(t *testing.T) {
	env := newTestEnv(t, nil)
	var gotRange domain.AnalyticsRange
	var gotTenant domain.TenantID
	env.analytics.summaryFn = func(ctx context.Context, tenantID domain.TenantID, r domain.AnalyticsRange) (*domain.Analytics, error) {
		gotTenant, gotRange = tenantID, r
		return &domain.Analytics{
			Range:      r,
			TotalRange: 3,
			TotalAll:   9,
			Top:        []domain.QuestionCount{{Question: "parking?", Count: 2}},
		}, nil
	}

	rr := env.do(authed(httptest.NewRequest("GET", "/admin/analytics?range=30d", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotRange != domain.AnalyticsRange30d || gotTenant != "owner@acme.test" {
		t.Errorf("unexpected summary call: %q %q", gotTenant, gotRange)
	}

	var resp domain.Analytics
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.TotalRange != 3 || resp.TotalAll != 9 || len(resp.Top) != 1 {
		t.Errorf("unexpected analytics %+v", resp)
	}
}

func TestHandleAnalytics_DefaultAndInvalidRange(t *testing.T) {
	env := newTestEnv(t, nil)
	var gotRange domain.AnalyticsRange
	env.analytics.summaryFn = func(ctx context.Context, tenantID domain.TenantID, r domain.AnalyticsRange) (*domain.Analytics, error) {
		gotRange = r
		return &domain.Analytics{Range: r}, nil
	}

	rr := env.do(authed(httptest.NewRequest("GET", "/admin/analytics", nil)))
	if rr.Code != http.StatusOK || gotRange != domain.AnalyticsRange7d {
		t.Errorf("expected default 7d, got %d %q", rr.Code, gotRange)
	}

	rr = env.do(authed(httptest.NewRequest("GET", "/admin/analytics?range=90d", nil)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleEmbeddingDiagnostics(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rr := env.do(authed(httptest.NewRequest("GET", "/admin/diagnostics/embedding", nil)))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})

	t.Run("provider failing", func(t *testing.T) {
		env := newTestEnv(t, nil)
		embedder := mocks.NewMockEmbeddingService()
		embedder.Err = errors.New("quota exceeded")
		env.runtime.SetEmbeddingService(domain.AIProviderOpenAI, embedder)

		rr := env.do(authed(httptest.NewRequest("GET", "/admin/diagnostics/embedding", nil)))
		if rr.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rr.Code)
		}
	})

	t.Run("reports dimensions", func(t *testing.T) {
		env := newTestEnv(t, nil)
		embedder := mocks.NewMockEmbeddingService()
		embedder.SetDimensions(768)
		env.runtime.SetEmbeddingService(domain.AIProviderGemini, embedder)

		rr := env.do(authed(httptest.NewRequest("GET", "/admin/diagnostics/embedding", nil)))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var diag domain.EmbeddingDiagnostics
		_ = json.NewDecoder(rr.Body).Decode(&diag)
		if diag.Provider != domain.AIProviderGemini || diag.Dimensions != 768 {
			t.Errorf("unexpected diagnostics %+v", diag)
		}
	})
}

func TestServerStart_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, deps *Deps) {
		cfg.Host = "127.0.0.1"
		cfg.Port = 0
		cfg.ShutdownTimeout = time.Second
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
