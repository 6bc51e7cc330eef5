package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven/mocks"
)

func newTestAuthService() (*mocks.MockOperatorStore, *mocks.MockSessionStore, *mocks.MockAuthAdapter, *authService) {
	operatorStore := mocks.NewMockOperatorStore()
	sessionStore := mocks.NewMockSessionStore()
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(operatorStore, sessionStore, authAdapter, time.Hour).(*authService)
	return operatorStore, sessionStore, authAdapter, svc
}

func saveOperator(t *testing.T, store *mocks.MockOperatorStore, id, email string, active bool) *domain.Operator {
	t.Helper()
	op := &domain.Operator{
		ID:           id,
		Email:        email,
		PasswordHash: "password123", // Mock hasher uses plain text comparison
		Name:         "Grand Hall",
		Active:       active,
		CreatedAt:    time.Now(),
	}
	if err := store.Save(context.Background(), op); err != nil {
		t.Fatalf("save operator: %v", err)
	}
	return op
}

func TestAuthService_Authenticate(t *testing.T) {
	operatorStore, sessionStore, _, svc := newTestAuthService()
	saveOperator(t, operatorStore, "op-1", "owner@grandhall.test", true)

	tests := []struct {
		name    string
		req     domain.LoginRequest
		wantErr error
	}{
		{
			name:    "valid credentials",
			req:     domain.LoginRequest{Email: "owner@grandhall.test", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "email is normalised",
			req:     domain.LoginRequest{Email: "  Owner@GrandHall.test ", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "empty email",
			req:     domain.LoginRequest{Email: "", Password: "password123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty password",
			req:     domain.LoginRequest{Email: "owner@grandhall.test", Password: ""},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "wrong password",
			req:     domain.LoginRequest{Email: "owner@grandhall.test", Password: "wrongpassword"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "unknown operator",
			req:     domain.LoginRequest{Email: "unknown@example.com", Password: "password123"},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Authenticate(context.Background(), tt.req)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected token to be generated")
			}
			if resp.Operator.Email != "owner@grandhall.test" {
				t.Errorf("expected operator email owner@grandhall.test, got %s", resp.Operator.Email)
			}
			if !resp.ExpiresAt.After(time.Now()) {
				t.Error("expected expiry in the future")
			}
		})
	}

	if sessionStore.Count() != 2 {
		t.Errorf("expected 2 sessions, got %d", sessionStore.Count())
	}
}

func TestAuthService_Authenticate_InactiveOperator(t *testing.T) {
	operatorStore, _, _, svc := newTestAuthService()
	saveOperator(t, operatorStore, "op-1", "inactive@example.com", false)

	_, err := svc.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "inactive@example.com",
		Password: "password123",
	})

	if err != domain.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized for inactive operator, got %v", err)
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	operatorStore, sessionStore, authAdapter, svc := newTestAuthService()
	ctx := context.Background()
	saveOperator(t, operatorStore, "op-1", "owner@grandhall.test", true)
	saveOperator(t, operatorStore, "op-2", "gone@grandhall.test", false)

	tokenFor := func(operatorID, sessionID string, expires time.Time) string {
		token, _ := authAdapter.GenerateToken(&domain.TokenClaims{
			OperatorID: operatorID,
			Email:      "owner@grandhall.test",
			SessionID:  sessionID,
			IssuedAt:   time.Now().Unix(),
			ExpiresAt:  expires.Unix(),
		})
		return token
	}

	tests := []struct {
		name      string
		setupFunc func() string
		wantErr   error
	}{
		{
			name:      "empty token",
			setupFunc: func() string { return "" },
			wantErr:   domain.ErrTokenInvalid,
		},
		{
			name:      "invalid token format",
			setupFunc: func() string { return "invalid-token" },
			wantErr:   domain.ErrTokenInvalid,
		},
		{
			name: "expired token",
			setupFunc: func() string {
				return tokenFor("op-1", "session-123", time.Now().Add(-time.Hour))
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "session not found",
			setupFunc: func() string {
				return tokenFor("op-1", "missing", time.Now().Add(time.Hour))
			},
			wantErr: domain.ErrSessionNotFound,
		},
		{
			name: "session expired",
			setupFunc: func() string {
				token := tokenFor("op-1", "session-expired", time.Now().Add(time.Hour))
				_ = sessionStore.Save(ctx, &domain.Session{
					ID:         "session-expired",
					OperatorID: "op-1",
					Token:      token,
					ExpiresAt:  time.Now().Add(-time.Minute),
				})
				return token
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "deactivated operator",
			setupFunc: func() string {
				token := tokenFor("op-2", "session-gone", time.Now().Add(time.Hour))
				_ = sessionStore.Save(ctx, &domain.Session{
					ID:         "session-gone",
					OperatorID: "op-2",
					Token:      token,
					ExpiresAt:  time.Now().Add(time.Hour),
				})
				return token
			},
			wantErr: domain.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, tt.setupFunc())
			if err != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("successful validation", func(t *testing.T) {
		resp, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "owner@grandhall.test", Password: "password123"})
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}

		authCtx, err := svc.ValidateToken(ctx, resp.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if authCtx.OperatorID != "op-1" {
			t.Errorf("expected OperatorID op-1, got %s", authCtx.OperatorID)
		}
		if authCtx.Email != "owner@grandhall.test" {
			t.Errorf("expected email owner@grandhall.test, got %s", authCtx.Email)
		}
		if authCtx.Name != "Grand Hall" {
			t.Errorf("expected name Grand Hall, got %s", authCtx.Name)
		}
	})
}

func TestAuthService_Logout(t *testing.T) {
	operatorStore, sessionStore, _, svc := newTestAuthService()
	ctx := context.Background()
	saveOperator(t, operatorStore, "op-1", "owner@grandhall.test", true)

	resp, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "owner@grandhall.test", Password: "password123"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := svc.Logout(ctx, resp.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessionStore.Count() != 0 {
		t.Errorf("expected no sessions after logout, got %d", sessionStore.Count())
	}
	if _, err := svc.ValidateToken(ctx, resp.Token); err != domain.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}

	// Logging out twice or with garbage is not an error
	if err := svc.Logout(ctx, resp.Token); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := svc.Logout(ctx, "garbage!"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthService_LogoutAll(t *testing.T) {
	operatorStore, sessionStore, _, svc := newTestAuthService()
	ctx := context.Background()
	saveOperator(t, operatorStore, "op-1", "owner@grandhall.test", true)

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "owner@grandhall.test", Password: "password123"}); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
	}

	if err := svc.LogoutAll(ctx, "op-1"); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if sessionStore.Count() != 0 {
		t.Errorf("expected no sessions, got %d", sessionStore.Count())
	}
}

func TestAuthService_CreateOperator(t *testing.T) {
	operatorStore, _, _, svc := newTestAuthService()
	ctx := context.Background()

	summary, err := svc.CreateOperator(ctx, domain.CreateOperatorRequest{
		Email:    " Events@Riverside.test ",
		Password: "correct-horse",
		Name:     "Riverside Barn",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Email != "events@riverside.test" {
		t.Errorf("expected normalised email, got %s", summary.Email)
	}
	if !summary.Active {
		t.Error("expected new operator to be active")
	}

	stored, err := operatorStore.GetByEmail(ctx, "events@riverside.test")
	if err != nil {
		t.Fatalf("operator not stored: %v", err)
	}
	if stored.PasswordHash != "correct-horse" {
		t.Error("expected password to pass through the adapter hash")
	}

	tests := []struct {
		name    string
		req     domain.CreateOperatorRequest
		wantErr error
	}{
		{"duplicate email", domain.CreateOperatorRequest{Email: "events@riverside.test", Password: "another-pass"}, domain.ErrAlreadyExists},
		{"missing at sign", domain.CreateOperatorRequest{Email: "riverside", Password: "correct-horse"}, domain.ErrInvalidInput},
		{"short password", domain.CreateOperatorRequest{Email: "new@riverside.test", Password: "short"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOperator(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
