package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure mocks implement their ports
var (
	_ driven.AuthAdapter      = (*MockAuthAdapter)(nil)
	_ driven.ShareTokenSigner = (*MockShareSigner)(nil)
)

// MockAuthAdapter is a mock implementation of AuthAdapter for testing.
// It uses plain text password comparison and base64-encoded JSON for tokens.
// NOT secure - only for testing.
type MockAuthAdapter struct{}

// NewMockAuthAdapter creates a new MockAuthAdapter
func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

// HashPassword returns the password as-is (for testing only)
func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return password, nil
}

// VerifyPassword compares password with hash directly (for testing only)
func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return password == hash
}

// GenerateToken creates a base64-encoded JSON token from claims
func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ParseToken decodes a base64-encoded JSON token and returns claims
func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	return &claims, nil
}

// MockShareSigner encodes share claims as base64 JSON. Each issued token is
// unique because IssuedAt carries nanoseconds.
type MockShareSigner struct {
	TTL time.Duration
	// Now overrides the clock when set
	Now func() time.Time
}

// NewMockShareSigner creates a signer with a 7 day TTL
func NewMockShareSigner() *MockShareSigner {
	return &MockShareSigner{TTL: 7 * 24 * time.Hour}
}

func (m *MockShareSigner) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Issue encodes the claims
func (m *MockShareSigner) Issue(tenantID domain.TenantID, name string, version int) (string, time.Time, error) {
	now := m.now()
	claims := domain.ShareClaims{
		TenantID:  tenantID,
		Name:      name,
		Version:   version,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.TTL),
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return base64.RawURLEncoding.EncodeToString(data), claims.ExpiresAt, nil
}

// Verify decodes the claims and checks expiry
func (m *MockShareSigner) Verify(token string) (*domain.ShareClaims, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	var claims domain.ShareClaims
	if err := json.Unmarshal(data, &claims); err != nil || claims.TenantID == "" {
		return nil, domain.ErrTokenInvalid
	}
	if m.now().After(claims.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return &claims, nil
}
