package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

func TestNewAdapter(t *testing.T) {
	adapter := NewAdapter("test-secret")
	if adapter == nil {
		t.Fatal("expected non-nil adapter")
	}
	if string(adapter.jwtSecret) != "test-secret" {
		t.Error("expected jwt secret to be set")
	}
}

func TestNewAdapterWithCost(t *testing.T) {
	adapter := NewAdapterWithCost("test-secret", 4)
	if adapter == nil {
		t.Fatal("expected non-nil adapter")
	}
	if adapter.bcryptCost != 4 {
		t.Errorf("expected bcrypt cost 4, got %d", adapter.bcryptCost)
	}
}

func TestHashPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4) // Low cost for faster tests

	hash, err := adapter.HashPassword("mypassword")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("expected non-empty hash")
	}

	if hash == "mypassword" {
		t.Error("hash should not equal plaintext password")
	}

	// Hash should start with bcrypt prefix
	if len(hash) < 60 {
		t.Error("expected bcrypt hash to be at least 60 characters")
	}
}

func TestHashPassword_DifferentHashesForSamePassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4)

	hash1, _ := adapter.HashPassword("password123")
	hash2, _ := adapter.HashPassword("password123")

	if hash1 == hash2 {
		t.Error("expected different hashes for same password (due to salt)")
	}
}

func TestVerifyPassword_CorrectPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4)

	password := "correctpassword"
	hash, _ := adapter.HashPassword(password)

	if !adapter.VerifyPassword(password, hash) {
		t.Error("expected password verification to succeed")
	}
}

func TestVerifyPassword_IncorrectPassword(t *testing.T) {
	adapter := NewAdapterWithCost("secret", 4)

	hash, _ := adapter.HashPassword("correctpassword")

	if adapter.VerifyPassword("wrongpassword", hash) {
		t.Error("expected password verification to fail for wrong password")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	adapter := NewAdapter("secret")

	if adapter.VerifyPassword("password", "not-a-valid-hash") {
		t.Error("expected verification to fail for invalid hash")
	}
}

func TestGenerateToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	now := time.Now()
	claims := &domain.TokenClaims{
		OperatorID: "op-123",
		Email:      "owner@venue.example",
		SessionID:  "session-789",
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(24 * time.Hour).Unix(),
	}

	token, err := adapter.GenerateToken(claims)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("expected non-empty token")
	}

	// JWT tokens have 3 parts separated by dots
	parts := 0
	for _, c := range token {
		if c == '.' {
			parts++
		}
	}
	if parts != 2 {
		t.Errorf("expected JWT with 2 dots (3 parts), got %d dots", parts)
	}
}

func TestParseToken_ValidToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	now := time.Now()
	originalClaims := &domain.TokenClaims{
		OperatorID: "op-123",
		Email:      "owner@venue.example",
		SessionID:  "session-789",
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(24 * time.Hour).Unix(),
	}

	token, _ := adapter.GenerateToken(originalClaims)

	parsedClaims, err := adapter.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}

	if parsedClaims.OperatorID != originalClaims.OperatorID {
		t.Errorf("expected OperatorID %s, got %s", originalClaims.OperatorID, parsedClaims.OperatorID)
	}
	if parsedClaims.Email != originalClaims.Email {
		t.Errorf("expected Email %s, got %s", originalClaims.Email, parsedClaims.Email)
	}
	if parsedClaims.ExpiresAt != originalClaims.ExpiresAt {
		t.Errorf("expected ExpiresAt %d, got %d", originalClaims.ExpiresAt, parsedClaims.ExpiresAt)
	}
	if parsedClaims.SessionID != originalClaims.SessionID {
		t.Errorf("expected SessionID %s, got %s", originalClaims.SessionID, parsedClaims.SessionID)
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	// Create a token that expired in the past
	pastTime := time.Now().Add(-2 * time.Hour)
	claims := &domain.TokenClaims{
		OperatorID: "op-123",
		Email:      "owner@venue.example",
		SessionID:  "session-789",
		IssuedAt:   pastTime.Add(-24 * time.Hour).Unix(),
		ExpiresAt:  pastTime.Unix(), // Expired 2 hours ago
	}

	token, _ := adapter.GenerateToken(claims)

	_, err := adapter.ParseToken(token)
	if err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	_, err := adapter.ParseToken("invalid.token.here")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	adapter1 := NewAdapter("secret-1")
	adapter2 := NewAdapter("secret-2")

	now := time.Now()
	claims := &domain.TokenClaims{
		OperatorID: "op-123",
		Email:      "owner@venue.example",
		SessionID:  "session-789",
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(24 * time.Hour).Unix(),
	}

	// Generate token with adapter1's secret
	token, _ := adapter1.GenerateToken(claims)

	// Try to parse with adapter2's secret
	_, err := adapter2.ParseToken(token)
	if err == nil {
		t.Error("expected error when parsing token with wrong secret")
	}
}

func TestParseToken_MalformedToken(t *testing.T) {
	adapter := NewAdapter("test-secret")

	testCases := []string{
		"",
		"not-a-jwt",
		"only.two.parts.missing",
		"header.payload", // missing signature
	}

	for _, tc := range testCases {
		_, err := adapter.ParseToken(tc)
		if err == nil {
			t.Errorf("expected error for malformed token: %q", tc)
		}
	}
}

func TestParseToken_ExpiredMapsToDomainError(t *testing.T) {
	adapter := NewAdapter("test-jwt-secret")

	past := time.Now().Add(-time.Hour)
	token, _ := adapter.GenerateToken(&domain.TokenClaims{
		OperatorID: "op-123",
		SessionID:  "session-789",
		IssuedAt:   past.Add(-time.Hour).Unix(),
		ExpiresAt:  past.Unix(),
	})

	_, err := adapter.ParseToken(token)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}

	_, err = adapter.ParseToken("garbage")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestParseToken_RejectsShareToken(t *testing.T) {
	adapter := NewAdapter("shared-secret")
	signer, err := NewShareSigner("shared-secret", 0)
	if err != nil {
		t.Fatalf("NewShareSigner: %v", err)
	}

	shareToken, _, err := signer.Issue("owner@venue.example", "Venue", 1)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := adapter.ParseToken(shareToken); err == nil {
		t.Error("share token must not authenticate an operator session")
	}
}

// Benchmark tests
func BenchmarkHashPassword(b *testing.B) {
	adapter := NewAdapterWithCost("secret", 4) // Low cost for benchmarks

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.HashPassword("testpassword")
	}
}

func BenchmarkVerifyPassword(b *testing.B) {
	adapter := NewAdapterWithCost("secret", 4)
	hash, _ := adapter.HashPassword("testpassword")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = adapter.VerifyPassword("testpassword", hash)
	}
}

func BenchmarkGenerateToken(b *testing.B) {
	adapter := NewAdapter("test-secret")
	now := time.Now()
	claims := &domain.TokenClaims{
		OperatorID: "op-123",
		Email:      "owner@venue.example",
		SessionID:  "session-789",
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(24 * time.Hour).Unix(),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.GenerateToken(claims)
	}
}

func BenchmarkParseToken(b *testing.B) {
	adapter := NewAdapter("test-secret")
	now := time.Now()
	claims := &domain.TokenClaims{
		OperatorID: "op-123",
		Email:      "owner@venue.example",
		SessionID:  "session-789",
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(24 * time.Hour).Unix(),
	}
	token, _ := adapter.GenerateToken(claims)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.ParseToken(token)
	}
}
