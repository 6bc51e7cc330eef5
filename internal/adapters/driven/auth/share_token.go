package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Ensure ShareSigner implements ShareTokenSigner
var _ driven.ShareTokenSigner = (*ShareSigner)(nil)

const (
	shareAudience = "share"

	// DefaultShareTTL is how long a share link stays valid
	DefaultShareTTL = 7 * 24 * time.Hour
)

type shareJWTClaims struct {
	TenantID string `json:"tid"`
	Name     string `json:"name,omitempty"`
	Version  int    `json:"ver"`
	jwt.RegisteredClaims
}

// ShareSigner mints HS256 share tokens bound to a tenant
type ShareSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewShareSigner creates a signer. ttl <= 0 selects DefaultShareTTL.
func NewShareSigner(secret string, ttl time.Duration) (*ShareSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("share token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultShareTTL
	}
	return &ShareSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the tenant
func (s *ShareSigner) Issue(tenantID domain.TenantID, name string, version int) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	claims := shareJWTClaims{
		TenantID: tenantID.String(),
		Name:     name,
		Version:  version,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{shareAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign share token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, audience, and expiry
func (s *ShareSigner) Verify(tokenString string) (*domain.ShareClaims, error) {
	if tokenString == "" {
		return nil, domain.ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &shareJWTClaims{}, hmacKey(s.secret),
		jwt.WithAudience(shareAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	claims, ok := token.Claims.(*shareJWTClaims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.ShareClaims{
		TenantID:  domain.TenantID(claims.TenantID),
		Name:      claims.Name,
		Version:   claims.Version,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
