package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// namespacePrefix keeps namespaces valid as collection names in every index backend
// ([a-z0-9_], starting with a letter).
const namespacePrefix = "t_"

// TenantID is the canonical tenant identifier. It is always the normalised
// form of the identity claim (lowercased, trimmed email or subject).
type TenantID string

// NewTenantID normalises a raw identity claim into a TenantID.
// Session emails and share token claims both pass through here so the same
// human cannot end up with two namespaces.
func NewTenantID(raw string) (TenantID, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return "", fmt.Errorf("%w: empty tenant identifier", ErrInvalidInput)
	}
	if len(id) > 320 {
		return "", fmt.Errorf("%w: tenant identifier too long", ErrInvalidInput)
	}
	return TenantID(id), nil
}

// String returns the identifier.
func (t TenantID) String() string { return string(t) }

// Namespace derives the tenant's vector namespace. Pure function of the id.
func (t TenantID) Namespace() Namespace {
	return DeriveNamespace(t)
}

// Namespace partitions the vector index per tenant.
type Namespace string

// DeriveNamespace hashes the tenant id into a namespace: "t_" followed by the
// first 128 bits of SHA-256 in hex.
func DeriveNamespace(id TenantID) Namespace {
	sum := sha256.Sum256([]byte(id))
	return Namespace(namespacePrefix + hex.EncodeToString(sum[:16]))
}

// String returns the namespace.
func (n Namespace) String() string { return string(n) }

// Valid reports whether n has the shape produced by DeriveNamespace.
func (n Namespace) Valid() bool {
	s := string(n)
	if !strings.HasPrefix(s, namespacePrefix) || len(s) != len(namespacePrefix)+32 {
		return false
	}
	for _, c := range s[len(namespacePrefix):] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// TenantRef is a resolved caller: who the tenant is and where its vectors live.
type TenantRef struct {
	ID        TenantID  `json:"tenant_id"`
	Namespace Namespace `json:"namespace"`
	// Name is the optional display name carried by share tokens
	Name string `json:"name,omitempty"`
}

// NewTenantRef builds a TenantRef with the derived namespace.
func NewTenantRef(id TenantID, name string) TenantRef {
	return TenantRef{ID: id, Namespace: id.Namespace(), Name: name}
}

// Tenant is the persisted tenant record holding the cached share link.
type Tenant struct {
	ID          TenantID  `json:"id"`
	Namespace   Namespace `json:"namespace"`
	DisplayName string    `json:"display_name,omitempty"`
	ShareToken  string    `json:"-"`
	ShareLink   string    `json:"share_link,omitempty"`
	// TokenVersion increments on every link regeneration
	TokenVersion int        `json:"token_version"`
	ShareIssued  *time.Time `json:"share_issued_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasShareLink reports whether a link has been minted for this tenant.
func (t *Tenant) HasShareLink() bool {
	return t.ShareLink != "" && t.ShareToken != ""
}

// ShareClaims is the payload of a share token.
type ShareClaims struct {
	TenantID  TenantID  `json:"tid"`
	Name      string    `json:"name,omitempty"`
	Version   int       `json:"ver"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
