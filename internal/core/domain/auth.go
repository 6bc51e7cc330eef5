package domain

import "time"

// Session represents an authenticated operator session
type Session struct {
	ID         string    `json:"id"`
	OperatorID string    `json:"operator_id"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AuthContext contains authenticated operator info for request context
type AuthContext struct {
	OperatorID string `json:"operator_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	SessionID  string `json:"session_id"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful authentication
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  *OperatorSummary `json:"operator"`
}

// TokenClaims represents the session JWT payload
type TokenClaims struct {
	OperatorID string `json:"operator_id"`
	Email      string `json:"email"`
	SessionID  string `json:"session_id"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
}
