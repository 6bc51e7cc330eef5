package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

const (
	defaultSessionTTL = 24 * time.Hour
	minPasswordLength = 8
)

// authService implements the AuthService interface
type authService struct {
	operatorStore driven.OperatorStore
	sessionStore  driven.SessionStore
	authAdapter   driven.AuthAdapter
	tokenTTL      time.Duration
}

// NewAuthService creates a new AuthService. A zero ttl selects 24h.
func NewAuthService(
	operatorStore driven.OperatorStore,
	sessionStore driven.SessionStore,
	authAdapter driven.AuthAdapter,
	ttl time.Duration,
) driving.AuthService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &authService{
		operatorStore: operatorStore,
		sessionStore:  sessionStore,
		authAdapter:   authAdapter,
		tokenTTL:      ttl,
	}
}

// Authenticate validates credentials and creates a session
func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	email := normaliseEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	op, err := s.operatorStore.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if !op.Active {
		return nil, domain.ErrUnauthorized
	}

	if !s.authAdapter.VerifyPassword(req.Password, op.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	sessionID := domain.GenerateID()
	claims := &domain.TokenClaims{
		OperatorID: op.ID,
		Email:      op.Email,
		SessionID:  sessionID,
		IssuedAt:   now.Unix(),
		ExpiresAt:  expiresAt.Unix(),
	}

	token, err := s.authAdapter.GenerateToken(claims)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:         sessionID,
		OperatorID: op.ID,
		Token:      token,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if err := s.sessionStore.Save(ctx, session); err != nil {
		return nil, err
	}

	_ = s.operatorStore.UpdateLastLogin(ctx, op.ID)

	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Operator:  op.ToSummary(),
	}, nil
}

// ValidateToken validates a session JWT and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	session, err := s.sessionStore.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	op, err := s.operatorStore.Get(ctx, claims.OperatorID)
	if err != nil || !op.Active {
		return nil, domain.ErrUnauthorized
	}

	return &domain.AuthContext{
		OperatorID: op.ID,
		Email:      op.Email,
		Name:       op.Name,
		SessionID:  claims.SessionID,
	}, nil
}

// Logout invalidates a session
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.authAdapter.ParseToken(token)
	if err != nil {
		return nil // Already invalid, nothing to do
	}

	return s.sessionStore.Delete(ctx, claims.SessionID)
}

// LogoutAll invalidates all sessions for an operator
func (s *authService) LogoutAll(ctx context.Context, operatorID string) error {
	return s.sessionStore.DeleteByOperator(ctx, operatorID)
}

// CreateOperator provisions an operator. The normalised email becomes the
// operator's tenant identifier.
func (s *authService) CreateOperator(ctx context.Context, req domain.CreateOperatorRequest) (*domain.OperatorSummary, error) {
	email := normaliseEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidInput)
	}
	if _, err := domain.NewTenantID(email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	if _, err := s.operatorStore.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := s.authAdapter.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	op := &domain.Operator{
		ID:           domain.GenerateID(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.operatorStore.Save(ctx, op); err != nil {
		return nil, err
	}

	return op.ToSummary(), nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
