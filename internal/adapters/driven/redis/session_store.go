package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const (
	sessionPrefix         = "brochurebot:session:"
	sessionTokenPrefix    = "brochurebot:session:token:"
	sessionOperatorPrefix = "brochurebot:session:operator:"

	// operatorIndexTTL outlives any session TTL the service issues.
	operatorIndexTTL = 30 * 24 * time.Hour
)

// SessionStore implements driven.SessionStore using Redis.
// Session keys expire with the session; a per-operator set indexes them for
// DeleteByOperator.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a new Redis-backed SessionStore
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save stores a session with TTL based on ExpiresAt. Expired sessions are dropped.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	operatorKey := sessionOperatorPrefix + session.OperatorID

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionPrefix+session.ID, data, ttl)
	pipe.Set(ctx, sessionTokenPrefix+session.Token, session.ID, ttl)
	pipe.SAdd(ctx, operatorKey, session.ID)
	pipe.Expire(ctx, operatorKey, operatorIndexTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// GetByToken retrieves a session by token value
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, sessionTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete deletes a session. Unknown ids are not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deleteSession(ctx, session)
}

// DeleteByToken deletes a session by token. Unknown tokens are not an error.
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.deleteSession(ctx, session)
}

// DeleteByOperator deletes every session of an operator.
func (s *SessionStore) DeleteByOperator(ctx context.Context, operatorID string) error {
	operatorKey := sessionOperatorPrefix + operatorID
	ids, err := s.client.SMembers(ctx, operatorKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get operator sessions: %w", err)
	}

	for _, id := range ids {
		// Sessions may already have expired; keep going.
		_ = s.Delete(ctx, id)
	}

	if err := s.client.Del(ctx, operatorKey).Err(); err != nil {
		return fmt.Errorf("failed to delete operator session index: %w", err)
	}
	return nil
}

func (s *SessionStore) deleteSession(ctx context.Context, session *domain.Session) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionPrefix+session.ID)
	pipe.Del(ctx, sessionTokenPrefix+session.Token)
	pipe.SRem(ctx, sessionOperatorPrefix+session.OperatorID, session.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
