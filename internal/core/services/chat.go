package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driven"
	"github.com/custodia-labs/brochurebot/internal/core/ports/driving"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

type chatService struct {
	answers  driving.AnswerService
	queryLog driven.QueryLog
	logger   *zap.Logger
	now      func() time.Time
}

// NewChatService creates a ChatService. queryLog may be nil.
func NewChatService(answers driving.AnswerService, queryLog driven.QueryLog, logger *zap.Logger) driving.ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatService{
		answers:  answers,
		queryLog: queryLog,
		logger:   logger,
		now:      time.Now,
	}
}

// Ask answers in the tenant's namespace and records the question.
// Query log failures are logged and never fail the request.
func (s *chatService) Ask(ctx context.Context, ref domain.TenantRef, q domain.Question, public bool) (*domain.Answer, error) {
	answer, err := s.answers.Answer(ctx, ref.Namespace, q)
	if err != nil {
		s.logger.Error("answer failed",
			zap.String("namespace", ref.Namespace.String()),
			zap.Bool("public", public),
			zap.Error(err))
		return nil, err
	}

	if s.queryLog != nil {
		entry := &domain.QueryLogEntry{
			TenantID:  ref.ID,
			Question:  q.Text,
			Public:    public,
			Fallback:  answer.Fallback,
			CreatedAt: s.now(),
		}
		if err := s.queryLog.Record(ctx, entry); err != nil {
			s.logger.Warn("failed to record query", zap.Error(err))
		}
	}

	return answer, nil
}
