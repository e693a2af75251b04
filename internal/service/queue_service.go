package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/repository"
)

// slowActionsThreshold flags combined action reads that took too long; the
// endpoint is on the interactive path and must stay fast.
const slowActionsThreshold = 2500 * time.Millisecond

// QueueService exposes the action queue and the combined actions view.
type QueueService interface {
	ListQueue(ctx context.Context, userID string, limit int, includeCompleted bool) (dto.QueueResponse, error)
	GetActions(ctx context.Context, userID string) (dto.ActionsResponse, error)
	RecordFeedback(ctx context.Context, userID, actionID string, req dto.FeedbackRequest) error
}

type queueService struct {
	queue       repository.ActionQueueRepository
	feedback    repository.FeedbackRepository
	suggestions SuggestionService
	logger      zerolog.Logger
}

// NewQueueService constructs the queue facade.
func NewQueueService(queue repository.ActionQueueRepository, feedback repository.FeedbackRepository, suggestions SuggestionService, logger zerolog.Logger) QueueService {
	return &queueService{
		queue:       queue,
		feedback:    feedback,
		suggestions: suggestions,
		logger:      logger.With().Str("component", "queue_service").Logger(),
	}
}

func (s *queueService) ListQueue(ctx context.Context, userID string, limit int, includeCompleted bool) (dto.QueueResponse, error) {
	pending, err := s.queue.ListPending(ctx, repository.ActionQueueFilter{
		UserID: userID,
		Limit:  limit,
	})
	if err != nil {
		return dto.QueueResponse{}, err
	}

	response := dto.QueueResponse{
		Pending:      pending,
		PendingCount: len(pending),
	}

	if includeCompleted {
		recent, err := s.queue.ListPending(ctx, repository.ActionQueueFilter{
			UserID:           userID,
			Limit:            limit,
			IncludeCompleted: true,
		})
		if err != nil {
			return dto.QueueResponse{}, err
		}
		response.Recent = recent
	}

	return response, nil
}

// GetActions combines cached coaching suggestions with the pending
// automation queue.
func (s *queueService) GetActions(ctx context.Context, userID string) (dto.ActionsResponse, error) {
	start := time.Now()

	bundle, err := s.suggestions.GetSuggestions(ctx, userID)
	if err != nil {
		return dto.ActionsResponse{}, err
	}

	pending, err := s.queue.ListPending(ctx, repository.ActionQueueFilter{UserID: userID})
	if err != nil {
		return dto.ActionsResponse{}, err
	}

	if elapsed := time.Since(start); elapsed > slowActionsThreshold {
		s.logger.Warn().Dur("elapsed", elapsed).Str("user_id", userID).Msg("slow combined actions read")
	}

	response := dto.ActionsResponse{
		Suggestions:     bundle.Suggestions,
		AutomationQueue: pending,
	}
	if bundle.Metadata.Model != "" || bundle.Metadata.Strategy != "" {
		metadata := bundle.Metadata
		response.LLM = &metadata
	}
	return response, nil
}

// RecordFeedback stores the verdict and, when a status is supplied, moves
// the plan out of pending. The transition is exactly-once; feedback on an
// already processed plan is rejected as a conflict.
func (s *queueService) RecordFeedback(ctx context.Context, userID, actionID string, req dto.FeedbackRequest) error {
	plan, err := s.queue.Get(ctx, actionID)
	if err != nil {
		return err
	}
	if plan == nil || plan.UserID != userID {
		return ErrNotFound
	}

	record := &models.FeedbackRecord{
		UserID:   userID,
		ActionID: actionID,
		Rating:   req.Rating,
		Comment:  req.Comment,
		Status:   req.Status,
	}
	if err := s.feedback.Record(ctx, record); err != nil {
		return err
	}

	if req.Status == "" {
		return nil
	}

	metadata := map[string]interface{}{"feedback_at": time.Now().UTC().Format(time.RFC3339)}
	if err := s.queue.TransitionFromPending(ctx, actionID, req.Status, metadata); err != nil {
		if errors.Is(err, repository.ErrNoPendingTransition) {
			return ErrConflict
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
