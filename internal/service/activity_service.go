package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/repository"
)

// RecordEventInput describes an event being ingested by a harvester.
type RecordEventInput struct {
	UserID     string
	EventType  string
	Source     string
	Scenario   string
	Payload    map[string]interface{}
	Metadata   map[string]interface{}
	DedupeKey  string
	OccurredAt time.Time
}

// ActivityService is the high-level facade around the activity log store.
type ActivityService interface {
	RecordEvent(ctx context.Context, input RecordEventInput) (*models.ActivityEvent, error)
	FetchRecent(ctx context.Context, req dto.ActivityFeedRequest) (dto.ActivityFeedResponse, error)
	MarkProcessed(ctx context.Context, ids []string) (int64, error)
	PruneStale(ctx context.Context, retention time.Duration) (int64, error)
}

type activityService struct {
	repo   repository.ActivityEventRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity facade.
func NewActivityService(repo repository.ActivityEventRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) RecordEvent(ctx context.Context, input RecordEventInput) (*models.ActivityEvent, error) {
	if input.UserID == "" || input.EventType == "" || input.Source == "" {
		return nil, fmt.Errorf("%w: user_id, event_type and source are required", ErrValidation)
	}

	event := &models.ActivityEvent{
		UserID:     input.UserID,
		EventType:  input.EventType,
		Source:     input.Source,
		Scenario:   input.Scenario,
		Payload:    input.Payload,
		Metadata:   input.Metadata,
		OccurredAt: input.OccurredAt,
	}
	if input.DedupeKey != "" {
		key := input.DedupeKey
		event.DedupeKey = &key
	}

	return s.repo.RecordEvent(ctx, event)
}

func (s *activityService) FetchRecent(ctx context.Context, req dto.ActivityFeedRequest) (dto.ActivityFeedResponse, error) {
	events, err := s.repo.FetchRecent(ctx, repository.ActivityEventFilter{
		Limit:            req.Limit,
		Since:            req.Since,
		Scenario:         req.Scenario,
		IncludeProcessed: req.IncludeProcessed,
		UserID:           req.UserID,
	})
	if err != nil {
		return dto.ActivityFeedResponse{}, err
	}

	response := dto.ActivityFeedResponse{Events: events, Count: len(events)}
	if len(events) > 0 {
		latest := events[0].OccurredAt
		response.LatestOccurredAt = &latest
	}
	return response, nil
}

func (s *activityService) MarkProcessed(ctx context.Context, ids []string) (int64, error) {
	return s.repo.MarkProcessed(ctx, ids)
}

func (s *activityService) PruneStale(ctx context.Context, retention time.Duration) (int64, error) {
	if retention < 24*time.Hour {
		retention = 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention)
	pruned, err := s.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.logger.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("pruned stale activity events")
	}
	return pruned, nil
}
