package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/observability"
	"github.com/noah-isme/together-agent-api/internal/repository"
)

const defaultDecisionBatchSize = 25

// DecisionService coordinates activity ingestion with workflow planning.
type DecisionService interface {
	ProcessPendingEvents(ctx context.Context, batchSize int, userID string, timeBudget *time.Duration) (dto.DecisionStats, error)
}

type decisionService struct {
	events repository.ActivityEventRepository
	queue  repository.ActionQueueRepository
	engine WorkflowEngine
	logger zerolog.Logger
}

// NewDecisionService constructs the decision engine.
func NewDecisionService(events repository.ActivityEventRepository, queue repository.ActionQueueRepository, engine WorkflowEngine, logger zerolog.Logger) DecisionService {
	return &decisionService{
		events: events,
		queue:  queue,
		engine: engine,
		logger: logger.With().Str("component", "decision_service").Logger(),
	}
}

// ProcessPendingEvents pulls up to batchSize unprocessed events and evaluates
// them oldest first. A non-nil timeBudget stops the pass once it is exceeded;
// a zero budget therefore evaluates at most one event. Every evaluated event
// is marked processed exactly once, including events whose planning failed:
// the failure is recorded in the event metadata so a wedged event cannot
// stall the loop forever.
func (s *decisionService) ProcessPendingEvents(ctx context.Context, batchSize int, userID string, timeBudget *time.Duration) (dto.DecisionStats, error) {
	start := time.Now()
	if batchSize <= 0 {
		batchSize = defaultDecisionBatchSize
	}

	events, err := s.events.FetchRecent(ctx, repository.ActivityEventFilter{
		Limit:  batchSize,
		UserID: userID,
	})
	if err != nil {
		return dto.DecisionStats{}, err
	}

	generated := 0
	processedIDs := make([]string, 0, len(events))

	for i := len(events) - 1; i >= 0; i-- {
		if timeBudget != nil && len(processedIDs) > 0 && time.Since(start) > *timeBudget {
			break
		}

		event := events[i]
		plans, err := s.engine.EvaluateEvent(ctx, &event)
		if err != nil {
			s.logger.Error().Err(err).Str("event_id", event.ID).Str("event_type", event.EventType).Msg("event evaluation failed")
			if annErr := s.events.AnnotateFailure(ctx, event.ID, err.Error()); annErr != nil {
				s.logger.Error().Err(annErr).Str("event_id", event.ID).Msg("failed to annotate planner failure")
			}
			processedIDs = append(processedIDs, event.ID)
			continue
		}

		if len(plans) > 0 {
			refs := make([]*models.ActionPlan, len(plans))
			for j := range plans {
				refs[j] = &plans[j]
			}
			if _, err := s.queue.Enqueue(ctx, refs); err != nil {
				return s.finish(ctx, start, processedIDs, generated), err
			}
			generated += len(plans)
		}
		processedIDs = append(processedIDs, event.ID)
	}

	return s.finish(ctx, start, processedIDs, generated), nil
}

func (s *decisionService) finish(ctx context.Context, start time.Time, processedIDs []string, generated int) dto.DecisionStats {
	if len(processedIDs) > 0 {
		if _, err := s.events.MarkProcessed(ctx, processedIDs); err != nil {
			s.logger.Error().Err(err).Int("count", len(processedIDs)).Msg("failed to mark events processed")
		}
	}

	stats := dto.DecisionStats{
		EventsProcessed: len(processedIDs),
		PlansGenerated:  generated,
		Duration:        time.Since(start),
	}
	observability.DecisionEventsProcessed.Add(float64(stats.EventsProcessed))
	observability.DecisionPlansGenerated.Add(float64(stats.PlansGenerated))
	s.logger.Info().
		Int("events_processed", stats.EventsProcessed).
		Int("plans_generated", stats.PlansGenerated).
		Dur("duration", stats.Duration).
		Msg("decision pass completed")
	return stats
}
