package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/observability"
	"github.com/noah-isme/together-agent-api/internal/repository"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

// refineBudget bounds the optional tone-refinement call made before sending a
// composed message. Exceeding it is logged but never blocks the send.
const refineBudget = 2500 * time.Millisecond

// AuditNotifier fans execution outcomes out to interested subscribers. A nil
// notifier is valid and means outcomes stay local.
type AuditNotifier interface {
	PublishOutcome(record *models.AuditRecord)
}

// ExecutionService carries approved plans out against the collaborators.
type ExecutionService interface {
	ExecuteAction(ctx context.Context, userID, actionID string, input map[string]interface{}, autoApproved bool) (map[string]interface{}, error)
}

type executionService struct {
	queue     repository.ActionQueueRepository
	audit     repository.AuditRepository
	messenger Messenger
	calendar  CalendarScheduler
	contexts  ContextProvider
	planner   ai.Planner
	notifier  AuditNotifier
	logger    zerolog.Logger
}

// NewExecutionService constructs the execution service. The planner and
// notifier are optional.
func NewExecutionService(
	queue repository.ActionQueueRepository,
	audit repository.AuditRepository,
	messenger Messenger,
	calendar CalendarScheduler,
	contexts ContextProvider,
	planner ai.Planner,
	notifier AuditNotifier,
	logger zerolog.Logger,
) ExecutionService {
	return &executionService{
		queue:     queue,
		audit:     audit,
		messenger: messenger,
		calendar:  calendar,
		contexts:  contexts,
		planner:   planner,
		notifier:  notifier,
		logger:    logger.With().Str("component", "execution_service").Logger(),
	}
}

// ExecuteAction verifies ownership and the pending status, claims the plan,
// dispatches by action type family, and records exactly one audit entry for
// the outcome. A plan leaves pending exactly once; a concurrent or repeated
// attempt gets ErrConflict.
func (s *executionService) ExecuteAction(ctx context.Context, userID, actionID string, input map[string]interface{}, autoApproved bool) (map[string]interface{}, error) {
	plan, err := s.queue.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.UserID != userID {
		return nil, ErrNotFound
	}
	if plan.Status != models.ActionStatusPending {
		return nil, ErrConflict
	}

	if input == nil {
		input = map[string]interface{}{}
	}

	// Pure input validation happens before the claim so a rejected request
	// leaves the plan pending and retryable.
	family := actionFamily(plan.ActionType)
	if family == familyUnknown {
		return nil, fmt.Errorf("%w: unsupported action type %q", ErrValidation, plan.ActionType)
	}
	var calendarReq calendarRequest
	if family == familyCalendar {
		calendarReq = resolveCalendarRequest(plan, input)
		if calendarReq.Date == "" || calendarReq.Time == "" {
			return nil, fmt.Errorf("%w: date and time are required", ErrValidation)
		}
	}

	metadata := map[string]interface{}{
		"auto_approved": autoApproved,
		"executed_at":   time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.queue.TransitionFromPending(ctx, actionID, models.ActionStatusExecuting, metadata); err != nil {
		if errors.Is(err, repository.ErrNoPendingTransition) {
			return nil, ErrConflict
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch family {
	case familyAcknowledge:
		return s.acknowledge(ctx, plan, metadata)
	case familyMessage:
		return s.sendMessage(ctx, plan, input, metadata)
	default:
		return s.createCalendarEvent(ctx, plan, calendarReq, metadata)
	}
}

type family int

const (
	familyUnknown family = iota
	familyAcknowledge
	familyMessage
	familyCalendar
)

func actionFamily(actionType string) family {
	switch actionType {
	case models.ActionCollectStyleSamples, models.ActionPromptFirstMessage:
		return familyAcknowledge
	case models.ActionSendDailyQuestionReminder, models.ActionDraftPartnerReply, models.ActionSendQuizFollowup:
		return familyMessage
	case models.ActionSuggestCalendarEvent:
		return familyCalendar
	}
	return familyUnknown
}

func (s *executionService) acknowledge(ctx context.Context, plan *models.ActionPlan, metadata map[string]interface{}) (map[string]interface{}, error) {
	if _, err := s.queue.UpdateStatus(ctx, []string{plan.ID}, models.ActionStatusAcknowledged, metadata); err != nil {
		return nil, err
	}
	s.recordOutcome(ctx, plan, models.ActionStatusAcknowledged, metadata)
	return map[string]interface{}{"status": models.ActionStatusAcknowledged}, nil
}

func (s *executionService) sendMessage(ctx context.Context, plan *models.ActionPlan, input map[string]interface{}, metadata map[string]interface{}) (map[string]interface{}, error) {
	message := resolveMessageText(plan, input)
	message = s.refineDraft(ctx, plan.UserID, message)

	result, sendErr := s.messenger.SendMessage(ctx, plan.UserID, message)

	status := models.ActionStatusExecuted
	queueMeta := mergeOutcome(metadata, map[string]interface{}{"result": result})
	if sendErr != nil {
		status = models.ActionStatusFailed
		queueMeta["error"] = sendErr.Error()
	}
	if _, err := s.queue.UpdateStatus(ctx, []string{plan.ID}, status, queueMeta); err != nil {
		return nil, err
	}

	auditMeta := mergeOutcome(metadata, map[string]interface{}{"message_preview": truncate(message, 160)})
	s.recordOutcome(ctx, plan, status, auditMeta)

	if sendErr != nil {
		return nil, fmt.Errorf("message delivery failed: %w", sendErr)
	}
	return result, nil
}

type calendarRequest struct {
	Title       string
	Date        string
	Time        string
	Description string
}

func resolveCalendarRequest(plan *models.ActionPlan, input map[string]interface{}) calendarRequest {
	desired := map[string]interface{}(plan.Payload)
	if len(input) > 0 {
		desired = input
	}
	req := calendarRequest{
		Title:       stringField(desired, "title"),
		Date:        stringField(desired, "date"),
		Time:        stringField(desired, "time"),
		Description: stringField(desired, "description"),
	}
	if req.Title == "" {
		req.Title = "Shared time together"
	}
	if req.Description == "" {
		req.Description = "Added by the Together agent"
	}
	return req
}

func (s *executionService) createCalendarEvent(ctx context.Context, plan *models.ActionPlan, req calendarRequest, metadata map[string]interface{}) (map[string]interface{}, error) {
	result, createErr := s.calendar.CreateEvent(ctx, plan.UserID, req.Title, req.Date, req.Time, req.Description)

	status := models.ActionStatusExecuted
	queueMeta := mergeOutcome(metadata, map[string]interface{}{"result": result})
	if createErr != nil {
		status = models.ActionStatusFailed
		queueMeta["error"] = createErr.Error()
	}
	if _, err := s.queue.UpdateStatus(ctx, []string{plan.ID}, status, queueMeta); err != nil {
		return nil, err
	}

	auditMeta := mergeOutcome(metadata, map[string]interface{}{"date": req.Date, "time": req.Time})
	s.recordOutcome(ctx, plan, status, auditMeta)

	if createErr != nil {
		return nil, fmt.Errorf("calendar event creation failed: %w", createErr)
	}
	return result, nil
}

// resolveMessageText picks the outgoing text: caller override first, then the
// plan's suggested message, then a per-type template.
func resolveMessageText(plan *models.ActionPlan, input map[string]interface{}) string {
	if override := stringField(input, "message"); override != "" {
		return override
	}
	if suggested := stringField(plan.Payload, "suggested_message"); suggested != "" {
		return suggested
	}

	switch plan.ActionType {
	case models.ActionSendDailyQuestionReminder:
		question := stringField(plan.Payload, "question")
		if question == "" {
			question = "today's reflection"
		}
		return fmt.Sprintf("Quick reminder to answer %s. Share your thoughts when you can!", question)
	case models.ActionSendQuizFollowup:
		if score, ok := plan.Payload["score"]; ok && score != nil {
			return fmt.Sprintf("Loved your quiz score of %v%%! Plan something fun to celebrate together?", score)
		}
		return "Great job finishing the quiz together! Celebrate with a thoughtful note."
	default:
		if last, ok := plan.Payload["last_message"].(map[string]interface{}); ok {
			if content := stringField(last, "content"); content != "" {
				return fmt.Sprintf("Replying to: %s\n\nAppreciate their note and invite a follow-up.", content)
			}
		}
		return "Send a warm reply to keep the conversation going."
	}
}

// refineDraft optionally passes the draft through the tone analyzer. Any
// failure, unavailability, or empty reply keeps the original draft.
func (s *executionService) refineDraft(ctx context.Context, userID, draft string) string {
	if s.planner == nil {
		return draft
	}

	convo := ai.Context{}
	if built, err := s.contexts.BuildContext(ctx, userID); err == nil {
		convo = built
	}

	start := time.Now()
	refineCtx, cancel := context.WithTimeout(ctx, refineBudget)
	defer cancel()

	analysis, err := s.planner.AnalyzeTone(refineCtx, draft, convo)
	if elapsed := time.Since(start); elapsed > refineBudget {
		s.logger.Warn().Dur("elapsed", elapsed).Str("user_id", userID).Msg("tone refinement exceeded budget")
	}
	if err != nil || analysis.SuggestedReply == "" {
		return draft
	}
	return analysis.SuggestedReply
}

func (s *executionService) recordOutcome(ctx context.Context, plan *models.ActionPlan, status string, metadata map[string]interface{}) {
	record := &models.AuditRecord{
		UserID:     plan.UserID,
		ActionID:   plan.ID,
		ActionType: plan.ActionType,
		Status:     status,
		Metadata:   metadata,
	}
	if err := s.audit.Log(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("action_id", plan.ID).Msg("failed to write audit record")
	} else if s.notifier != nil {
		s.notifier.PublishOutcome(record)
	}
	observability.ActionExecutions.WithLabelValues(plan.ActionType, status).Inc()
}

func mergeOutcome(base, extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
