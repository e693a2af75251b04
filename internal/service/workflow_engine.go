package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

// scenarioByEventType resolves a workflow when the event carries no explicit
// scenario. Unknown event types default to the daily check-in workflow.
var scenarioByEventType = map[string]string{
	models.EventDailyQuestionMissed: models.ScenarioDailyCheckIn,
	models.EventMessageReceived:     models.ScenarioDailyCheckIn,
	models.EventQuizCompleted:       models.ScenarioQuizFollowUp,
	models.EventCalendarGapDetected: models.ScenarioAnniversaryPlanning,
}

// WorkflowEngine turns one activity event into zero or more action plans.
type WorkflowEngine interface {
	EvaluateEvent(ctx context.Context, event *models.ActivityEvent) ([]models.ActionPlan, error)
}

type workflowEngine struct {
	planner  ai.Planner
	contexts ContextProvider
	logger   zerolog.Logger
}

// NewWorkflowEngine builds the planner. The language-model planner may be nil
// when the capability is disabled; evaluation then goes straight to the
// deterministic handlers.
func NewWorkflowEngine(planner ai.Planner, contexts ContextProvider, logger zerolog.Logger) WorkflowEngine {
	return &workflowEngine{
		planner:  planner,
		contexts: contexts,
		logger:   logger.With().Str("component", "workflow_engine").Logger(),
	}
}

func (e *workflowEngine) EvaluateEvent(ctx context.Context, event *models.ActivityEvent) ([]models.ActionPlan, error) {
	if event == nil || event.UserID == "" {
		return nil, nil
	}

	scenario := event.Scenario
	if scenario == "" {
		resolved, ok := scenarioByEventType[event.EventType]
		if !ok {
			resolved = models.ScenarioDailyCheckIn
		}
		scenario = resolved
	}
	if !knownScenario(scenario) {
		return nil, nil
	}

	convo, err := e.contexts.BuildContext(ctx, event.UserID)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", event.UserID).Msg("context provider failed, planning with empty context")
		convo = ai.Context{}
	}

	if plans := e.planWithModel(ctx, event, scenario, convo); len(plans) > 0 {
		return plans, nil
	}

	switch scenario {
	case models.ScenarioOnboarding:
		return e.handleOnboarding(event, convo), nil
	case models.ScenarioDailyCheckIn:
		return e.handleDailyCheckIn(event, convo), nil
	case models.ScenarioQuizFollowUp:
		return e.handleQuizFollowUp(event, convo), nil
	case models.ScenarioAnniversaryPlanning:
		return e.handleAnniversaryPlanning(event, convo), nil
	}
	return nil, nil
}

func knownScenario(scenario string) bool {
	switch scenario {
	case models.ScenarioOnboarding, models.ScenarioDailyCheckIn,
		models.ScenarioQuizFollowUp, models.ScenarioAnniversaryPlanning:
		return true
	}
	return false
}

// planWithModel asks the language-model capability first. Unavailability and
// empty results are not errors; they route the event to the deterministic
// handlers.
func (e *workflowEngine) planWithModel(ctx context.Context, event *models.ActivityEvent, scenario string, convo ai.Context) []models.ActionPlan {
	if e.planner == nil {
		return nil
	}

	result, err := e.planner.PlanActions(ctx, ai.EventInput{
		EventType: event.EventType,
		Scenario:  scenario,
		Payload:   event.Payload,
	}, convo)
	if err != nil {
		if !errors.Is(err, ai.ErrUnavailable) {
			e.logger.Warn().Err(err).Str("event_id", event.ID).Msg("action planning call failed")
		}
		return nil
	}
	if len(result.Actions) == 0 {
		return nil
	}

	llmMeta := map[string]interface{}{
		"model":    result.Model,
		"strategy": result.Strategy,
	}
	if result.Explanation != "" {
		llmMeta["explanation"] = result.Explanation
	}

	plans := make([]models.ActionPlan, 0, len(result.Actions))
	for _, proposal := range result.Actions {
		payload := map[string]interface{}{}
		if proposal.CallToAction != "" {
			payload["call_to_action"] = proposal.CallToAction
		}
		if proposal.SuggestedMessage != "" {
			payload["suggested_message"] = proposal.SuggestedMessage
		}
		plans = append(plans, models.ActionPlan{
			UserID:           event.UserID,
			Workflow:         scenario,
			TriggerEventID:   event.ID,
			ActionType:       proposal.ActionType,
			Title:            proposal.Title,
			Summary:          proposal.Summary,
			Confidence:       proposal.Confidence,
			RequiresApproval: proposal.RequiresApproval,
			Payload:          payload,
			ContextSnapshot:  snapshotContext(convo),
			Rationale:        proposal.Rationale,
			AISource:         models.AISourceModel,
			LLMMetadata:      llmMeta,
			GeneratedAt:      time.Now().UTC(),
		})
	}
	return plans
}

func (e *workflowEngine) handleOnboarding(event *models.ActivityEvent, convo ai.Context) []models.ActionPlan {
	var plans []models.ActionPlan

	if convo.StyleSummary == "" {
		plans = append(plans, e.newPlan(event, models.ScenarioOnboarding, models.ActionCollectStyleSamples, 0.6, false,
			map[string]interface{}{
				"prompt": "Share 3 messages you like so the agent can learn your tone.",
			},
			convo, "New user without style profile"))
	}

	if len(convo.RecentMessages) == 0 {
		plans = append(plans, e.newPlan(event, models.ScenarioOnboarding, models.ActionPromptFirstMessage, 0.5, false,
			map[string]interface{}{
				"message": "Send your partner a quick hello to get started.",
			},
			convo, "Kickstart engagement"))
	}

	return plans
}

func (e *workflowEngine) handleDailyCheckIn(event *models.ActivityEvent, convo ai.Context) []models.ActionPlan {
	var plans []models.ActionPlan

	if event.EventType == models.EventDailyQuestionMissed {
		var question string
		if convo.DailyQuestion != nil {
			question = convo.DailyQuestion.Question
		}
		plans = append(plans, e.newPlan(event, models.ScenarioDailyCheckIn, models.ActionSendDailyQuestionReminder, 0.75, true,
			map[string]interface{}{
				"question": question,
			},
			convo, "Reminder for missed daily reflection"))
	}

	if event.EventType == models.EventMessageReceived {
		var latest map[string]interface{}
		if len(convo.RecentMessages) > 0 {
			latest = messageMap(convo.RecentMessages[0])
		}
		plans = append(plans, e.newPlan(event, models.ScenarioDailyCheckIn, models.ActionDraftPartnerReply, 0.65, true,
			map[string]interface{}{
				"last_message": latest,
			},
			convo, "Partner reached out recently"))
	}

	return plans
}

func (e *workflowEngine) handleQuizFollowUp(event *models.ActivityEvent, convo ai.Context) []models.ActionPlan {
	score, hasScore := event.Payload["score"]
	message := "Celebrate your match score together!"
	if hasScore && score != nil {
		message = fmt.Sprintf("Celebrate your %v%% compatibility score together!", score)
	}
	plan := e.newPlan(event, models.ScenarioQuizFollowUp, models.ActionSendQuizFollowup, 0.7, true,
		map[string]interface{}{
			"score":             score,
			"suggested_message": message,
		},
		convo, "Follow up on completed compatibility session")
	return []models.ActionPlan{plan}
}

func (e *workflowEngine) handleAnniversaryPlanning(event *models.ActivityEvent, convo ai.Context) []models.ActionPlan {
	plan := e.newPlan(event, models.ScenarioAnniversaryPlanning, models.ActionSuggestCalendarEvent, 0.6, true,
		map[string]interface{}{
			"suggested_window": map[string]interface{}(event.Payload),
			"idea":             "Schedule a shared activity for the coming week.",
		},
		convo, "Detected gap in upcoming shared plans")
	return []models.ActionPlan{plan}
}

func (e *workflowEngine) newPlan(event *models.ActivityEvent, workflow, actionType string, confidence float64, requiresApproval bool, payload map[string]interface{}, convo ai.Context, rationale string) models.ActionPlan {
	return models.ActionPlan{
		UserID:           event.UserID,
		Workflow:         workflow,
		TriggerEventID:   event.ID,
		ActionType:       actionType,
		Title:            fallbackTitle(actionType),
		Confidence:       confidence,
		RequiresApproval: requiresApproval,
		Payload:          payload,
		ContextSnapshot:  snapshotContext(convo),
		Rationale:        rationale,
		AISource:         models.AISourceLegacy,
		GeneratedAt:      time.Now().UTC(),
	}
}

func fallbackTitle(actionType string) string {
	switch actionType {
	case models.ActionCollectStyleSamples:
		return "Teach the agent your tone"
	case models.ActionPromptFirstMessage:
		return "Say hello to your partner"
	case models.ActionSendDailyQuestionReminder:
		return "Daily reflection reminder"
	case models.ActionDraftPartnerReply:
		return "Draft a reply to your partner"
	case models.ActionSendQuizFollowup:
		return "Celebrate your quiz results"
	case models.ActionSuggestCalendarEvent:
		return "Plan something together"
	}
	return "Agent suggestion"
}

// snapshotContext bounds the context attached to a plan: at most three recent
// messages and three upcoming events.
func snapshotContext(convo ai.Context) map[string]interface{} {
	snapshot := map[string]interface{}{
		"partner_status": convo.PartnerStatus,
	}
	if convo.StyleSummary != "" {
		snapshot["style_summary"] = convo.StyleSummary
	}
	if convo.DailyQuestion != nil {
		snapshot["daily_question"] = map[string]interface{}{
			"question":       convo.DailyQuestion.Question,
			"your_answer":    convo.DailyQuestion.YourAnswer,
			"partner_answer": convo.DailyQuestion.PartnerAnswer,
			"answered":       convo.DailyQuestion.Answered,
		}
	}

	messages := make([]interface{}, 0, 3)
	for i, msg := range convo.RecentMessages {
		if i == 3 {
			break
		}
		messages = append(messages, messageMap(msg))
	}
	snapshot["recent_messages"] = messages

	events := make([]interface{}, 0, 3)
	for i, evt := range convo.UpcomingEvents {
		if i == 3 {
			break
		}
		events = append(events, map[string]interface{}{
			"title":      evt.Title,
			"start_time": evt.StartTime,
		})
	}
	snapshot["upcoming_events"] = events

	return snapshot
}

func messageMap(msg ai.Message) map[string]interface{} {
	return map[string]interface{}{
		"author":     msg.Author,
		"content":    msg.Content,
		"created_at": msg.CreatedAt,
	}
}
