package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/repository"
	"github.com/noah-isme/together-agent-api/pkg/ai"
)

type fakeMessenger struct {
	sent []string
	err  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ string, content string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, content)
	return map[string]interface{}{"message_id": "m1"}, nil
}

type fakeCalendar struct {
	created []string
	err     error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ string, title, date, timeOfDay, _ string) (map[string]interface{}, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, title+"|"+date+"|"+timeOfDay)
	return map[string]interface{}{"event_id": "e1"}, nil
}

type fakeAuditNotifier struct {
	published []*models.AuditRecord
}

func (f *fakeAuditNotifier) PublishOutcome(record *models.AuditRecord) {
	f.published = append(f.published, record)
}

type executionFixture struct {
	svc      ExecutionService
	queue    repository.ActionQueueRepository
	audit    repository.AuditRepository
	msgr     *fakeMessenger
	cal      *fakeCalendar
	notifier *fakeAuditNotifier
}

func newExecutionFixture(t *testing.T) *executionFixture {
	t.Helper()
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	audit := repository.NewAuditRepository(db)
	msgr := &fakeMessenger{}
	cal := &fakeCalendar{}
	notifier := &fakeAuditNotifier{}
	svc := NewExecutionService(queue, audit, msgr, cal, &fakeContextProvider{}, nil, notifier, testLogger())
	return &executionFixture{svc: svc, queue: queue, audit: audit, msgr: msgr, cal: cal, notifier: notifier}
}

func (fx *executionFixture) enqueue(t *testing.T, plan *models.ActionPlan) *models.ActionPlan {
	t.Helper()
	_, err := fx.queue.Enqueue(context.Background(), []*models.ActionPlan{plan})
	require.NoError(t, err)
	return plan
}

func TestExecuteActionAcknowledgeFamily(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioOnboarding,
		ActionType: models.ActionCollectStyleSamples,
		Payload:    map[string]interface{}{},
	})

	result, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusAcknowledged, result["status"])

	stored, err := fx.queue.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusAcknowledged, stored.Status)
	require.Empty(t, fx.msgr.sent)

	records, err := fx.audit.ListRecent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, models.ActionStatusAcknowledged, records[0].Status)
}

func TestExecuteActionSendsMessageAndAuditsOnce(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: models.ActionSendDailyQuestionReminder,
		Payload:    map[string]interface{}{"question": "What made you smile today?"},
	})

	result, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, true)
	require.NoError(t, err)
	require.Equal(t, "m1", result["message_id"])
	require.Len(t, fx.msgr.sent, 1)
	require.Equal(t, "Quick reminder to answer What made you smile today?. Share your thoughts when you can!", fx.msgr.sent[0])

	stored, err := fx.queue.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusExecuted, stored.Status)
	require.Equal(t, true, stored.Metadata["auto_approved"])

	records, err := fx.audit.ListRecent(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, fx.notifier.published, 1)
	require.Equal(t, plan.ID, fx.notifier.published[0].ActionID)
}

func TestExecuteActionMessageOverrideWins(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: models.ActionDraftPartnerReply,
		Payload:    map[string]interface{}{"suggested_message": "canned text"},
	})

	_, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, map[string]interface{}{"message": "my own words"}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"my own words"}, fx.msgr.sent)
}

func TestExecuteActionSecondAttemptConflicts(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: models.ActionDraftPartnerReply,
		Payload:    map[string]interface{}{},
	})

	_, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.NoError(t, err)

	_, err = fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.ErrorIs(t, err, ErrConflict)
	require.Len(t, fx.msgr.sent, 1, "delivery must happen exactly once")
}

func TestExecuteActionForeignPlanIsNotFound(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u2",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: models.ActionDraftPartnerReply,
		Payload:    map[string]interface{}{},
	})

	_, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = fx.svc.ExecuteAction(context.Background(), "u1", "missing-id", nil, false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExecuteActionCalendarRequiresDateAndTime(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioAnniversaryPlanning,
		ActionType: models.ActionSuggestCalendarEvent,
		Payload:    map[string]interface{}{},
	})

	_, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, map[string]interface{}{"date": "2026-09-05"}, false)
	require.ErrorIs(t, err, ErrValidation)

	// A rejected request must leave the plan pending and retryable.
	stored, err := fx.queue.Get(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusPending, stored.Status)

	_, err = fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, map[string]interface{}{"date": "2026-09-05", "time": "19:00"}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Shared time together|2026-09-05|19:00"}, fx.cal.created)
}

func TestExecuteActionUnsupportedTypeLeavesPlanPending(t *testing.T) {
	fx := newExecutionFixture(t)
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: "launch_fireworks",
		Payload:    map[string]interface{}{},
	})

	_, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.ErrorIs(t, err, ErrValidation)

	stored, getErr := fx.queue.Get(context.Background(), plan.ID)
	require.NoError(t, getErr)
	require.Equal(t, models.ActionStatusPending, stored.Status)
}

func TestExecuteActionDeliveryFailureMarksFailedWithAudit(t *testing.T) {
	fx := newExecutionFixture(t)
	fx.msgr.err = errors.New("messaging down")
	plan := fx.enqueue(t, &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: models.ActionDraftPartnerReply,
		Payload:    map[string]interface{}{},
	})

	_, err := fx.svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.Error(t, err)

	stored, getErr := fx.queue.Get(context.Background(), plan.ID)
	require.NoError(t, getErr)
	require.Equal(t, models.ActionStatusFailed, stored.Status)
	require.Equal(t, "messaging down", stored.Metadata["error"])

	records, listErr := fx.audit.ListRecent(context.Background(), "u1", 10)
	require.NoError(t, listErr)
	require.Len(t, records, 1)
	require.Equal(t, models.ActionStatusFailed, records[0].Status)
}

func TestExecuteActionRefinesDraftWhenPlannerAvailable(t *testing.T) {
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	audit := repository.NewAuditRepository(db)
	msgr := &fakeMessenger{}
	planner := &fakePlanner{tone: ai.ToneAnalysis{SuggestedReply: "refined and warm"}}
	svc := NewExecutionService(queue, audit, msgr, &fakeCalendar{}, &fakeContextProvider{}, planner, nil, testLogger())

	plan := &models.ActionPlan{
		UserID:     "u1",
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: models.ActionDraftPartnerReply,
		Payload:    map[string]interface{}{"suggested_message": "rough draft"},
	}
	_, err := queue.Enqueue(context.Background(), []*models.ActionPlan{plan})
	require.NoError(t, err)

	_, err = svc.ExecuteAction(context.Background(), "u1", plan.ID, nil, false)
	require.NoError(t, err)
	require.Equal(t, []string{"refined and warm"}, msgr.sent)
}
