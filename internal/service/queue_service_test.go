package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/models"
	"github.com/noah-isme/together-agent-api/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestListQueueSeparatesPendingFromRecent(t *testing.T) {
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	svc := NewQueueService(queue, repository.NewFeedbackRepository(db), nil, testLogger())
	ctx := context.Background()

	pending := &models.ActionPlan{UserID: "u1", Workflow: models.ScenarioDailyCheckIn, ActionType: models.ActionDraftPartnerReply, Payload: map[string]interface{}{}}
	done := &models.ActionPlan{UserID: "u1", Workflow: models.ScenarioDailyCheckIn, ActionType: models.ActionSendQuizFollowup, Payload: map[string]interface{}{}}
	_, err := queue.Enqueue(ctx, []*models.ActionPlan{pending, done})
	require.NoError(t, err)
	_, err = queue.UpdateStatus(ctx, []string{done.ID}, models.ActionStatusExecuted, nil)
	require.NoError(t, err)

	response, err := svc.ListQueue(ctx, "u1", 0, false)
	require.NoError(t, err)
	require.Equal(t, 1, response.PendingCount)
	require.Empty(t, response.Recent)

	response, err = svc.ListQueue(ctx, "u1", 0, true)
	require.NoError(t, err)
	require.Equal(t, 1, response.PendingCount)
	require.Len(t, response.Recent, 2)
}

func TestGetActionsCombinesSuggestionsAndQueue(t *testing.T) {
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	ctx := context.Background()

	plan := &models.ActionPlan{UserID: "u1", Workflow: models.ScenarioDailyCheckIn, ActionType: models.ActionDraftPartnerReply, Payload: map[string]interface{}{}}
	_, err := queue.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)

	suggestions := NewSuggestionService(nil, nil, &fakeContextProvider{}, SuggestionServiceConfig{}, testLogger())
	svc := NewQueueService(queue, repository.NewFeedbackRepository(db), suggestions, testLogger())

	response, err := svc.GetActions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, response.AutomationQueue, 1)
	require.NotEmpty(t, response.Suggestions)
	require.NotNil(t, response.LLM)
	require.Equal(t, "deterministic_fallback", response.LLM.Strategy)
}

func TestRecordFeedbackTransitionsPlanOnce(t *testing.T) {
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	svc := NewQueueService(queue, repository.NewFeedbackRepository(db), nil, testLogger())
	ctx := context.Background()

	plan := &models.ActionPlan{UserID: "u1", Workflow: models.ScenarioDailyCheckIn, ActionType: models.ActionDraftPartnerReply, Payload: map[string]interface{}{}}
	_, err := queue.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)

	err = svc.RecordFeedback(ctx, "u1", plan.ID, dto.FeedbackRequest{Rating: intPtr(5), Status: models.ActionStatusCancelled})
	require.NoError(t, err)

	stored, err := queue.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusCancelled, stored.Status)

	err = svc.RecordFeedback(ctx, "u1", plan.ID, dto.FeedbackRequest{Rating: intPtr(1), Status: models.ActionStatusCancelled})
	require.ErrorIs(t, err, ErrConflict)
}

func TestRecordFeedbackWithoutStatusKeepsPlanPending(t *testing.T) {
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	svc := NewQueueService(queue, repository.NewFeedbackRepository(db), nil, testLogger())
	ctx := context.Background()

	plan := &models.ActionPlan{UserID: "u1", Workflow: models.ScenarioDailyCheckIn, ActionType: models.ActionDraftPartnerReply, Payload: map[string]interface{}{}}
	_, err := queue.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)

	err = svc.RecordFeedback(ctx, "u1", plan.ID, dto.FeedbackRequest{Rating: intPtr(4), Comment: "looks good"})
	require.NoError(t, err)

	stored, err := queue.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusPending, stored.Status)
}

func TestRecordFeedbackRejectsForeignPlan(t *testing.T) {
	db := setupServiceDB(t)
	queue := repository.NewActionQueueRepository(db)
	svc := NewQueueService(queue, repository.NewFeedbackRepository(db), nil, testLogger())
	ctx := context.Background()

	plan := &models.ActionPlan{UserID: "u2", Workflow: models.ScenarioDailyCheckIn, ActionType: models.ActionDraftPartnerReply, Payload: map[string]interface{}{}}
	_, err := queue.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)

	err = svc.RecordFeedback(ctx, "u1", plan.ID, dto.FeedbackRequest{Rating: intPtr(2)})
	require.ErrorIs(t, err, ErrNotFound)
}
