package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/together-agent-api/internal/models"
)

func newTestPlan(userID, actionType string) *models.ActionPlan {
	return &models.ActionPlan{
		UserID:     userID,
		Workflow:   models.ScenarioDailyCheckIn,
		ActionType: actionType,
		Title:      "Test plan",
		Confidence: 0.5,
		Payload:    map[string]interface{}{},
	}
}

func TestEnqueueDefaultsStatusAndTimestamps(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)
	ctx := context.Background()

	plan := newTestPlan("u1", models.ActionSendDailyQuestionReminder)
	ids, err := repo.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.NotEmpty(t, ids[0])

	stored, err := repo.Get(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, models.ActionStatusPending, stored.Status)
	require.False(t, stored.GeneratedAt.IsZero())
}

func TestEnqueueEmptySliceIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)

	ids, err := repo.Enqueue(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestListPendingExcludesCompletedByDefault(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)
	ctx := context.Background()

	pending := newTestPlan("u1", models.ActionDraftPartnerReply)
	done := newTestPlan("u1", models.ActionSendQuizFollowup)
	_, err := repo.Enqueue(ctx, []*models.ActionPlan{pending, done})
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, []string{done.ID}, models.ActionStatusExecuted, nil)
	require.NoError(t, err)

	plans, err := repo.ListPending(ctx, ActionQueueFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, pending.ID, plans[0].ID)

	plans, err = repo.ListPending(ctx, ActionQueueFilter{UserID: "u1", IncludeCompleted: true})
	require.NoError(t, err)
	require.Len(t, plans, 2)
}

func TestListPendingScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, []*models.ActionPlan{newTestPlan("u1", models.ActionDraftPartnerReply)})
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, []*models.ActionPlan{newTestPlan("u2", models.ActionDraftPartnerReply)})
	require.NoError(t, err)

	plans, err := repo.ListPending(ctx, ActionQueueFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "u1", plans[0].UserID)
}

func TestUpdateStatusMergesMetadata(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)
	ctx := context.Background()

	plan := newTestPlan("u1", models.ActionSuggestCalendarEvent)
	plan.Metadata = map[string]interface{}{"origin": "harvest"}
	_, err := repo.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, []string{plan.ID}, models.ActionStatusExecuted, map[string]interface{}{"result": "sent"})
	require.NoError(t, err)
	require.Equal(t, int64(1), updated)

	stored, err := repo.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusExecuted, stored.Status)
	require.Equal(t, "harvest", stored.Metadata["origin"])
	require.Equal(t, "sent", stored.Metadata["result"])
}

func TestTransitionFromPendingHappensExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)
	ctx := context.Background()

	plan := newTestPlan("u1", models.ActionDraftPartnerReply)
	_, err := repo.Enqueue(ctx, []*models.ActionPlan{plan})
	require.NoError(t, err)

	err = repo.TransitionFromPending(ctx, plan.ID, models.ActionStatusExecuting, map[string]interface{}{"claimed_at": time.Now().UTC().Format(time.RFC3339)})
	require.NoError(t, err)

	err = repo.TransitionFromPending(ctx, plan.ID, models.ActionStatusExecuting, nil)
	require.ErrorIs(t, err, ErrNoPendingTransition)

	stored, err := repo.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionStatusExecuting, stored.Status)
}

func TestGetReturnsNilForUnknownPlan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActionQueueRepository(db)

	plan, err := repo.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, plan)
}
