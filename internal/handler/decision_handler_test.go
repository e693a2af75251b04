package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/together-agent-api/internal/dto"
	"github.com/noah-isme/together-agent-api/internal/handler"
)

type mockDecisionService struct {
	stats         dto.DecisionStats
	lastBatchSize int
	lastUserID    string
	lastBudget    *time.Duration
	calls         int
}

func (m *mockDecisionService) ProcessPendingEvents(_ context.Context, batchSize int, userID string, timeBudget *time.Duration) (dto.DecisionStats, error) {
	m.calls++
	m.lastBatchSize = batchSize
	m.lastUserID = userID
	m.lastBudget = timeBudget
	return m.stats, nil
}

func newDecisionApp(svc *mockDecisionService) *fiber.App {
	h := handler.NewDecisionHandler(svc, zerolog.New(io.Discard))
	return newAgentApp(h.Register)
}

func TestDecisionHandler_RunWithoutBody(t *testing.T) {
	svc := &mockDecisionService{stats: dto.DecisionStats{EventsProcessed: 3, PlansGenerated: 1}}
	app := newDecisionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/agent/decisions/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.calls)
	require.Equal(t, "u1", svc.lastUserID)
	require.Nil(t, svc.lastBudget)

	var response struct {
		Data dto.DecisionStats `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, 3, response.Data.EventsProcessed)
}

func TestDecisionHandler_RunConvertsTimeBudget(t *testing.T) {
	svc := &mockDecisionService{}
	app := newDecisionApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/decisions/run", bytes.NewReader([]byte(`{"batch_size": 10, "time_budget_seconds": 1.5}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 10, svc.lastBatchSize)
	require.NotNil(t, svc.lastBudget)
	require.Equal(t, 1500*time.Millisecond, *svc.lastBudget)
}

func TestDecisionHandler_RunRejectsNegativeBudget(t *testing.T) {
	svc := &mockDecisionService{}
	app := newDecisionApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/decisions/run", bytes.NewReader([]byte(`{"time_budget_seconds": -1}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.calls)
}

func TestDecisionHandler_RunZeroBudgetIsPassedThrough(t *testing.T) {
	svc := &mockDecisionService{}
	app := newDecisionApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/agent/decisions/run", bytes.NewReader([]byte(`{"time_budget_seconds": 0}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.lastBudget)
	require.Equal(t, time.Duration(0), *svc.lastBudget)
}
