package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (int, APIResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload APIResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	return resp.StatusCode, payload
}

func TestSendSuccess(t *testing.T) {
	status, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "done", fiber.Map{"count": 2})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "done", payload.Message)
	require.NotNil(t, payload.Data)
}

func TestSendSuccessDefaultsMessage(t *testing.T) {
	_, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "", nil)
	})

	require.Equal(t, "success", payload.Message)
}

func TestSendSuccessWithStatus(t *testing.T) {
	status, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccessWithStatus(c, fiber.StatusCreated, "created", nil)
	})

	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, payload.Success)
}

func TestSendError(t *testing.T) {
	status, payload := performRequest(t, func(c *fiber.Ctx) error {
		return SendError(c, fiber.StatusConflict, "already processed")
	})

	require.Equal(t, fiber.StatusConflict, status)
	require.False(t, payload.Success)
	require.Equal(t, "already processed", payload.Message)
}
