package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cronTestApp(secret string) *fiber.App {
	app := fiber.New()
	app.Post("/internal/cron/test", CronAuth(secret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestCronAuthAcceptsSecret(t *testing.T) {
	app := cronTestApp("s3cret")

	req := httptest.NewRequest("POST", "/internal/cron/test", nil)
	req.Header.Set("Authorization", "Bearer s3cret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCronAuthRejectsWrongSecret(t *testing.T) {
	app := cronTestApp("s3cret")

	req := httptest.NewRequest("POST", "/internal/cron/test", nil)
	req.Header.Set("Authorization", "Bearer nope")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCronAuthRejectsMissingHeader(t *testing.T) {
	app := cronTestApp("s3cret")

	resp, err := app.Test(httptest.NewRequest("POST", "/internal/cron/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCronAuthUnavailableWithoutSecret(t *testing.T) {
	app := cronTestApp("")

	req := httptest.NewRequest("POST", "/internal/cron/test", nil)
	req.Header.Set("Authorization", "Bearer anything")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
