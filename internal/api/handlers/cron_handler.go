package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/jobs"
)

// CronHandler exposes the maintenance jobs over HTTP so an external scheduler
// can trigger them in addition to the in-process cron.
type CronHandler struct {
	tokens   *jobs.TokenExpiryJob
	media    *jobs.MediaSweepJob
	sessions *jobs.SessionSweepJob
}

func NewCronHandler(tokens *jobs.TokenExpiryJob, media *jobs.MediaSweepJob, sessions *jobs.SessionSweepJob) *CronHandler {
	return &CronHandler{tokens: tokens, media: media, sessions: sessions}
}

func (h *CronHandler) TokenRefresh(c *fiber.Ctx) error {
	processed, err := h.tokens.Run(c.Context())
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": processed,
	})
}

func (h *CronHandler) MediaSweep(c *fiber.Ctx) error {
	processed, err := h.media.Run(c.Context())
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": processed,
	})
}

func (h *CronHandler) SessionSweep(c *fiber.Ctx) error {
	processed, err := h.sessions.Run(c.Context())
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": processed,
	})
}
