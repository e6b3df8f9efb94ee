package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/scheduler"
	"github.com/postdeckhq/postdeck/internal/service"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

const calendarTimeLayout = "2006-01-02"

type PostHandler struct {
	s     service.PostService
	sched scheduler.Service
}

func NewPostHandler(s service.PostService, sched scheduler.Service) *PostHandler {
	return &PostHandler{s: s, sched: sched}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pc transfer.PostCreation
	if err := c.BodyParser(&pc); err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "unable to parse request body"))
	}

	postID, scheduledAt, err := h.s.Create(c.Context(), userID, &pc)
	if err != nil {
		return RespondError(c, err)
	}

	if !pc.Draft {
		if err := h.sched.Schedule(c.Context(), userID, postID, scheduledAt); err != nil {
			return RespondError(c, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      postID,
		"message": "post created",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	details, err := h.s.Info(c.Context(), int64(postID), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(details)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	at, err := parseScheduleBody(c)
	if err != nil {
		return RespondError(c, err)
	}

	if err := h.sched.Schedule(c.Context(), userID, int64(postID), at); err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "post scheduled",
	})
}

func (h *PostHandler) ReschedulePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	at, err := parseScheduleBody(c)
	if err != nil {
		return RespondError(c, err)
	}

	result, err := h.sched.Reschedule(c.Context(), userID, int64(postID), at)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PostHandler) PostNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	if err := h.sched.PostNow(c.Context(), userID, int64(postID)); err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "post is publishing",
	})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	if err := h.sched.Cancel(c.Context(), userID, int64(postID)); err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "post cancelled",
	})
}

// RetryPost is worker-privileged; it sits behind the cron secret, not user auth.
func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	reset, err := h.sched.Retry(c.Context(), int64(postID))
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"reset_destinations": reset,
	})
}

func (h *PostHandler) SetApproval(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid post id"))
	}

	var req transfer.ApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "unable to parse request body"))
	}

	if err := h.s.SetApproval(c.Context(), userID, int64(postID), req.Decision); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) Calendar(c *fiber.Ctx) error {
	userID := GetUserID(c)

	from, err := time.Parse(calendarTimeLayout, c.Query("from"))
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_range", "invalid from date"))
	}
	to, err := time.Parse(calendarTimeLayout, c.Query("to"))
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_range", "invalid to date"))
	}

	posts, err := h.s.Calendar(c.Context(), userID, from, to)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) Analytics(c *fiber.Ctx) error {
	userID := GetUserID(c)

	summary, err := h.s.Analytics(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func parseScheduleBody(c *fiber.Ctx) (time.Time, error) {
	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return time.Time{}, apperrors.Invalid("invalid_request", "unable to parse request body")
	}

	at, err := time.Parse("2006-01-02T15:04", req.ScheduledTime)
	if err != nil {
		return time.Time{}, apperrors.Invalid("invalid_time", "invalid scheduled time format")
	}
	return at, nil
}
