package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/service"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

type TeamHandler struct {
	s service.TeamService
}

func NewTeamHandler(s service.TeamService) *TeamHandler {
	return &TeamHandler{s: s}
}

func (h *TeamHandler) List(c *fiber.Ctx) error {
	userID := GetUserID(c)

	members, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(members)
}

func (h *TeamHandler) Invite(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.TeamInvite
	if err := c.BodyParser(&req); err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "unable to parse request body"))
	}

	if err := h.s.Invite(c.Context(), userID, userID, req.Email, req.Role); err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "invite sent",
	})
}

func (h *TeamHandler) Remove(c *fiber.Ctx) error {
	userID := GetUserID(c)
	memberID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid member id"))
	}

	if err := h.s.Remove(c.Context(), userID, userID, int64(memberID)); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
