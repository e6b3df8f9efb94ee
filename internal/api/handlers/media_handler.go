package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/service"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(s service.MediaService) *MediaHandler {
	return &MediaHandler{s: s}
}

func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	userID := GetUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_file", "file is required"))
	}

	asset, err := h.s.Upload(c.Context(), userID, file)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(asset)
}

func (h *MediaHandler) List(c *fiber.Ctx) error {
	userID := GetUserID(c)

	assets, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(assets)
}

func (h *MediaHandler) Remove(c *fiber.Ctx) error {
	userID := GetUserID(c)
	assetID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid asset id"))
	}

	if err := h.s.Remove(c.Context(), userID, int64(assetID)); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
