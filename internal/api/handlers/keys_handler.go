package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/service"
)

type KeysHandler struct {
	s service.ApiKeyService
}

func NewKeysHandler(s service.ApiKeyService) *KeysHandler {
	return &KeysHandler{s: s}
}

func (h *KeysHandler) CreateAPIKey(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.s.Create(c.Context(), userID); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusCreated)
}

func (h *KeysHandler) ListAPIKeys(c *fiber.Ctx) error {
	userID := GetUserID(c)

	keys, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *KeysHandler) RemoveAPIKey(c *fiber.Ctx) error {
	userID := GetUserID(c)
	keyID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid key id"))
	}

	if err := h.s.RemoveAPIKey(c.Context(), userID, int64(keyID)); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
