package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeckhq/postdeck/internal/apperrors"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// RespondError writes the {error, code} body for a classified error.
func RespondError(c *fiber.Ctx, err error) error {
	return c.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{
		"error": apperrors.MessageOf(err),
		"code":  apperrors.CodeOf(err),
	})
}
