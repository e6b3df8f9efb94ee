package handlers

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/service"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

type AccountHandler struct {
	s   service.AccountService
	ig  service.InstagramService
	tt  service.TiktokService
	yt  service.YoutubeService
	cfg config.Config
}

func NewAccountHandler(cfg config.Config, s service.AccountService, ig service.InstagramService, tt service.TiktokService, yt service.YoutubeService) *AccountHandler {
	return &AccountHandler{
		s:   s,
		ig:  ig,
		tt:  tt,
		yt:  yt,
		cfg: cfg,
	}
}

func (h *AccountHandler) AddSocialAccount(c *fiber.Ctx) error {
	authURL := h.s.GetAuthURL(c.Context(), c.Params("platform"), c.Query("state"))
	if authURL == "" {
		return RespondError(c, apperrors.Invalid("invalid_platform", "unsupported platform"))
	}
	return c.Redirect(authURL)
}

// CallbackHandler carries the caller's identity through the OAuth state
// parameter, since the platform redirect arrives without our cookie.
func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	platform := c.Params("platform")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return RespondError(c, apperrors.Auth("unable to validate user"))
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return RespondError(c, apperrors.Auth("unable to validate user"))
	}

	switch platform {
	case models.PlatformInstagram:
		err = h.ig.InstagramCallback(c.Context(), code, userID)
	case models.PlatformTiktok:
		err = h.tt.TiktokCallback(c.Context(), code, userID)
	case models.PlatformYoutube:
		err = h.yt.YoutubeCallback(c.Context(), code, userID)
	default:
		return RespondError(c, apperrors.Invalid("invalid_platform", "unsupported platform"))
	}
	if err != nil {
		return RespondError(c, err)
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.s.List(c.Context(), userID)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *AccountHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID, err := c.ParamsInt("id")
	if err != nil {
		return RespondError(c, apperrors.Invalid("invalid_request", "invalid account id"))
	}

	if err := h.s.Disconnect(c.Context(), userID, int64(accountID)); err != nil {
		return RespondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
