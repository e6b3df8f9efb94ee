package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

const (
	tiktokAuthURL    = "https://www.tiktok.com/v2/auth/authorize"
	googleAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	instagramAuthURL = "https://www.instagram.com/oauth/authorize"
)

type AccountService interface {
	GetAuthURL(ctx context.Context, platform, tokenString string) string
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewAccountService(cfg config.Config, sa repository.SocialAccountRepository) AccountService {
	return &accountService{
		cfg: cfg,
		sa:  sa,
	}
}

func (s *accountService) GetAuthURL(ctx context.Context, platform, tokenString string) string {
	switch platform {
	case models.PlatformInstagram:
		params := url.Values{}
		params.Add("client_id", s.cfg.InstagramClientID)
		params.Add("scope", "instagram_business_basic,instagram_business_content_publish")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.InstagramRedirectURI)
		params.Add("state", tokenString)
		return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())

	case models.PlatformTiktok:
		params := url.Values{}
		params.Add("client_key", s.cfg.TiktokClientKey)
		params.Add("scope", "user.info.basic,user.info.profile,video.publish,video.upload")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.TiktokRedirectURI)
		params.Add("state", tokenString)
		return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())

	case models.PlatformYoutube:
		params := url.Values{}
		params.Add("client_id", s.cfg.GoogleClientID)
		params.Add("redirect_uri", s.cfg.GoogleRedirectURI)
		params.Add("response_type", "code")
		params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/youtube.upload")
		params.Add("state", tokenString)
		params.Add("access_type", "offline")
		return fmt.Sprintf("%s?%s", googleAuthURL, params.Encode())

	default:
		return ""
	}
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("error getting social accounts", err)
	}

	return accounts, nil
}

// Disconnect revokes platform access and soft-deletes the account so existing
// destination rows keep their reference.
func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return apperrors.Internal("error checking social account", err)
	}
	if !isValid {
		return apperrors.NotFound("social account not found")
	}

	accountInfo, err := s.sa.GetByID(ctx, accountID)
	if err != nil || accountInfo == nil {
		return apperrors.NotFound("social account not found")
	}

	decryptedAccessToken, err := utils.Decrypt(accountInfo.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return apperrors.Internal("error decrypting token", err)
	}

	switch accountInfo.Platform {
	case models.PlatformTiktok:
		err = RevokeTiktokAccess(decryptedAccessToken)
	case models.PlatformYoutube:
		err = RevokeGoogleAccess(decryptedAccessToken)
	}
	if err != nil {
		// Revocation is best effort; the account is deactivated either way.
		slog.Info("token revoke failed", "account_id", accountID, "error", err.Error())
	}

	if err := s.sa.Deactivate(ctx, accountID); err != nil {
		return apperrors.Internal("error deactivating account", err)
	}
	return nil
}
