package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

const (
	tiktokTokenURL   = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokRevokeURL  = "https://open.tiktokapis.com/v2/oauth/revoke/"
	tiktokUserURL    = "https://open.tiktokapis.com/v2/user/info/?fields=open_id,avatar_url,display_name,username"
	tiktokPublishURL = "https://open.tiktokapis.com/v2/post/publish/video/init/"
)

type TiktokService interface {
	TiktokCallback(ctx context.Context, code string, userID int64) error
	Publish(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, account *models.SocialAccount) (string, error)
	RefreshToken(ctx context.Context, account *models.SocialAccount) error
}

type tiktokService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewTiktokService(cfg config.Config, sa repository.SocialAccountRepository) TiktokService {
	return &tiktokService{
		cfg: cfg,
		sa:  sa,
	}
}

func (s *tiktokService) TiktokCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	tokenResponse, err := s.exchangeCodeForToken(code)
	if err != nil {
		return err
	}

	userInfo, err := TiktokUserInfo(tokenResponse.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformTiktok,
		AccountID:       userInfo.Data.User.OpenID,
		AccountName:     userInfo.Data.User.DisplayName,
		AccountUsername: userInfo.Data.User.Username,
		ProfilePicture:  userInfo.Data.User.AvatarURL,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedRefreshToken,
		TokenExpiresAt:  GetExpiresAt(tokenResponse.ExpiresIn),
	}

	_, err = s.sa.Upsert(ctx, nil, accountInfo)
	if err != nil {
		return err
	}

	return nil
}

func (s *tiktokService) exchangeCodeForToken(code string) (*transfer.TiktokTokenResponse, error) {
	data := url.Values{}
	data.Add("client_key", s.cfg.TiktokClientKey)
	data.Add("client_secret", s.cfg.TiktokClientSecret)
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", s.cfg.TiktokRedirectURI)

	resp, err := http.Post(
		tiktokTokenURL,
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("TikTok token endpoint returned non-200 status")
		return nil, errors.New("TikTok token endpoint returned non-200 status")
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if tokenResponse.AccessToken == "" {
		return nil, errors.New("TikTok token response has no access token")
	}

	return &tokenResponse, nil
}

func TiktokUserInfo(accessToken string) (*transfer.TikTokResponse, error) {
	req, err := http.NewRequest(http.MethodGet, tiktokUserURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var userInfo transfer.TikTokResponse
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if userInfo.Error.Code != "" && userInfo.Error.Code != "ok" {
		return nil, fmt.Errorf("TikTok error: %s", userInfo.Error.Message)
	}

	return &userInfo, nil
}

// Publish uploads the post's first video asset via TikTok's pull-from-URL flow
// and returns the publish id TikTok assigns.
func (s *tiktokService) Publish(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, account *models.SocialAccount) (string, error) {
	if len(media) == 0 {
		return "", errors.New("tiktok post requires a video asset")
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	uploadReq := transfer.TiktokVideoUploadRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:        post.Caption,
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: media[0].FileURL,
		},
	}

	body, err := json.Marshal(uploadReq)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokPublishURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	var uploadResp transfer.TikTokUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	if uploadResp.Error.Code != "" && uploadResp.Error.Code != "ok" {
		return "", fmt.Errorf("TikTok publish error: %s", uploadResp.Error.Message)
	}
	if uploadResp.Data.PublishID == "" {
		return "", errors.New("TikTok returned no publish id")
	}

	return uploadResp.Data.PublishID, nil
}

func (s *tiktokService) RefreshToken(ctx context.Context, account *models.SocialAccount) error {
	decryptedRefreshToken, err := utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Add("client_key", s.cfg.TiktokClientKey)
	data.Add("client_secret", s.cfg.TiktokClientSecret)
	data.Add("grant_type", "refresh_token")
	data.Add("refresh_token", decryptedRefreshToken)

	resp, err := http.Post(
		tiktokTokenURL,
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return err
	}
	if tokenResponse.AccessToken == "" {
		return errors.New("TikTok refresh returned no access token")
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(tokenResponse.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefreshToken, err := utils.Encrypt([]byte(tokenResponse.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.sa.SetToken(ctx, account.ID, &models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: GetExpiresAt(tokenResponse.ExpiresIn),
	})
}

func RevokeTiktokAccess(accessToken string) error {
	data := url.Values{}
	data.Add("token", accessToken)

	resp, err := http.Post(
		tiktokRevokeURL,
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
