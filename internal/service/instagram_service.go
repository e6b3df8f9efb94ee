package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

const instagramGraphURL = "https://graph.instagram.com"

type InstagramService interface {
	InstagramCallback(ctx context.Context, code string, userID int64) error
	Publish(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, account *models.SocialAccount) (string, error)
	RefreshToken(ctx context.Context, account *models.SocialAccount) error
}

type instagramService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewInstagramService(cfg config.Config, sa repository.SocialAccountRepository) InstagramService {
	return &instagramService{
		cfg: cfg,
		sa:  sa,
	}
}

func (ig *instagramService) InstagramCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	token, err := ig.exchangeCodeForToken(code)
	if err != nil {
		return err
	}

	userInfo, err := ig.getUserInfo(token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(ig.cfg.SecretKey))
	if err != nil {
		return err
	}

	accountInfo := &models.SocialAccount{
		UserID:          userID,
		Platform:        models.PlatformInstagram,
		AccountID:       userInfo.UserID,
		AccountName:     userInfo.Name,
		AccountUsername: userInfo.Username,
		ProfilePicture:  userInfo.ProfilePicture,
		AccessToken:     encryptedAccessToken,
		RefreshToken:    encryptedAccessToken,
		TokenExpiresAt:  token.ExpiresAt,
	}

	_, err = ig.sa.Upsert(ctx, nil, accountInfo)
	if err != nil {
		return err
	}

	return nil
}

// exchangeCodeForToken trades the authorization code for a short-lived token
// and immediately upgrades it to a long-lived one.
func (ig *instagramService) exchangeCodeForToken(code string) (*transfer.InstagramToken, error) {
	data := url.Values{}
	data.Add("client_id", ig.cfg.InstagramClientID)
	data.Add("client_secret", ig.cfg.InstagramClientSecret)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", ig.cfg.InstagramRedirectURI)
	data.Add("code", code)

	resp, err := http.Post(
		"https://api.instagram.com/oauth/access_token",
		"application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var shortLived struct {
		AccessToken string `json:"access_token"`
		UserID      int    `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&shortLived); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if shortLived.AccessToken == "" {
		return nil, errors.New("Instagram returned no access token")
	}

	longLivedURL := fmt.Sprintf("%s/access_token?grant_type=ig_exchange_token&client_secret=%s&access_token=%s",
		instagramGraphURL, ig.cfg.InstagramClientSecret, shortLived.AccessToken)

	longResp, err := http.Get(longLivedURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer longResp.Body.Close()

	var longLived struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(longResp.Body).Decode(&longLived); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if longLived.AccessToken == "" {
		return nil, errors.New("Instagram returned no long-lived token")
	}

	return &transfer.InstagramToken{
		UserID:      shortLived.UserID,
		AccessToken: longLived.AccessToken,
		ExpiresAt:   GetExpiresAt(longLived.ExpiresIn),
	}, nil
}

func (ig *instagramService) getUserInfo(accessToken string) (*transfer.InstagramUserInfo, error) {
	infoURL := fmt.Sprintf("%s/me?fields=id,username,name,profile_picture_url&access_token=%s", instagramGraphURL, accessToken)

	resp, err := http.Get(infoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var igErr transfer.InstagramErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&igErr); err == nil {
			return nil, fmt.Errorf("Instagram error: %s", igErr.Error.Message)
		}
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var userInfo transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &userInfo, nil
}

// Publish creates a media container for the post's first image and publishes
// it, returning the published media id.
func (ig *instagramService) Publish(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, account *models.SocialAccount) (string, error) {
	if len(media) == 0 {
		return "", errors.New("instagram post requires a media asset")
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(ig.cfg.SecretKey))
	if err != nil {
		return "", err
	}

	containerURL := fmt.Sprintf("%s/%s/media", instagramGraphURL, account.AccountID)
	data := url.Values{}
	data.Add("image_url", media[0].FileURL)
	data.Add("caption", post.Caption)
	data.Add("access_token", accessToken)

	container, err := ig.postForm(ctx, containerURL, data)
	if err != nil {
		return "", err
	}

	publishURL := fmt.Sprintf("%s/%s/media_publish", instagramGraphURL, account.AccountID)
	publishData := url.Values{}
	publishData.Add("creation_id", container.ID)
	publishData.Add("access_token", accessToken)

	published, err := ig.postForm(ctx, publishURL, publishData)
	if err != nil {
		return "", err
	}

	return published.ID, nil
}

func (ig *instagramService) postForm(ctx context.Context, endpoint string, data url.Values) (*transfer.InstagramContainer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var igErr transfer.InstagramErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&igErr); err == nil {
			return nil, fmt.Errorf("Instagram error: %s", igErr.Error.Message)
		}
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}

	var container transfer.InstagramContainer
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if container.ID == "" {
		return nil, errors.New("Instagram returned no container id")
	}

	return &container, nil
}

// RefreshToken extends a long-lived Instagram token. Instagram has no separate
// refresh token; the access token refreshes itself.
func (ig *instagramService) RefreshToken(ctx context.Context, account *models.SocialAccount) error {
	accessToken, err := utils.Decrypt(account.AccessToken, []byte(ig.cfg.SecretKey))
	if err != nil {
		return err
	}

	refreshURL := fmt.Sprintf("%s/refresh_access_token?grant_type=ig_refresh_token&access_token=%s", instagramGraphURL, accessToken)

	resp, err := http.Get(refreshURL)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		slog.Info(err.Error())
		return err
	}
	if refreshed.AccessToken == "" {
		return errors.New("Instagram refresh returned no access token")
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(refreshed.AccessToken), []byte(ig.cfg.SecretKey))
	if err != nil {
		return err
	}

	return ig.sa.SetToken(ctx, account.ID, &models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		TokenExpiresAt: time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second),
	})
}
