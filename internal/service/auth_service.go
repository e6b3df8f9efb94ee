package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const SessionDuration = 24 * time.Hour

type AuthService interface {
	LoginCallback(ctx context.Context, code string) (int64, error)
	RecordSession(ctx context.Context, userID int64, token string) error
	Logout(ctx context.Context, token string) error
}

type authService struct {
	cfg config.Config
	u   repository.UserRepository
	sr  repository.SessionRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository, sr repository.SessionRepository) AuthService {
	return &authService{
		cfg: cfg,
		u:   u,
		sr:  sr,
	}
}

func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, apperrors.Invalid("missing_code", "authorization code is empty")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}

	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		return 0, apperrors.Internal("OAuth2 configuration is incomplete", nil)
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, apperrors.Auth("token exchange failed")
	}

	client := oauth2Config.Client(ctx, token)

	userInfo, err := GetUserInfo(client)
	if err != nil {
		return 0, apperrors.Internal("error fetching user info", err)
	}

	user, isExist, err := s.u.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		return 0, apperrors.Internal("error loading user", err)
	}

	var userID int64
	if !isExist || user.GoogleID == "" {
		userID, err = s.u.Create(ctx, nil, &models.User{
			GoogleID:       userInfo.ID,
			Email:          userInfo.Email,
			Name:           userInfo.Name,
			ProfilePicture: userInfo.Picture,
		})
		if err != nil {
			slog.Info(err.Error())
			return 0, apperrors.Internal("error creating user", err)
		}
	} else {
		userID = user.ID
	}

	return userID, nil
}

// RecordSession stores a hash of the issued token so the stale-session sweep
// can account for it later.
func (s *authService) RecordSession(ctx context.Context, userID int64, token string) error {
	_, err := s.sr.Create(ctx, &models.Session{
		UserID:    userID,
		TokenHash: utils.HashToken(token),
		ExpiresAt: time.Now().Add(SessionDuration),
	})
	if err != nil {
		return apperrors.Internal("error recording session", err)
	}
	return nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if err := s.sr.DeleteByTokenHash(ctx, utils.HashToken(token)); err != nil {
		return apperrors.Internal("error removing session", err)
	}
	return nil
}
