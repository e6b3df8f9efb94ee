package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

type PostDetails struct {
	Post         *models.ScheduledPost     `json:"post"`
	Destinations []*models.PostDestination `json:"destinations"`
}

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Time, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	Info(ctx context.Context, postID, userID int64) (*PostDetails, error)
	Remove(ctx context.Context, userID, postID int64) error
	Calendar(ctx context.Context, userID int64, from, to time.Time) ([]*models.ScheduledPost, error)
	Analytics(ctx context.Context, userID int64) (*transfer.AnalyticsSummary, error)
	SetApproval(ctx context.Context, userID, postID int64, decision string) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	dr repository.DestinationRepository
	ac repository.SocialAccountRepository
	ma repository.MediaAssetRepository
	pm repository.PostMediaRepository
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	dr repository.DestinationRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository) PostService {
	return &postService{
		db: db,
		pr: pr,
		dr: dr,
		ac: ac,
		ma: ma,
		pm: pm,
	}
}

// Create inserts the post, its destination rows, and its media links in one
// transaction. Scheduling the publish job is the scheduler's business.
func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Time, error) {
	if pc == nil || pc.Caption == "" {
		return 0, time.Time{}, apperrors.Invalid("invalid_request", "caption cannot be empty")
	}
	if len(pc.AccountIDs) == 0 {
		return 0, time.Time{}, apperrors.Invalid("invalid_request", "no social accounts selected")
	}

	var (
		scheduledTime time.Time
		err           error
	)
	if pc.ScheduledTime != "" {
		scheduledTime, err = time.Parse(scheduledTimeLayout, pc.ScheduledTime)
		if err != nil {
			return 0, time.Time{}, apperrors.Invalid("invalid_time", "invalid scheduled time format")
		}
	}

	status := models.PostStatusDraft
	if !pc.Draft {
		if scheduledTime.Before(time.Now()) {
			return 0, time.Time{}, apperrors.InvalidTime("scheduled time is in the past")
		}
		status = models.PostStatusScheduled
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, time.Time{}, apperrors.Internal("failed to start transaction", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	post := models.ScheduledPost{
		UserID:        userID,
		Caption:       pc.Caption,
		Title:         pc.Title,
		ScheduledTime: scheduledTime,
		Status:        status,
		Approval:      models.ApprovalNone,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, time.Time{}, apperrors.Internal("error creating post", err)
	}

	if err = s.saveDestinations(ctx, tx, userID, postID, pc.AccountIDs); err != nil {
		return 0, time.Time{}, err
	}

	if err = s.saveMedia(ctx, tx, userID, postID, pc.MediaIDs); err != nil {
		return 0, time.Time{}, err
	}

	if err = tx.Commit(); err != nil {
		return 0, time.Time{}, apperrors.Internal("failed to commit transaction", err)
	}

	return postID, scheduledTime, nil
}

func (s *postService) saveDestinations(ctx context.Context, tx *sql.Tx, userID, postID int64, accountIDs []int64) error {
	for _, accountID := range accountIDs {
		exists, err := s.ac.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return apperrors.Internal("error checking social account", err)
		}
		if !exists {
			return apperrors.Invalid("unknown_account", "social account does not exist")
		}

		destination := models.PostDestination{
			PostID:    postID,
			AccountID: accountID,
			Status:    models.DestinationStatusPending,
		}
		if _, err := s.dr.Create(ctx, tx, &destination); err != nil {
			return apperrors.Internal("error saving destination", err)
		}
	}
	return nil
}

func (s *postService) saveMedia(ctx context.Context, tx *sql.Tx, userID, postID int64, mediaIDs []int64) error {
	for i, assetID := range mediaIDs {
		exists, err := s.ma.CheckByUserID(ctx, assetID, userID)
		if err != nil {
			return apperrors.Internal("error checking media asset", err)
		}
		if !exists {
			return apperrors.Invalid("unknown_media", "media asset does not exist")
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return apperrors.Internal("error saving media link", err)
		}
	}
	return nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("error listing posts", err)
	}
	return posts, nil
}

func (s *postService) Info(ctx context.Context, postID, userID int64) (*PostDetails, error) {
	post, err := s.pr.GetByIDForUser(ctx, postID, userID)
	if err != nil {
		return nil, apperrors.Internal("error loading post", err)
	}
	if post == nil {
		return nil, apperrors.NotFound("post not found")
	}

	destinations, err := s.dr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, apperrors.Internal("error loading destinations", err)
	}

	return &PostDetails{Post: post, Destinations: destinations}, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.pr.GetByIDForUser(ctx, postID, userID)
	if err != nil {
		return apperrors.Internal("error loading post", err)
	}
	if post == nil {
		return apperrors.NotFound("post not found")
	}
	if post.Status == models.PostStatusPublishing {
		return apperrors.InvalidState("post is publishing")
	}

	if err := s.pr.Remove(ctx, postID, userID); err != nil {
		return apperrors.Internal("error removing post", err)
	}
	return nil
}

func (s *postService) Calendar(ctx context.Context, userID int64, from, to time.Time) ([]*models.ScheduledPost, error) {
	if !to.After(from) {
		return nil, apperrors.Invalid("invalid_range", "to must be after from")
	}

	posts, err := s.pr.ListByWindow(ctx, userID, from, to)
	if err != nil {
		return nil, apperrors.Internal("error loading calendar", err)
	}
	return posts, nil
}

func (s *postService) Analytics(ctx context.Context, userID int64) (*transfer.AnalyticsSummary, error) {
	byStatus, err := s.pr.CountByStatus(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("error loading post counts", err)
	}

	byOutcome, err := s.dr.CountByStatus(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("error loading destination counts", err)
	}

	platformSuccess, err := s.dr.CountByPlatform(ctx, userID, models.DestinationStatusSuccess)
	if err != nil {
		return nil, apperrors.Internal("error loading platform counts", err)
	}

	platformFailed, err := s.dr.CountByPlatform(ctx, userID, models.DestinationStatusFailed)
	if err != nil {
		return nil, apperrors.Internal("error loading platform counts", err)
	}

	return &transfer.AnalyticsSummary{
		PostsByStatus:      byStatus,
		PublishesByOutcome: byOutcome,
		PlatformSuccess:    platformSuccess,
		PlatformFailed:     platformFailed,
	}, nil
}

func (s *postService) SetApproval(ctx context.Context, userID, postID int64, decision string) error {
	if decision != models.ApprovalApproved && decision != models.ApprovalRejected {
		return apperrors.Invalid("invalid_decision", "decision must be approved or rejected")
	}

	post, err := s.pr.GetByIDForUser(ctx, postID, userID)
	if err != nil {
		return apperrors.Internal("error loading post", err)
	}
	if post == nil {
		return apperrors.NotFound("post not found")
	}

	if err := s.pr.UpdateApproval(ctx, decision, postID, userID); err != nil {
		return apperrors.Internal("error updating approval", err)
	}
	return nil
}
