package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/queue"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

// CollisionWindow is the advisory range around a scheduling time within which
// the user is warned about near-simultaneous posts.
const CollisionWindow = 5 * time.Minute

// scheduleAttempts bounds the reload-and-retry loop used when the post's
// version moves between read and update.
const scheduleAttempts = 2

type Service interface {
	Schedule(ctx context.Context, userID, postID int64, at time.Time) error
	Reschedule(ctx context.Context, userID, postID int64, at time.Time) (*transfer.ScheduleResult, error)
	PostNow(ctx context.Context, userID, postID int64) error
	Cancel(ctx context.Context, userID, postID int64) error
	Retry(ctx context.Context, postID int64) (int64, error)
}

type service struct {
	pr repository.PostRepository
	dr repository.DestinationRepository
	q  queue.TaskQueue
}

func NewService(pr repository.PostRepository, dr repository.DestinationRepository, q queue.TaskQueue) Service {
	return &service{pr: pr, dr: dr, q: q}
}

// Schedule replaces the post's publish job with one firing at t and marks the
// post scheduled. The queue mutation and the row update are two separate
// writes; the version check keeps racing calls from stacking jobs.
func (s *service) Schedule(ctx context.Context, userID, postID int64, at time.Time) error {
	for attempt := 0; attempt < scheduleAttempts; attempt++ {
		post, err := s.loadSchedulable(ctx, userID, postID)
		if err != nil {
			return err
		}

		if at.Before(time.Now()) {
			return apperrors.InvalidTime("scheduled time is in the past")
		}

		if err := s.replaceJob(ctx, userID, postID, time.Until(at)); err != nil {
			return apperrors.Internal("error scheduling post", err)
		}

		ok, err := s.pr.UpdateSchedule(ctx, postID, userID, at, models.PostStatusScheduled, post.Version)
		if err != nil {
			return apperrors.Internal("error updating post", err)
		}
		if ok {
			return nil
		}
		slog.Info("schedule version conflict, retrying", "post_id", postID)
	}
	return apperrors.Conflict("conflict", "post was modified concurrently")
}

// Reschedule behaves like Schedule and additionally reports whether another of
// the user's scheduled posts falls within the collision window. The report is
// advisory; it never blocks the reschedule.
func (s *service) Reschedule(ctx context.Context, userID, postID int64, at time.Time) (*transfer.ScheduleResult, error) {
	if err := s.Schedule(ctx, userID, postID, at); err != nil {
		return nil, err
	}

	result := &transfer.ScheduleResult{PostID: postID}

	neighbors, err := s.pr.ListByWindow(ctx, userID, at.Add(-CollisionWindow), at.Add(CollisionWindow))
	if err != nil {
		// Collision detection is best effort; the reschedule already
		// succeeded.
		slog.Info("collision check failed", "post_id", postID, "error", err.Error())
		return result, nil
	}

	for _, other := range neighbors {
		if other.ID == postID {
			continue
		}
		result.HasCollision = true
		result.CollidingWith = other.ID
		break
	}

	return result, nil
}

// PostNow enqueues an immediate publish job and moves the post to publishing.
func (s *service) PostNow(ctx context.Context, userID, postID int64) error {
	for attempt := 0; attempt < scheduleAttempts; attempt++ {
		post, err := s.loadSchedulable(ctx, userID, postID)
		if err != nil {
			return err
		}

		if err := s.replaceJob(ctx, userID, postID, 0); err != nil {
			return apperrors.Internal("error queueing post", err)
		}

		ok, err := s.pr.UpdateSchedule(ctx, postID, userID, time.Now(), models.PostStatusPublishing, post.Version)
		if err != nil {
			return apperrors.Internal("error updating post", err)
		}
		if ok {
			return nil
		}
		slog.Info("post-now version conflict, retrying", "post_id", postID)
	}
	return apperrors.Conflict("conflict", "post was modified concurrently")
}

// Cancel removes the pending job, if any, and reverts the post to draft.
func (s *service) Cancel(ctx context.Context, userID, postID int64) error {
	for attempt := 0; attempt < scheduleAttempts; attempt++ {
		post, err := s.pr.GetByIDForUser(ctx, postID, userID)
		if err != nil {
			return apperrors.Internal("error loading post", err)
		}
		if post == nil {
			return apperrors.NotFound("post not found")
		}
		if post.Status == models.PostStatusPublishing || post.Status == models.PostStatusPublished {
			return apperrors.InvalidState("post can no longer be cancelled")
		}

		if err := s.q.RemovePublish(ctx, postID); err != nil {
			return apperrors.Internal("error removing job", err)
		}

		ok, err := s.pr.UpdateSchedule(ctx, postID, userID, post.ScheduledTime, models.PostStatusDraft, post.Version)
		if err != nil {
			return apperrors.Internal("error updating post", err)
		}
		if ok {
			return nil
		}
		slog.Info("cancel version conflict, retrying", "post_id", postID)
	}
	return apperrors.Conflict("conflict", "post was modified concurrently")
}

// Retry is worker-privileged: it resets failed destinations to pending,
// leaves successes untouched, and enqueues a fresh immediate job.
func (s *service) Retry(ctx context.Context, postID int64) (int64, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return 0, apperrors.Internal("error loading post", err)
	}
	if post == nil {
		return 0, apperrors.NotFound("post not found")
	}

	reset, err := s.dr.ResetFailed(ctx, postID)
	if err != nil {
		return 0, apperrors.Internal("error resetting destinations", err)
	}

	if err := s.pr.UpdateStatus(ctx, models.PostStatusPublishing, postID); err != nil {
		return 0, apperrors.Internal("error updating post", err)
	}

	if err := s.replaceJob(ctx, post.UserID, postID, 0); err != nil {
		return 0, apperrors.Internal("error queueing retry", err)
	}

	return reset, nil
}

func (s *service) loadSchedulable(ctx context.Context, userID, postID int64) (*models.ScheduledPost, error) {
	post, err := s.pr.GetByIDForUser(ctx, postID, userID)
	if err != nil {
		return nil, apperrors.Internal("error loading post", err)
	}
	if post == nil {
		return nil, apperrors.NotFound("post not found")
	}
	if post.Status == models.PostStatusPublishing || post.Status == models.PostStatusPublished {
		return nil, apperrors.InvalidState("post is already " + post.Status)
	}
	if post.Approval == models.ApprovalRejected {
		return nil, apperrors.InvalidState("post was rejected")
	}
	return post, nil
}

// replaceJob removes any live job for the post before enqueueing the new one.
// The task id post-{id} is the dedup key; the two queue calls are not atomic.
func (s *service) replaceJob(ctx context.Context, userID, postID int64, delay time.Duration) error {
	if err := s.q.RemovePublish(ctx, postID); err != nil {
		return err
	}
	if delay < 0 {
		delay = 0
	}
	return s.q.EnqueuePublish(ctx, queue.PublishPostPayload{PostID: postID, UserID: userID}, delay)
}
