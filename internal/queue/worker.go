package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
)

// Publisher is one platform integration. Publish returns the platform-assigned
// post id.
type Publisher interface {
	Publish(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, account *models.SocialAccount) (string, error)
	RefreshToken(ctx context.Context, account *models.SocialAccount) error
}

type Worker struct {
	pr          repository.PostRepository
	dr          repository.DestinationRepository
	ac          repository.SocialAccountRepository
	pm          repository.PostMediaRepository
	ma          repository.MediaAssetRepository
	publishers  map[string]Publisher
	concurrency int
}

func NewWorker(
	pr repository.PostRepository,
	dr repository.DestinationRepository,
	ac repository.SocialAccountRepository,
	pm repository.PostMediaRepository,
	ma repository.MediaAssetRepository,
	publishers map[string]Publisher,
	concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Worker{
		pr:          pr,
		dr:          dr,
		ac:          ac,
		pm:          pm,
		ma:          ma,
		publishers:  publishers,
		concurrency: concurrency,
	}
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.PublishPost(ctx, payload.PostID)
}

// PublishPost attempts every pending destination of the post and records each
// outcome on its own row. A destination failure never fails the job; only a
// missing post or an empty destination list does.
func (w *Worker) PublishPost(ctx context.Context, postID int64) error {
	post, err := w.pr.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("post %d not found", postID)
	}

	switch post.Status {
	case models.PostStatusScheduled, models.PostStatusPublishing:
	default:
		// The job should have been removed when the post left the
		// schedulable states; skip rather than publish a cancelled post.
		slog.Info("skipping publish for post in terminal state", "post_id", postID, "status", post.Status)
		return nil
	}

	if post.Status != models.PostStatusPublishing {
		if err := w.pr.UpdateStatus(ctx, models.PostStatusPublishing, postID); err != nil {
			return err
		}
	}

	destinations, err := w.dr.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}
	if len(destinations) == 0 {
		if err := w.pr.UpdateStatus(ctx, models.PostStatusFailed, postID); err != nil {
			slog.Info(err.Error())
		}
		return errors.New("no destinations for post")
	}

	media, err := w.loadMedia(ctx, postID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, w.concurrency)

	for _, dest := range destinations {
		if dest.Status != models.DestinationStatusPending {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(dest *models.PostDestination) {
			defer wg.Done()
			defer func() { <-semaphore }()

			w.publishDestination(ctx, post, media, dest)
		}(dest)
	}
	wg.Wait()

	resolved, err := w.dr.ListByPostID(ctx, postID)
	if err != nil {
		return err
	}

	aggregate := models.AggregatePostStatus(resolved)
	if err := w.pr.UpdateStatus(ctx, aggregate, postID); err != nil {
		return err
	}

	slog.Info("publish finished", "post_id", postID, "status", aggregate)
	return nil
}

func (w *Worker) publishDestination(ctx context.Context, post *models.ScheduledPost, media []*models.MediaAsset, dest *models.PostDestination) {
	account, err := w.ac.GetByID(ctx, dest.AccountID)
	if err != nil || account == nil {
		w.recordFailure(ctx, post.ID, dest.ID, fmt.Sprintf("account %d unavailable", dest.AccountID))
		return
	}

	publisher, ok := w.publishers[account.Platform]
	if !ok {
		w.recordFailure(ctx, post.ID, dest.ID, fmt.Sprintf("unsupported platform %q", account.Platform))
		return
	}

	platformPostID, err := publisher.Publish(ctx, post, media, account)
	if err != nil {
		slog.Info("publish failed", "post_id", post.ID, "platform", account.Platform, "error", err.Error())
		w.recordFailure(ctx, post.ID, dest.ID, err.Error())
		return
	}

	if err := w.dr.MarkSuccess(ctx, dest.ID, platformPostID); err != nil {
		slog.Info(err.Error())
	}
}

func (w *Worker) recordFailure(ctx context.Context, postID, destID int64, message string) {
	if err := w.dr.MarkFailed(ctx, destID, message); err != nil {
		slog.Info("failed to record destination failure", "post_id", postID, "error", err.Error())
	}
}

func (w *Worker) loadMedia(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	postMedia, err := w.pm.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	var assets []*models.MediaAsset
	for _, pm := range postMedia {
		asset, err := w.ma.GetByID(ctx, pm.AssetID)
		if err != nil {
			return nil, err
		}
		if asset != nil {
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

func (w *Worker) HandleRefreshTokenTask(ctx context.Context, task *asynq.Task) error {
	var payload RefreshTokenPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	account, err := w.ac.GetByID(ctx, payload.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		slog.Info("account gone before refresh", "account_id", payload.AccountID)
		return nil
	}

	publisher, ok := w.publishers[account.Platform]
	if !ok {
		return fmt.Errorf("unsupported platform %q", account.Platform)
	}

	return publisher.RefreshToken(ctx, account)
}
