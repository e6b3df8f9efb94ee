package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/queue"
	"github.com/postdeckhq/postdeck/internal/repository"
)

// TokenExpiryWindow is how far ahead the scanner looks for expiring tokens.
const TokenExpiryWindow = 7 * 24 * time.Hour

// TokenExpiryJob scans for accounts whose tokens expire soon and enqueues a
// refresh task for each. Re-running only re-scans; the refresh itself is
// idempotent on the provider side.
type TokenExpiryJob struct {
	sr repository.SocialAccountRepository
	q  queue.TaskQueue
}

func NewTokenExpiryJob(sr repository.SocialAccountRepository, q queue.TaskQueue) *TokenExpiryJob {
	return &TokenExpiryJob{sr: sr, q: q}
}

func (j *TokenExpiryJob) Run(ctx context.Context) (int, error) {
	deadline := time.Now().Add(TokenExpiryWindow)

	accounts, err := j.sr.ListExpiringBefore(ctx, deadline)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, acc := range accounts {
		err := j.q.EnqueueRefresh(ctx, queue.RefreshTokenPayload{AccountID: acc.ID})
		if err != nil {
			slog.Info("failed to enqueue refresh", "account_id", acc.ID, "error", err.Error())
			continue
		}
		processed++
	}

	slog.Info("token expiry scan complete", "queued", processed)
	return processed, nil
}
