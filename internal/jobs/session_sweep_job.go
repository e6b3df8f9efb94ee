package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/repository"
)

// SessionSweepJob removes expired session rows.
type SessionSweepJob struct {
	sr repository.SessionRepository
}

func NewSessionSweepJob(sr repository.SessionRepository) *SessionSweepJob {
	return &SessionSweepJob{sr: sr}
}

func (j *SessionSweepJob) Run(ctx context.Context) (int, error) {
	deleted, err := j.sr.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	slog.Info("session sweep complete", "deleted", deleted)
	return int(deleted), nil
}
