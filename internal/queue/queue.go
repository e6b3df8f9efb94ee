package queue

import (
	"context"
	"fmt"
	"time"
)

const (
	TaskTypePublishPost  = "post:publish"
	TaskTypeRefreshToken = "account:refresh"
)

const DefaultQueue = "default"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
	UserID int64 `json:"user_id"`
}

type RefreshTokenPayload struct {
	AccountID int64 `json:"account_id"`
}

// PostTaskID is the deterministic task id for a post's publish job. At most one
// live job exists per post; callers remove the old id before enqueueing anew.
func PostTaskID(postID int64) string {
	return fmt.Sprintf("post-%d", postID)
}

// TaskQueue is the job-queue client the scheduler and cron jobs depend on.
// Handlers take the interface so tests can substitute an in-memory fake.
type TaskQueue interface {
	EnqueuePublish(ctx context.Context, payload PublishPostPayload, delay time.Duration) error
	RemovePublish(ctx context.Context, postID int64) error
	EnqueueRefresh(ctx context.Context, payload RefreshTokenPayload) error
}
