package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type asynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewAsynqQueue(client *asynq.Client, inspector *asynq.Inspector) TaskQueue {
	return &asynqQueue{client: client, inspector: inspector}
}

func (q *asynqQueue) EnqueuePublish(ctx context.Context, payload PublishPostPayload, delay time.Duration) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if delay < 0 {
		delay = 0
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	// Failed tasks go straight to the archive for operator inspection;
	// successful ones are pruned by asynq.
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.TaskID(PostTaskID(payload.PostID)),
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(0),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish task scheduled", "post_id", payload.PostID, "delay", delay)
	return nil
}

func (q *asynqQueue) RemovePublish(ctx context.Context, postID int64) error {
	err := q.inspector.DeleteTask(DefaultQueue, PostTaskID(postID))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil
		}
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (q *asynqQueue) EnqueueRefresh(ctx context.Context, payload RefreshTokenPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeRefreshToken, taskPayload)

	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue(DefaultQueue))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
