package jobs

import (
	"context"
	"log/slog"

	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/service"
)

// MediaSweepJob deletes stored objects no post references anymore.
type MediaSweepJob struct {
	ma      repository.MediaAssetRepository
	storage service.ObjectStorage
}

func NewMediaSweepJob(ma repository.MediaAssetRepository, storage service.ObjectStorage) *MediaSweepJob {
	return &MediaSweepJob{ma: ma, storage: storage}
}

func (j *MediaSweepJob) Run(ctx context.Context) (int, error) {
	orphans, err := j.ma.ListOrphaned(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, asset := range orphans {
		if err := j.storage.Delete(ctx, asset.FileName); err != nil {
			slog.Info("orphan object delete failed", "asset_id", asset.ID, "error", err.Error())
			continue
		}
		if err := j.ma.Remove(ctx, asset.ID); err != nil {
			slog.Info("orphan row delete failed", "asset_id", asset.ID, "error", err.Error())
			continue
		}
		processed++
	}

	slog.Info("media sweep complete", "deleted", processed)
	return processed, nil
}
