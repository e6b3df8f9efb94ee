package service

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postdeckhq/postdeck/internal/apperrors"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
)

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error)
	List(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
	Remove(ctx context.Context, userID, assetID int64) error
}

type mediaService struct {
	ma      repository.MediaAssetRepository
	storage ObjectStorage
}

func NewMediaService(ma repository.MediaAssetRepository, storage ObjectStorage) MediaService {
	return &mediaService{ma: ma, storage: storage}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	fileContent, err := file.Open()
	if err != nil {
		return nil, apperrors.Invalid("invalid_file", "unable to open file")
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, apperrors.Internal("error reading file", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, apperrors.Invalid("unsupported_file_type", "unsupported file type")
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return nil, apperrors.Invalid("unsupported_file_type", "file type "+fileType.Extension+" is not allowed")
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, apperrors.Internal("error generating object key", err)
	}

	if err := s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, apperrors.Internal("error uploading file", err)
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: fileType.MIME.Value,
		FileSize: int64(len(fileBytes)),
		FileURL:  s.storage.PublicURL(key),
	}

	assetID, err := s.ma.Create(ctx, nil, asset)
	if err != nil {
		return nil, apperrors.Internal("error saving media asset", err)
	}
	asset.ID = assetID

	return asset, nil
}

func (s *mediaService) List(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	assets, err := s.ma.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("error listing media", err)
	}
	return assets, nil
}

func (s *mediaService) Remove(ctx context.Context, userID, assetID int64) error {
	isValid, err := s.ma.CheckByUserID(ctx, assetID, userID)
	if err != nil {
		return apperrors.Internal("error checking media asset", err)
	}
	if !isValid {
		return apperrors.NotFound("media asset not found")
	}

	asset, err := s.ma.GetByID(ctx, assetID)
	if err != nil || asset == nil {
		return apperrors.NotFound("media asset not found")
	}

	if err := s.storage.Delete(ctx, asset.FileName); err != nil {
		slog.Info("object delete failed, removing row anyway", "asset_id", assetID)
	}

	if err := s.ma.Remove(ctx, assetID); err != nil {
		return apperrors.Internal("error removing media asset", err)
	}
	return nil
}
