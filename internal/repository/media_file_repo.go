package repository

import (
	"context"
	"fmt"

	"github.com/vodarr/vodarr/internal/models"
	"gorm.io/gorm"
)

// mediaFileRepo implements MediaFileRepository using GORM.
type mediaFileRepo struct {
	db *gorm.DB
}

// Compile-time interface check.
var _ MediaFileRepository = (*mediaFileRepo)(nil)

// NewMediaFileRepository creates a new MediaFileRepository.
func NewMediaFileRepository(db *gorm.DB) *mediaFileRepo {
	return &mediaFileRepo{db: db}
}

// Create creates a new media file record.
func (r *mediaFileRepo) Create(ctx context.Context, file *models.MediaFile) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		return fmt.Errorf("creating media file: %w", err)
	}
	return nil
}

// GetByID retrieves a media file by ID.
func (r *mediaFileRepo) GetByID(ctx context.Context, id models.ULID) (*models.MediaFile, error) {
	var file models.MediaFile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting media file by ID: %w", err)
	}
	return &file, nil
}

// GetByContentID retrieves all files for a content item.
func (r *mediaFileRepo) GetByContentID(ctx context.Context, contentID models.ULID) ([]*models.MediaFile, error) {
	var files []*models.MediaFile
	if err := r.db.WithContext(ctx).Where("content_id = ?", contentID).Order("created_at ASC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("getting media files by content ID: %w", err)
	}
	return files, nil
}

// Update updates an existing media file record.
func (r *mediaFileRepo) Update(ctx context.Context, file *models.MediaFile) error {
	if err := r.db.WithContext(ctx).Save(file).Error; err != nil {
		return fmt.Errorf("updating media file: %w", err)
	}
	return nil
}

// UpdateStreamInfo persists probe results for a file. Only the metadata
// columns are written so a concurrent path change is not clobbered.
func (r *mediaFileRepo) UpdateStreamInfo(ctx context.Context, file *models.MediaFile) error {
	err := r.db.WithContext(ctx).
		Model(&models.MediaFile{}).
		Where("id = ?", file.ID).
		Updates(map[string]any{
			"container":     file.Container,
			"video_codec":   file.VideoCodec,
			"video_profile": file.VideoProfile,
			"video_level":   file.VideoLevel,
			"audio_codec":   file.AudioCodec,
			"width":       file.Width,
			"height":      file.Height,
			"duration_ms": file.DurationMs,
			"bitrate":     file.Bitrate,
			"hdr_format":  file.HDRFormat,
		}).Error
	if err != nil {
		return fmt.Errorf("updating media file stream info: %w", err)
	}
	return nil
}

// Delete deletes a media file record by ID.
func (r *mediaFileRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.MediaFile{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting media file: %w", err)
	}
	return nil
}
