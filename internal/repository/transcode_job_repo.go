package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/vodarr/vodarr/internal/models"
	"gorm.io/gorm"
)

// transcodeJobRepo implements TranscodeJobRepository using GORM.
type transcodeJobRepo struct {
	db *gorm.DB
}

// Compile-time interface check.
var _ TranscodeJobRepository = (*transcodeJobRepo)(nil)

// NewTranscodeJobRepository creates a new TranscodeJobRepository.
func NewTranscodeJobRepository(db *gorm.DB) *transcodeJobRepo {
	return &transcodeJobRepo{db: db}
}

// Create creates a new transcode job. The unique index on
// (media_file_id, resolution) rejects a duplicate row.
func (r *transcodeJobRepo) Create(ctx context.Context, job *models.TranscodeJob) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating transcode job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID.
func (r *transcodeJobRepo) GetByID(ctx context.Context, id models.ULID) (*models.TranscodeJob, error) {
	var job models.TranscodeJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting transcode job by ID: %w", err)
	}
	return &job, nil
}

// GetByFileAndResolution retrieves the job for a (file, resolution) pair.
func (r *transcodeJobRepo) GetByFileAndResolution(ctx context.Context, fileID models.ULID, resolution models.TranscodeResolution) (*models.TranscodeJob, error) {
	var job models.TranscodeJob
	err := r.db.WithContext(ctx).
		Where("media_file_id = ? AND resolution = ?", fileID, resolution).
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting transcode job by file and resolution: %w", err)
	}
	return &job, nil
}

// GetAll retrieves all jobs ordered by creation time.
func (r *transcodeJobRepo) GetAll(ctx context.Context) ([]*models.TranscodeJob, error) {
	var jobs []*models.TranscodeJob
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting all transcode jobs: %w", err)
	}
	return jobs, nil
}

// GetByStatus retrieves jobs in the given status.
func (r *transcodeJobRepo) GetByStatus(ctx context.Context, status models.TranscodeStatus) ([]*models.TranscodeJob, error) {
	var jobs []*models.TranscodeJob
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("getting transcode jobs by status: %w", err)
	}
	return jobs, nil
}

// GetReadyByLastAccessed retrieves ready jobs ordered coldest first, for
// LRU cache eviction.
func (r *transcodeJobRepo) GetReadyByLastAccessed(ctx context.Context) ([]*models.TranscodeJob, error) {
	var jobs []*models.TranscodeJob
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TranscodeStatusReady).
		Order("last_accessed_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("getting ready transcode jobs: %w", err)
	}
	return jobs, nil
}

// Update updates an existing job.
func (r *transcodeJobRepo) Update(ctx context.Context, job *models.TranscodeJob) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("updating transcode job: %w", err)
	}
	return nil
}

// UpdateProgress updates only the progress column.
func (r *transcodeJobRepo) UpdateProgress(ctx context.Context, id models.ULID, progress float64) error {
	err := r.db.WithContext(ctx).
		Model(&models.TranscodeJob{}).
		Where("id = ?", id).
		Update("progress", progress).Error
	if err != nil {
		return fmt.Errorf("updating transcode job progress: %w", err)
	}
	return nil
}

// TouchLastAccessed stamps the last-accessed time used for LRU eviction.
func (r *transcodeJobRepo) TouchLastAccessed(ctx context.Context, id models.ULID) error {
	err := r.db.WithContext(ctx).
		Model(&models.TranscodeJob{}).
		Where("id = ?", id).
		Update("last_accessed_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touching transcode job: %w", err)
	}
	return nil
}

// Delete deletes a job by ID.
func (r *transcodeJobRepo) Delete(ctx context.Context, id models.ULID) error {
	if err := r.db.WithContext(ctx).Delete(&models.TranscodeJob{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("deleting transcode job: %w", err)
	}
	return nil
}
