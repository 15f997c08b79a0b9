// Package repository defines data access interfaces for vodarr entities.
// All database access goes through these interfaces, enabling easy testing
// and database backend switching.
package repository

import (
	"context"

	"github.com/vodarr/vodarr/internal/models"
)

// MediaFileRepository defines operations for media file persistence.
type MediaFileRepository interface {
	// Create creates a new media file record.
	Create(ctx context.Context, file *models.MediaFile) error
	// GetByID retrieves a media file by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id models.ULID) (*models.MediaFile, error)
	// GetByContentID retrieves all files for a content item.
	GetByContentID(ctx context.Context, contentID models.ULID) ([]*models.MediaFile, error)
	// Update updates an existing media file record.
	Update(ctx context.Context, file *models.MediaFile) error
	// UpdateStreamInfo persists probe results for a file.
	UpdateStreamInfo(ctx context.Context, file *models.MediaFile) error
	// Delete deletes a media file record by ID.
	Delete(ctx context.Context, id models.ULID) error
}

// TranscodeJobRepository defines operations for transcode job persistence.
type TranscodeJobRepository interface {
	// Create creates a new transcode job.
	Create(ctx context.Context, job *models.TranscodeJob) error
	// GetByID retrieves a job by ID. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id models.ULID) (*models.TranscodeJob, error)
	// GetByFileAndResolution retrieves the job for a (file, resolution)
	// pair. Returns (nil, nil) when absent.
	GetByFileAndResolution(ctx context.Context, fileID models.ULID, resolution models.TranscodeResolution) (*models.TranscodeJob, error)
	// GetAll retrieves all jobs ordered by creation time.
	GetAll(ctx context.Context) ([]*models.TranscodeJob, error)
	// GetByStatus retrieves jobs in the given status.
	GetByStatus(ctx context.Context, status models.TranscodeStatus) ([]*models.TranscodeJob, error)
	// GetReadyByLastAccessed retrieves ready jobs ordered coldest first.
	GetReadyByLastAccessed(ctx context.Context) ([]*models.TranscodeJob, error)
	// Update updates an existing job.
	Update(ctx context.Context, job *models.TranscodeJob) error
	// UpdateProgress updates only the progress column.
	UpdateProgress(ctx context.Context, id models.ULID, progress float64) error
	// TouchLastAccessed stamps the last-accessed time used for LRU eviction.
	TouchLastAccessed(ctx context.Context, id models.ULID) error
	// Delete deletes a job by ID.
	Delete(ctx context.Context, id models.ULID) error
}
