package streaming

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

func TestCacheReaper_EvictsColdestFirst(t *testing.T) {
	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)
	jobs := repository.NewTranscodeJobRepository(db)
	ctx := context.Background()
	dir := t.TempDir()

	file := &models.MediaFile{Path: "/media/movie.mkv"}
	require.NoError(t, files.Create(ctx, file))

	mkJob := func(res models.TranscodeResolution, size int64, accessedAgo time.Duration) *models.TranscodeJob {
		path := filepath.Join(dir, string(res)+".mp4")
		require.NoError(t, os.WriteFile(path, make([]byte, int(size)), 0o644))
		accessed := time.Now().Add(-accessedAgo)
		job := &models.TranscodeJob{
			MediaFileID:    file.ID,
			Resolution:     res,
			Status:         models.TranscodeStatusReady,
			Progress:       1,
			OutputPath:     path,
			FileSize:       size,
			LastAccessedAt: &accessed,
		}
		require.NoError(t, jobs.Create(ctx, job))
		return job
	}

	cold := mkJob(models.Resolution480p, 400, 3*time.Hour)
	warm := mkJob(models.Resolution720p, 400, 2*time.Hour)
	hot := mkJob(models.Resolution1080p, 400, time.Minute)

	// 1200 bytes retained against an 800 byte limit: only the coldest
	// job has to go.
	reaper, err := NewCacheReaper(jobs, config.ByteSize(800), "@every 1h", testLogger())
	require.NoError(t, err)

	require.NoError(t, reaper.Sweep(ctx))

	gone, err := jobs.GetByID(ctx, cold.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	_, statErr := os.Stat(cold.OutputPath)
	assert.True(t, os.IsNotExist(statErr))

	for _, keep := range []*models.TranscodeJob{warm, hot} {
		stored, err := jobs.GetByID(ctx, keep.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		_, statErr := os.Stat(keep.OutputPath)
		assert.NoError(t, statErr)
	}
}

func TestCacheReaper_SkipsOriginalResolutionJobs(t *testing.T) {
	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)
	jobs := repository.NewTranscodeJobRepository(db)
	ctx := context.Background()

	source := writeSourceFile(t, 4096)
	file := &models.MediaFile{Path: source}
	require.NoError(t, files.Create(ctx, file))

	accessed := time.Now().Add(-24 * time.Hour)
	job := &models.TranscodeJob{
		MediaFileID:    file.ID,
		Resolution:     models.ResolutionOriginal,
		Status:         models.TranscodeStatusReady,
		OutputPath:     source,
		FileSize:       4096,
		LastAccessedAt: &accessed,
	}
	require.NoError(t, jobs.Create(ctx, job))

	reaper, err := NewCacheReaper(jobs, config.ByteSize(1), "@every 1h", testLogger())
	require.NoError(t, err)
	require.NoError(t, reaper.Sweep(ctx))

	stored, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "original-resolution job must survive")
	_, statErr := os.Stat(source)
	assert.NoError(t, statErr, "source file must survive")
}

func TestCacheReaper_ZeroLimitDisablesEviction(t *testing.T) {
	db := setupTestDB(t)
	jobs := repository.NewTranscodeJobRepository(db)

	reaper, err := NewCacheReaper(jobs, 0, "@every 1h", testLogger())
	require.NoError(t, err)
	assert.NoError(t, reaper.Sweep(context.Background()))
}

func TestCacheReaper_RejectsBadSchedule(t *testing.T) {
	db := setupTestDB(t)
	jobs := repository.NewTranscodeJobRepository(db)

	_, err := NewCacheReaper(jobs, config.ByteSize(1024), "not-a-schedule", testLogger())
	assert.Error(t, err)
}
