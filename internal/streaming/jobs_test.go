package streaming

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

type jobFixture struct {
	manager  *JobManager
	launcher *fakeLauncher
	jobs     repository.TranscodeJobRepository
	files    repository.MediaFileRepository
	file     *models.MediaFile
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)
	jobs := repository.NewTranscodeJobRepository(db)

	file := &models.MediaFile{
		Path:       writeSourceFile(t, 4096),
		Size:       4096,
		Container:  "mkv",
		VideoCodec: "hevc",
		AudioCodec: "aac",
		DurationMs: 120000,
	}
	require.NoError(t, files.Create(context.Background(), file))

	launcher := &fakeLauncher{}
	manager := NewJobManager(jobs, files, launcher, t.TempDir(), config.DefaultPresets(), testLogger())
	return &jobFixture{manager: manager, launcher: launcher, jobs: jobs, files: files, file: file}
}

func TestJobManager_PrepareStartsOnePipeline(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)
	assert.Equal(t, models.TranscodeStatusTranscoding, job.Status)
	assert.Equal(t, 1, fx.launcher.launchCount())

	spec, _, _ := fx.launcher.last()
	assert.Contains(t, spec.Args, fx.file.Path)
	assert.Contains(t, spec.Args, "libx264")
	assert.Contains(t, spec.Args, "scale=-2:720")
	assert.Equal(t, job.OutputPath, spec.OutputPath)

	// Preparing again attaches to the same job without a second pipeline.
	again, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 1, fx.launcher.launchCount())
}

func TestJobManager_ConcurrentPrepareLaunchesOnce(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	const callers = 16
	ids := make([]models.ULID, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution480p)
			if err == nil {
				ids[i] = job.ID
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "all callers must share one job")
	}
	assert.Equal(t, 1, fx.launcher.launchCount())
}

func TestJobManager_OriginalResolutionCompletesWithoutPipeline(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.ResolutionOriginal)
	require.NoError(t, err)

	assert.Equal(t, models.TranscodeStatusReady, job.Status)
	assert.Equal(t, fx.file.Path, job.OutputPath)
	assert.Equal(t, int64(4096), job.FileSize)
	assert.Equal(t, 0, fx.launcher.launchCount())
}

func TestJobManager_InvalidResolution(t *testing.T) {
	fx := newJobFixture(t)

	_, err := fx.manager.Prepare(context.Background(), fx.file.ID, models.TranscodeResolution("4320p"))
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

func TestJobManager_MissingSourceFailsJob(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	require.NoError(t, os.Remove(fx.file.Path))

	_, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	assert.ErrorIs(t, err, ErrSourceFileMissing)

	job, err := fx.jobs.GetByFileAndResolution(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, models.TranscodeStatusFailed, job.Status)
	assert.Equal(t, 0, fx.launcher.launchCount())
}

func TestJobManager_CompletionMarksReady(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)

	spec, cb, proc := fx.launcher.last()
	require.NoError(t, os.WriteFile(spec.OutputPath, make([]byte, 2048), 0o644))

	cb.OnProgress(0.4)
	stored, err := fx.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, stored.Progress, 0.001)

	proc.exit()
	cb.OnComplete()

	stored, err = fx.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranscodeStatusReady, stored.Status)
	assert.Equal(t, int64(2048), stored.FileSize)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 0, fx.manager.RunningCount())
}

func TestJobManager_FailureRecordsErrorAndAllowsRetry(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)

	_, cb, proc := fx.launcher.last()
	proc.exit()
	cb.OnError(assert.AnError)

	stored, err := fx.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranscodeStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "pipeline subprocess failed")

	// A failed pair can be retried: the same row is reset, not duplicated.
	retried, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retried.ID)
	assert.Equal(t, models.TranscodeStatusTranscoding, retried.Status)
	assert.Empty(t, retried.ErrorMessage)
	assert.Equal(t, 2, fx.launcher.launchCount())
}

func TestJobManager_CancelStopsPipelineAndDeletesJob(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)
	_, _, proc := fx.launcher.last()

	require.NoError(t, fx.manager.Cancel(ctx, job.ID))
	assert.True(t, proc.stopped)

	stored, err := fx.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, 0, fx.manager.RunningCount())
}

func TestJobManager_CancelReadyJobRemovesOutput(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.Resolution720p)
	require.NoError(t, err)
	spec, cb, proc := fx.launcher.last()
	require.NoError(t, os.WriteFile(spec.OutputPath, make([]byte, 512), 0o644))
	proc.exit()
	cb.OnComplete()

	require.NoError(t, fx.manager.Cancel(ctx, job.ID))
	_, statErr := os.Stat(spec.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestJobManager_CancelOriginalKeepsSource(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	job, err := fx.manager.Prepare(ctx, fx.file.ID, models.ResolutionOriginal)
	require.NoError(t, err)
	require.NoError(t, fx.manager.Cancel(ctx, job.ID))

	_, statErr := os.Stat(fx.file.Path)
	assert.NoError(t, statErr, "source file must survive cancel")
}

func TestJobManager_RecoverOrphans(t *testing.T) {
	fx := newJobFixture(t)
	ctx := context.Background()

	partial := filepath.Join(t.TempDir(), "orphan.mp4")
	require.NoError(t, os.WriteFile(partial, []byte("partial"), 0o644))

	orphan := &models.TranscodeJob{
		MediaFileID: fx.file.ID,
		Resolution:  models.Resolution1080p,
		Status:      models.TranscodeStatusTranscoding,
		OutputPath:  partial,
	}
	require.NoError(t, fx.jobs.Create(ctx, orphan))

	require.NoError(t, fx.manager.RecoverOrphans(ctx))

	stored, err := fx.jobs.GetByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranscodeStatusFailed, stored.Status)
	assert.Equal(t, "interrupted by restart", stored.ErrorMessage)

	_, statErr := os.Stat(partial)
	assert.True(t, os.IsNotExist(statErr))
}
