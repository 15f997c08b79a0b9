package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

// JobManager owns the offline transcode job lifecycle. It guarantees at
// most one job row and at most one subprocess per (file, resolution)
// pair: creation and start are serialized on one mutex, so two racing
// prepare calls observe each other's state.
type JobManager struct {
	jobs     repository.TranscodeJobRepository
	files    repository.MediaFileRepository
	launcher Launcher

	outputDir string
	presets   map[string]config.PresetConfig
	logger    *slog.Logger

	mu      sync.Mutex
	running map[models.ULID]Process
}

// NewJobManager creates a job manager writing outputs under outputDir.
func NewJobManager(
	jobs repository.TranscodeJobRepository,
	files repository.MediaFileRepository,
	launcher Launcher,
	outputDir string,
	presets map[string]config.PresetConfig,
	logger *slog.Logger,
) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		jobs:      jobs,
		files:     files,
		launcher:  launcher,
		outputDir: outputDir,
		presets:   presets,
		logger:    logger.With(slog.String("component", "transcode-jobs")),
		running:   make(map[models.ULID]Process),
	}
}

// Prepare is the idempotent entry point: fetch or create the job for the
// pair, then start it if still pending. Calling it for an existing job in
// any state returns that job unchanged.
func (m *JobManager) Prepare(ctx context.Context, fileID models.ULID, resolution models.TranscodeResolution) (*models.TranscodeJob, error) {
	job, err := m.GetOrCreate(ctx, fileID, resolution)
	if err != nil {
		return nil, err
	}
	return m.StartIfPending(ctx, job.ID)
}

// GetOrCreate returns the job for a (file, resolution) pair, creating a
// pending one if none exists. A previously failed job is reset to pending
// so the pair can be retried without violating the uniqueness invariant.
func (m *JobManager) GetOrCreate(ctx context.Context, fileID models.ULID, resolution models.TranscodeResolution) (*models.TranscodeJob, error) {
	if _, ok := models.ParseResolution(string(resolution)); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResolution, resolution)
	}
	if resolution != models.ResolutionOriginal {
		if _, ok := m.presets[string(resolution)]; !ok {
			return nil, fmt.Errorf("%w: no preset for %s", ErrInvalidResolution, resolution)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: media file %s", ErrNotFound, fileID)
	}

	job, err := m.jobs.GetByFileAndResolution(ctx, fileID, resolution)
	if err != nil {
		return nil, err
	}
	if job != nil {
		if job.Status == models.TranscodeStatusFailed {
			job.Status = models.TranscodeStatusPending
			job.Progress = 0
			job.ErrorMessage = ""
			job.StartedAt = nil
			job.CompletedAt = nil
			if err := m.jobs.Update(ctx, job); err != nil {
				return nil, err
			}
		}
		return job, nil
	}

	job = &models.TranscodeJob{
		MediaFileID: fileID,
		Resolution:  resolution,
		Status:      models.TranscodeStatusPending,
	}
	if err := m.jobs.Create(ctx, job); err != nil {
		// A concurrent writer (another instance) may have won the unique
		// index race; the existing row is the job.
		existing, getErr := m.jobs.GetByFileAndResolution(ctx, fileID, resolution)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	m.logger.InfoContext(ctx, "transcode job created",
		slog.String("job_id", job.ID.String()),
		slog.String("file_id", fileID.String()),
		slog.String("resolution", string(resolution)),
	)
	return job, nil
}

// StartIfPending launches the pipeline for a pending job. Non-pending
// jobs are returned unchanged, so concurrent starters collapse to one
// subprocess. Jobs at the original resolution complete immediately and
// point at the source file.
func (m *JobManager) StartIfPending(ctx context.Context, jobID models.ULID) (*models.TranscodeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	if job.Status != models.TranscodeStatusPending {
		return job, nil
	}

	file, err := m.files.GetByID(ctx, job.MediaFileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: media file %s", ErrNotFound, job.MediaFileID)
	}

	srcInfo, err := os.Stat(file.Path)
	if err != nil {
		job.MarkFailed("source file missing: " + file.Path)
		_ = m.jobs.Update(ctx, job)
		return nil, fmt.Errorf("%w: %s", ErrSourceFileMissing, file.Path)
	}

	// Original resolution means no re-encode: the source file is the
	// output and no subprocess ever starts.
	if job.Resolution == models.ResolutionOriginal {
		job.OutputPath = file.Path
		job.MarkReady(srcInfo.Size())
		if err := m.jobs.Update(ctx, job); err != nil {
			return nil, err
		}
		return job, nil
	}

	preset := m.presets[string(job.Resolution)]
	outputPath := filepath.Join(m.outputDir, job.ID.String()+".mp4")
	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	job.OutputPath = outputPath
	job.MarkTranscoding()
	if err := m.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	proc, err := m.launcher.Launch(LaunchSpec{
		Args:          transcodeArgs(file.Path, preset, outputPath),
		OutputPath:    outputPath,
		TotalDuration: time.Duration(file.DurationMs) * time.Millisecond,
	}, m.callbacks(job.ID, outputPath))
	if err != nil {
		job.MarkFailed(err.Error())
		_ = m.jobs.Update(ctx, job)
		return nil, err
	}

	m.running[job.ID] = proc
	m.logger.InfoContext(ctx, "transcode started",
		slog.String("job_id", job.ID.String()),
		slog.String("output", outputPath),
	)
	return job, nil
}

// callbacks builds the supervisor callbacks that keep the job row in sync
// with the pipeline. They run on supervisor goroutines with a background
// context; the originating request may be long gone.
func (m *JobManager) callbacks(jobID models.ULID, outputPath string) ffmpeg.SupervisorCallbacks {
	return ffmpeg.SupervisorCallbacks{
		OnProgress: func(fraction float64) {
			if err := m.jobs.UpdateProgress(context.Background(), jobID, fraction); err != nil {
				m.logger.Warn("updating job progress",
					slog.String("job_id", jobID.String()),
					slog.String("error", err.Error()),
				)
			}
		},
		OnComplete: func() {
			m.finish(jobID, func(job *models.TranscodeJob) {
				var size int64
				if info, err := os.Stat(outputPath); err == nil {
					size = info.Size()
				}
				job.MarkReady(size)
			})
		},
		OnError: func(pipeErr error) {
			m.finish(jobID, func(job *models.TranscodeJob) {
				job.MarkFailed(fmt.Errorf("%w: %s", ErrSubprocessFailed, pipeErr).Error())
			})
		},
	}
}

// finish applies a terminal transition and drops the running handle.
func (m *JobManager) finish(jobID models.ULID, apply func(*models.TranscodeJob)) {
	ctx := context.Background()

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.running, jobID)

	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	// A cancel may have raced the pipeline's own exit.
	if job.IsTerminal() {
		return
	}
	apply(job)
	if err := m.jobs.Update(ctx, job); err != nil {
		m.logger.Warn("updating finished job",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()),
		)
	}
	m.logger.Info("transcode finished",
		slog.String("job_id", jobID.String()),
		slog.String("status", string(job.Status)),
	)
}

// Get returns a job by ID.
func (m *JobManager) Get(ctx context.Context, jobID models.ULID) (*models.TranscodeJob, error) {
	job, err := m.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return job, nil
}

// List returns all jobs.
func (m *JobManager) List(ctx context.Context) ([]*models.TranscodeJob, error) {
	return m.jobs.GetAll(ctx)
}

// Touch stamps the job's last access time for LRU cache accounting.
func (m *JobManager) Touch(ctx context.Context, jobID models.ULID) error {
	return m.jobs.TouchLastAccessed(ctx, jobID)
}

// Cancel stops a running pipeline (removing its partial output), deletes
// a ready job's output file, and removes the job row.
func (m *JobManager) Cancel(ctx context.Context, jobID models.ULID) error {
	m.mu.Lock()
	proc := m.running[jobID]
	delete(m.running, jobID)
	job, err := m.jobs.GetByID(ctx, jobID)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}

	if proc != nil {
		// Blocks until the process is reaped and partials are removed.
		proc.Stop()
	}

	// Never delete the source file a completed original-resolution job
	// points at.
	if job.Status == models.TranscodeStatusReady &&
		job.Resolution != models.ResolutionOriginal &&
		job.OutputPath != "" {
		if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn("removing job output",
				slog.String("path", job.OutputPath),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := m.jobs.Delete(ctx, jobID); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "transcode job canceled", slog.String("job_id", jobID.String()))
	return nil
}

// RecoverOrphans marks jobs left in transcoding state by a previous run
// as failed and removes their partial outputs. Called once at startup.
func (m *JobManager) RecoverOrphans(ctx context.Context) error {
	orphans, err := m.jobs.GetByStatus(ctx, models.TranscodeStatusTranscoding)
	if err != nil {
		return err
	}
	for _, job := range orphans {
		if job.OutputPath != "" {
			if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
				m.logger.Warn("removing orphaned output",
					slog.String("path", job.OutputPath),
					slog.String("error", err.Error()),
				)
			}
		}
		job.MarkFailed("interrupted by restart")
		if err := m.jobs.Update(ctx, job); err != nil {
			return err
		}
		m.logger.Info("orphaned transcode job failed",
			slog.String("job_id", job.ID.String()),
		)
	}
	return nil
}

// Shutdown stops all running pipelines. Their partial outputs are removed
// and the jobs stay transcoding until RecoverOrphans handles them on the
// next boot.
func (m *JobManager) Shutdown() {
	m.mu.Lock()
	procs := make([]Process, 0, len(m.running))
	for _, p := range m.running {
		procs = append(procs, p)
	}
	m.running = make(map[models.ULID]Process)
	m.mu.Unlock()

	for _, p := range procs {
		p.Stop()
	}
}

// RunningCount returns the number of live pipelines (for observability).
func (m *JobManager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// transcodeArgs builds the ffmpeg argument list for one offline transcode.
// Output is fragmented MP4 so the file is readable while still growing.
func transcodeArgs(inputPath string, preset config.PresetConfig, outputPath string) []string {
	b := ffmpeg.NewCommandBuilder("").
		HideBanner().
		LogLevel("info").
		Overwrite().
		Input(inputPath).
		MapAll().
		VideoCodec("libx264").
		Preset(preset.Preset).
		CRF(preset.CRF).
		VideoBitrate(preset.VideoBitrate, preset.MaxRate, preset.BufSize)

	if preset.Height > 0 {
		b.VideoFilter(fmt.Sprintf("scale=-2:%d", preset.Height))
	}

	return b.
		AudioCodec("aac").
		AudioBitrate(preset.AudioBitrate).
		AudioChannels(preset.AudioChannels).
		ProgressiveMP4().
		Output(outputPath).
		Args()
}
