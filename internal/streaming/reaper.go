package streaming

import (
	"context"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

// CacheReaper evicts completed transcode outputs least-recently-accessed
// first once their total size exceeds the configured limit. Jobs at the
// original resolution point at source files and are never evicted.
type CacheReaper struct {
	jobs   repository.TranscodeJobRepository
	limit  config.ByteSize
	logger *slog.Logger

	cron  *cron.Cron
	entry cron.EntryID
}

// NewCacheReaper creates a reaper sweeping on the given cron schedule.
func NewCacheReaper(jobs repository.TranscodeJobRepository, limit config.ByteSize, schedule string, logger *slog.Logger) (*CacheReaper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &CacheReaper{
		jobs:   jobs,
		limit:  limit,
		logger: logger.With(slog.String("component", "cache-reaper")),
		cron:   cron.New(),
	}

	entry, err := r.cron.AddFunc(schedule, func() {
		if err := r.Sweep(context.Background()); err != nil {
			r.logger.Error("cache sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, err
	}
	r.entry = entry
	return r, nil
}

// Start begins scheduled sweeps.
func (r *CacheReaper) Start() {
	r.cron.Start()
	r.logger.Info("cache reaper started",
		slog.String("limit", r.limit.String()),
		slog.Time("next_sweep", r.cron.Entry(r.entry).Next),
	)
}

// Stop halts scheduling and waits for a running sweep to finish.
func (r *CacheReaper) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep evicts ready jobs, coldest first, until retained outputs fit the
// limit. A zero limit disables eviction.
func (r *CacheReaper) Sweep(ctx context.Context) error {
	if r.limit <= 0 {
		return nil
	}

	jobs, err := r.jobs.GetReadyByLastAccessed(ctx)
	if err != nil {
		return err
	}

	var total int64
	evictable := make([]*models.TranscodeJob, 0, len(jobs))
	for _, job := range jobs {
		if job.Resolution == models.ResolutionOriginal {
			continue
		}
		total += job.FileSize
		evictable = append(evictable, job)
	}

	excess := total - int64(r.limit)
	if excess <= 0 {
		return nil
	}

	for _, job := range evictable {
		if excess <= 0 {
			break
		}
		if err := r.evict(ctx, job); err != nil {
			r.logger.Warn("evicting transcode output",
				slog.String("job_id", job.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		excess -= job.FileSize
	}
	return nil
}

func (r *CacheReaper) evict(ctx context.Context, job *models.TranscodeJob) error {
	if job.OutputPath != "" {
		if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := r.jobs.Delete(ctx, job.ID); err != nil {
		return err
	}
	r.logger.Info("evicted transcode output",
		slog.String("job_id", job.ID.String()),
		slog.String("path", job.OutputPath),
		slog.Int64("size", job.FileSize),
	)
	return nil
}
