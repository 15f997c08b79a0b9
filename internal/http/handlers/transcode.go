package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/vodarr/vodarr/internal/httprange"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/streaming"
)

// TranscodeStatusHeader reports the job state on download responses so a
// client can tell a complete file from one still being written.
const TranscodeStatusHeader = "X-Transcode-Status"

// TranscodeHandler exposes the offline transcode job API plus the raw
// download route for job outputs.
type TranscodeHandler struct {
	jobs   *streaming.JobManager
	logger *slog.Logger
}

// NewTranscodeHandler creates a transcode handler.
func NewTranscodeHandler(jobs *streaming.JobManager, logger *slog.Logger) *TranscodeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscodeHandler{
		jobs:   jobs,
		logger: logger.With(slog.String("component", "transcode-handler")),
	}
}

// PrepareInput requests a transcode of a file to a resolution.
type PrepareInput struct {
	FileID string `path:"fileID" doc:"Media file ULID"`
	Body   struct {
		Resolution string `json:"resolution" enum:"original,1080p,720p,480p" doc:"Target resolution"`
	}
}

// JobOutput returns one job.
type JobOutput struct {
	Body models.TranscodeJob
}

// ListJobsInput is empty.
type ListJobsInput struct{}

// ListJobsOutput lists all jobs.
type ListJobsOutput struct {
	Body struct {
		Jobs []*models.TranscodeJob `json:"jobs"`
	}
}

// JobInput identifies one job.
type JobInput struct {
	JobID string `path:"jobID" doc:"Transcode job ULID"`
}

// CancelJobOutput is empty.
type CancelJobOutput struct{}

// Register registers the transcode job routes with the API.
func (h *TranscodeHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "prepareTranscode",
		Method:      "POST",
		Path:        "/api/v1/transcode/{fileID}/prepare",
		Summary:     "Prepare a transcode",
		Description: "Creates the job for the (file, resolution) pair if absent and starts it. Idempotent: repeated calls return the existing job.",
		Tags:        []string{"Transcode"},
	}, h.Prepare)

	huma.Register(api, huma.Operation{
		OperationID: "listTranscodeJobs",
		Method:      "GET",
		Path:        "/api/v1/transcode/jobs",
		Summary:     "List transcode jobs",
		Tags:        []string{"Transcode"},
	}, h.ListJobs)

	huma.Register(api, huma.Operation{
		OperationID: "getTranscodeJob",
		Method:      "GET",
		Path:        "/api/v1/transcode/jobs/{jobID}",
		Summary:     "Get a transcode job",
		Tags:        []string{"Transcode"},
	}, h.GetJob)

	huma.Register(api, huma.Operation{
		OperationID: "cancelTranscodeJob",
		Method:      "DELETE",
		Path:        "/api/v1/transcode/jobs/{jobID}",
		Summary:     "Cancel a transcode job",
		Description: "Stops a running pipeline and deletes the job with its output.",
		Tags:        []string{"Transcode"},
	}, h.CancelJob)
}

// RegisterRoutes registers the raw download route.
func (h *TranscodeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/download/{jobID}", h.Download)
	r.Head("/download/{jobID}", h.Download)
}

// Prepare creates and starts a transcode job.
func (h *TranscodeHandler) Prepare(ctx context.Context, input *PrepareInput) (*JobOutput, error) {
	fileID, err := models.ParseULID(input.FileID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid file ID", err)
	}

	job, err := h.jobs.Prepare(ctx, fileID, models.TranscodeResolution(input.Body.Resolution))
	if err != nil {
		return nil, humaError(err)
	}
	return &JobOutput{Body: *job}, nil
}

// ListJobs returns all transcode jobs.
func (h *TranscodeHandler) ListJobs(ctx context.Context, _ *ListJobsInput) (*ListJobsOutput, error) {
	jobs, err := h.jobs.List(ctx)
	if err != nil {
		return nil, humaError(err)
	}
	out := &ListJobsOutput{}
	out.Body.Jobs = jobs
	return out, nil
}

// GetJob returns one transcode job.
func (h *TranscodeHandler) GetJob(ctx context.Context, input *JobInput) (*JobOutput, error) {
	jobID, err := models.ParseULID(input.JobID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid job ID", err)
	}

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, humaError(err)
	}
	return &JobOutput{Body: *job}, nil
}

// CancelJob stops and deletes a transcode job.
func (h *TranscodeHandler) CancelJob(ctx context.Context, input *JobInput) (*CancelJobOutput, error) {
	jobID, err := models.ParseULID(input.JobID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid job ID", err)
	}

	if err := h.jobs.Cancel(ctx, jobID); err != nil {
		return nil, humaError(err)
	}
	return &CancelJobOutput{}, nil
}

// Download serves a job's output file with byte range support. Ready jobs
// serve against the recorded final size; jobs still transcoding serve the
// bytes written so far, snapshot at request time, so a client can start
// downloading before the encode finishes.
func (h *TranscodeHandler) Download(w http.ResponseWriter, r *http.Request) {
	jobID, err := models.ParseULID(chi.URLParam(r, "jobID"))
	if err != nil {
		http.Error(w, "invalid job ID", http.StatusUnprocessableEntity)
		return
	}

	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	switch job.Status {
	case models.TranscodeStatusReady, models.TranscodeStatusTranscoding:
	case models.TranscodeStatusFailed:
		w.Header().Set(TranscodeStatusHeader, string(job.Status))
		http.Error(w, job.ErrorMessage, http.StatusConflict)
		return
	default:
		w.Header().Set(TranscodeStatusHeader, string(job.Status))
		http.Error(w, "output not available yet", http.StatusConflict)
		return
	}

	size := job.FileSize
	if job.Status == models.TranscodeStatusTranscoding {
		info, statErr := os.Stat(job.OutputPath)
		if statErr != nil {
			w.Header().Set(TranscodeStatusHeader, string(job.Status))
			http.Error(w, "output not available yet", http.StatusConflict)
			return
		}
		size = info.Size()
	}

	if err := h.jobs.Touch(r.Context(), job.ID); err != nil {
		h.logger.Warn("touching job", slog.String("job_id", job.ID.String()), slog.String("error", err.Error()))
	}

	w.Header().Set(TranscodeStatusHeader, string(job.Status))
	if err := httprange.ServeFile(w, r, job.OutputPath, size, "video/mp4"); err != nil {
		h.logger.Warn("serving job output",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
