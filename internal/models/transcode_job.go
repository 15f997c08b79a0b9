package models

import "time"

// TranscodeResolution identifies an output resolution ladder rung.
type TranscodeResolution string

// Supported output resolutions. Original means no re-encode: the job
// completes immediately and points at the source file.
const (
	ResolutionOriginal TranscodeResolution = "original"
	Resolution1080p    TranscodeResolution = "1080p"
	Resolution720p     TranscodeResolution = "720p"
	Resolution480p     TranscodeResolution = "480p"
)

// ParseResolution validates a resolution string.
func ParseResolution(s string) (TranscodeResolution, bool) {
	switch TranscodeResolution(s) {
	case ResolutionOriginal, Resolution1080p, Resolution720p, Resolution480p:
		return TranscodeResolution(s), true
	}
	return "", false
}

// TranscodeStatus represents the lifecycle state of a transcode job.
type TranscodeStatus string

// Job lifecycle states. Pending jobs have a row but no subprocess yet;
// transcoding jobs own a running pipeline; ready jobs have a complete
// output on disk; failed jobs keep the error for inspection.
const (
	TranscodeStatusPending     TranscodeStatus = "pending"
	TranscodeStatusTranscoding TranscodeStatus = "transcoding"
	TranscodeStatusReady       TranscodeStatus = "ready"
	TranscodeStatusFailed      TranscodeStatus = "failed"
)

// TranscodeJob is a persistent record of one offline transcode of a media
// file to a target resolution. At most one job exists per
// (media_file_id, resolution) pair.
type TranscodeJob struct {
	BaseModel

	MediaFileID ULID                `gorm:"not null;uniqueIndex:idx_transcode_jobs_file_resolution" json:"media_file_id"`
	Resolution  TranscodeResolution `gorm:"not null;uniqueIndex:idx_transcode_jobs_file_resolution" json:"resolution"`

	Status   TranscodeStatus `gorm:"not null;default:pending;index" json:"status"`
	Progress float64         `json:"progress"`

	OutputPath   string `json:"output_path,omitempty"`
	FileSize     int64  `json:"file_size"`
	ErrorMessage string `json:"error_message,omitempty"`

	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastAccessedAt *time.Time `gorm:"index" json:"last_accessed_at,omitempty"`
}

// TableName returns the database table name.
func (TranscodeJob) TableName() string {
	return "transcode_jobs"
}

// IsActive returns true while the job holds or may hold a subprocess.
func (j *TranscodeJob) IsActive() bool {
	return j.Status == TranscodeStatusPending || j.Status == TranscodeStatusTranscoding
}

// IsTerminal returns true once the job can no longer change state on its own.
func (j *TranscodeJob) IsTerminal() bool {
	return j.Status == TranscodeStatusReady || j.Status == TranscodeStatusFailed
}

// MarkTranscoding transitions the job to transcoding and stamps the start time.
func (j *TranscodeJob) MarkTranscoding() {
	now := time.Now()
	j.Status = TranscodeStatusTranscoding
	j.StartedAt = &now
	j.ErrorMessage = ""
}

// MarkReady transitions the job to ready with the final output size.
func (j *TranscodeJob) MarkReady(fileSize int64) {
	now := time.Now()
	j.Status = TranscodeStatusReady
	j.Progress = 1
	j.FileSize = fileSize
	j.CompletedAt = &now
	j.LastAccessedAt = &now
}

// MarkFailed transitions the job to failed and records the error.
func (j *TranscodeJob) MarkFailed(errMsg string) {
	now := time.Now()
	j.Status = TranscodeStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
}

// Touch updates the last-accessed timestamp used for LRU cache eviction.
func (j *TranscodeJob) Touch() {
	now := time.Now()
	j.LastAccessedAt = &now
}
