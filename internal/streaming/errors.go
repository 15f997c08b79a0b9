// Package streaming implements the playback orchestration core: media
// classification, playback candidate generation, strategy routing, HLS
// session management, and offline transcode job management.
package streaming

import "errors"

// Sentinel errors surfaced to the HTTP layer, which maps them to status
// codes (404, 409, 422, 500...).
var (
	// ErrNotFound indicates an unknown content, file, job, or segment.
	ErrNotFound = errors.New("not found")
	// ErrNoMediaFile indicates a content item with no playable file.
	ErrNoMediaFile = errors.New("content has no media file")
	// ErrInvalidResolution indicates an unsupported resolution name.
	ErrInvalidResolution = errors.New("invalid resolution")
	// ErrInvalidStrategy indicates a strategy the requested operation
	// cannot serve.
	ErrInvalidStrategy = errors.New("invalid strategy")
	// ErrSourceFileMissing indicates the source file vanished from disk.
	ErrSourceFileMissing = errors.New("source file missing")
	// ErrUnauthorized indicates no resolvable user on a request that
	// starts or attaches to a pipeline session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionNotFound indicates an unknown or terminated session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPipelineStartFailed indicates the subprocess could not start.
	ErrPipelineStartFailed = errors.New("pipeline start failed")
	// ErrSubprocessFailed indicates the subprocess exited abnormally.
	ErrSubprocessFailed = errors.New("pipeline subprocess failed")
	// ErrPlaylistNotReady indicates the first segment did not appear
	// within the playlist wait window.
	ErrPlaylistNotReady = errors.New("playlist not ready")
)
