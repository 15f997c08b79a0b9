package streaming

import (
	"context"
	"log/slog"

	"github.com/vodarr/vodarr/internal/codec"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

// Prober abstracts media probing so the classifier is testable without
// running ffprobe. Satisfied by *ffmpeg.Prober.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

// Classifier decides how a media file can reach a client: served as-is,
// repackaged, or re-encoded. Files without stream metadata are probed on
// demand and the result persisted in the background.
type Classifier struct {
	prober Prober
	files  repository.MediaFileRepository
	logger *slog.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(prober Prober, files repository.MediaFileRepository, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		prober: prober,
		files:  files,
		logger: logger.With(slog.String("component", "classifier")),
	}
}

// Classify returns the playback classification for a file. When metadata
// is absent it probes first; a probe failure falls back to
// needs_transcoding, the strategy that works for any decodable input.
func (c *Classifier) Classify(ctx context.Context, file *models.MediaFile) Classification {
	if !file.Probed() {
		if err := c.ensureMetadata(ctx, file); err != nil {
			c.logger.WarnContext(ctx, "probe failed, assuming transcode is required",
				slog.String("file_id", file.ID.String()),
				slog.String("path", file.Path),
				slog.String("error", err.Error()),
			)
			return ClassificationNeedsTranscoding
		}
	}

	video, videoKnown := codec.ParseVideo(file.VideoCodec)
	videoPlayable := videoKnown && video.BrowserPlayable()

	// Video-only files are valid; an unknown audio codec is not.
	audioPlayable := file.AudioCodec == ""
	if file.AudioCodec != "" {
		if audio, ok := codec.ParseAudio(file.AudioCodec); ok {
			audioPlayable = audio.BrowserPlayable()
		}
	}

	if !videoPlayable || !audioPlayable {
		return ClassificationNeedsTranscoding
	}

	container := codec.Container(file.Container)
	switch {
	case container.Streamable():
		return ClassificationDirectPlay
	case container.Remuxable():
		return ClassificationNeedsRemux
	default:
		return ClassificationNeedsTranscoding
	}
}

// ensureMetadata probes the file and fills in its stream metadata. The
// database write happens in the background so the first playback request
// is not delayed by it.
func (c *Classifier) ensureMetadata(ctx context.Context, file *models.MediaFile) error {
	result, err := c.prober.Probe(ctx, file.Path)
	if err != nil {
		return err
	}

	file.Container = string(codec.NormalizeContainer(result.Format.FormatName, file.Path))
	file.DurationMs = result.DurationMs()
	file.Bitrate = result.Bitrate()
	file.HDRFormat = result.HDRFormat()

	if v := result.GetVideoStream(); v != nil {
		file.VideoCodec = codec.NormalizeVideo(v.CodecName)
		file.VideoProfile = v.Profile
		file.VideoLevel = v.Level
		file.Width = v.Width
		file.Height = v.Height
	}
	if a := result.GetAudioStream(); a != nil {
		file.AudioCodec = codec.NormalizeAudio(a.CodecName)
	}

	snapshot := *file
	go func() {
		if err := c.files.UpdateStreamInfo(context.Background(), &snapshot); err != nil {
			c.logger.Warn("persisting probe result",
				slog.String("file_id", snapshot.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}
