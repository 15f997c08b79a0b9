package streaming

import (
	"context"
	"log/slog"
	"os"

	"github.com/vodarr/vodarr/internal/codec"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
)

// StreamPlan is the router's verdict for one stream request: which
// strategy to execute and the material the HTTP layer needs to execute
// it. Exactly the fields for the chosen strategy are populated.
type StreamPlan struct {
	Strategy Strategy
	File     *models.MediaFile

	// MIMEType for the response body (direct play and remux).
	MIMEType string
	// RemuxArgs is the pipe-to-stdout pipeline argument list (remux only).
	RemuxArgs []string
	// Session is the live packaging session (HLS strategies only).
	Session *HLSSession
}

// Router turns a stream request into an executable plan. Explicit client
// strategies are honored; anything absent or unknown falls back to the
// classifier's verdict, so a bare /stream URL always plays.
type Router struct {
	classifier *Classifier
	hls        *HLSManager
	logger     *slog.Logger
}

// NewRouter creates a strategy router.
func NewRouter(classifier *Classifier, hls *HLSManager, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: classifier,
		hls:        hls,
		logger:     logger.With(slog.String("component", "router")),
	}
}

// Route builds the plan for streaming a file. rawStrategy is the client's
// requested strategy, possibly empty. All strategies spawn or attach to a
// subprocess except direct play, so they require a resolved user.
func (r *Router) Route(ctx context.Context, file *models.MediaFile, rawStrategy, userID string) (*StreamPlan, error) {
	strategy, explicit := ParseStrategy(rawStrategy)
	if !explicit {
		strategy = r.autoStrategy(ctx, file)
		if rawStrategy != "" {
			r.logger.DebugContext(ctx, "unknown strategy, auto-detected",
				slog.String("requested", rawStrategy),
				slog.String("chosen", string(strategy)),
			)
		}
	}

	if strategy != StrategyDirectPlay && userID == "" {
		return nil, ErrUnauthorized
	}

	switch strategy {
	case StrategyDirectPlay:
		if _, err := os.Stat(file.Path); err != nil {
			return nil, ErrSourceFileMissing
		}
		return &StreamPlan{
			Strategy: StrategyDirectPlay,
			File:     file,
			MIMEType: directPlayMIME(file),
		}, nil

	case StrategyRemux:
		if _, err := os.Stat(file.Path); err != nil {
			return nil, ErrSourceFileMissing
		}
		return &StreamPlan{
			Strategy:  StrategyRemux,
			File:      file,
			MIMEType:  "video/mp4",
			RemuxArgs: remuxArgs(file.Path),
		}, nil

	case StrategyHLSCopy, StrategyTranscode:
		sess, err := r.hls.GetOrCreate(ctx, file, strategy, userID)
		if err != nil {
			return nil, err
		}
		return &StreamPlan{
			Strategy: strategy,
			File:     file,
			Session:  sess,
		}, nil
	}

	// ParseStrategy and autoStrategy only produce the four cases above.
	return nil, ErrInvalidStrategy
}

// autoStrategy maps the classifier verdict to the cheapest workable
// strategy.
func (r *Router) autoStrategy(ctx context.Context, file *models.MediaFile) Strategy {
	switch r.classifier.Classify(ctx, file) {
	case ClassificationDirectPlay:
		return StrategyDirectPlay
	case ClassificationNeedsRemux:
		return StrategyRemux
	default:
		return StrategyTranscode
	}
}

// directPlayMIME derives the response content type for source bytes.
func directPlayMIME(file *models.MediaFile) string {
	video, _ := codec.ParseVideo(file.VideoCodec)
	videoRFC := codec.RFC6381Video(video, file.VideoProfile, file.VideoLevel)
	audioRFC := ""
	if file.AudioCodec != "" {
		audio, _ := codec.ParseAudio(file.AudioCodec)
		audioRFC = codec.RFC6381Audio(audio)
	}
	return codec.MIMEType(codec.Container(file.Container), videoRFC, audioRFC)
}

// remuxArgs builds the repackage-to-stdout pipeline: stream copy into
// fragmented MP4, written to the response as it is produced.
func remuxArgs(inputPath string) []string {
	return ffmpeg.NewCommandBuilder("").
		HideBanner().
		LogLevel("error").
		Input(inputPath).
		MapAll().
		StreamCopy().
		ProgressiveMP4().
		Output("pipe:1").
		Args()
}
