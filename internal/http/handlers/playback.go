package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/streaming"
)

// PlaybackHandler exposes playback candidate negotiation: for a content
// item it returns the ordered list of delivery options a client can pick
// from.
type PlaybackHandler struct {
	library    *service.LibraryService
	classifier *streaming.Classifier
}

// NewPlaybackHandler creates a playback handler.
func NewPlaybackHandler(library *service.LibraryService, classifier *streaming.Classifier) *PlaybackHandler {
	return &PlaybackHandler{library: library, classifier: classifier}
}

// PlaybackInfoInput identifies the content to negotiate playback for.
type PlaybackInfoInput struct {
	ContentID string `path:"contentID" doc:"Content item ULID"`
}

// PlaybackInfo is the negotiation result.
type PlaybackInfo struct {
	FileID         string                   `json:"file_id"`
	Classification streaming.Classification `json:"classification"`
	Container      string                   `json:"container"`
	VideoCodec     string                   `json:"video_codec,omitempty"`
	AudioCodec     string                   `json:"audio_codec,omitempty"`
	Width          int                      `json:"width,omitempty"`
	Height         int                      `json:"height,omitempty"`
	Resolution     string                   `json:"resolution,omitempty"`
	DurationMs     int64                    `json:"duration_ms,omitempty"`
	Bitrate        int64                    `json:"bitrate,omitempty"`
	HDRFormat      string                   `json:"hdr_format,omitempty"`
	Candidates     []streaming.Candidate    `json:"candidates"`
}

// PlaybackInfoOutput wraps the negotiation result.
type PlaybackInfoOutput struct {
	Body PlaybackInfo
}

// Register registers the playback routes with the API.
func (h *PlaybackHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getPlaybackInfo",
		Method:      "GET",
		Path:        "/api/v1/playback/{contentID}",
		Summary:     "Get playback candidates",
		Description: "Classifies the content's media file and returns delivery options ordered by preference. The last candidate always works.",
		Tags:        []string{"Playback"},
	}, h.GetPlaybackInfo)
}

// GetPlaybackInfo classifies a content item and builds its candidates.
func (h *PlaybackHandler) GetPlaybackInfo(ctx context.Context, input *PlaybackInfoInput) (*PlaybackInfoOutput, error) {
	contentID, err := models.ParseULID(input.ContentID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid content ID", err)
	}

	file, err := h.library.ResolveContent(ctx, contentID)
	if err != nil {
		return nil, humaError(err)
	}

	class := h.classifier.Classify(ctx, file)
	candidates := streaming.BuildCandidates(class, file)

	resolution := ""
	if file.Width > 0 && file.Height > 0 {
		resolution = fmt.Sprintf("%dx%d", file.Width, file.Height)
	}

	return &PlaybackInfoOutput{
		Body: PlaybackInfo{
			FileID:         file.ID.String(),
			Classification: class,
			Container:      file.Container,
			VideoCodec:     file.VideoCodec,
			AudioCodec:     file.AudioCodec,
			Width:          file.Width,
			Height:         file.Height,
			Resolution:     resolution,
			DurationMs:     file.DurationMs,
			Bitrate:        file.Bitrate,
			HDRFormat:      file.HDRFormat,
			Candidates:     candidates,
		},
	}, nil
}
