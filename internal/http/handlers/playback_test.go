package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/streaming"
)

func TestPlaybackHandler_SourceMetadata(t *testing.T) {
	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)
	library := service.NewLibraryService(files, testLogger())
	classifier := streaming.NewClassifier(&stubProber{}, files, testLogger())
	h := NewPlaybackHandler(library, classifier)

	contentID := models.NewULID()
	file := &models.MediaFile{
		ContentID:  contentID,
		Path:       writeSourceFile(t, "movie.mp4", 4096),
		Size:       4096,
		Container:  "mp4",
		VideoCodec: "h264",
		AudioCodec: "aac",
		Width:      1920,
		Height:     1080,
		DurationMs: 120000,
		Bitrate:    4500000,
	}
	require.NoError(t, files.Create(context.Background(), file))

	out, err := h.GetPlaybackInfo(context.Background(), &PlaybackInfoInput{ContentID: contentID.String()})
	require.NoError(t, err)

	info := out.Body
	assert.Equal(t, file.ID.String(), info.FileID)
	assert.Equal(t, streaming.ClassificationDirectPlay, info.Classification)
	assert.Equal(t, "1920x1080", info.Resolution)
	assert.Equal(t, int64(4500000), info.Bitrate)
	require.NotEmpty(t, info.Candidates)
	assert.Equal(t, streaming.StrategyTranscode, info.Candidates[len(info.Candidates)-1].Strategy)
}

func TestPlaybackHandler_UnknownContent(t *testing.T) {
	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)
	h := NewPlaybackHandler(
		service.NewLibraryService(files, testLogger()),
		streaming.NewClassifier(&stubProber{}, files, testLogger()),
	)

	_, err := h.GetPlaybackInfo(context.Background(), &PlaybackInfoInput{ContentID: models.NewULID().String()})
	assert.Error(t, err)
}
