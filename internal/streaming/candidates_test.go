package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/models"
)

func TestBuildCandidates_DirectPlay(t *testing.T) {
	file := probedFile("mp4", "h264", "aac")
	file.VideoProfile = "High"
	file.VideoLevel = 40

	got := BuildCandidates(ClassificationDirectPlay, file)
	require.Len(t, got, 2)

	assert.Equal(t, StrategyDirectPlay, got[0].Strategy)
	assert.Equal(t, "mp4", got[0].Container)
	assert.Equal(t, "avc1.640028", got[0].VideoCodec)
	assert.Equal(t, "mp4a.40.2", got[0].AudioCodec)
	assert.Equal(t, `video/mp4; codecs="avc1.640028, mp4a.40.2"`, got[0].MIMEType)

	assert.Equal(t, StrategyTranscode, got[1].Strategy)
}

func TestBuildCandidates_NeedsRemux(t *testing.T) {
	file := probedFile("mkv", "h264", "aac")
	file.VideoProfile = "Main"
	file.VideoLevel = 31

	got := BuildCandidates(ClassificationNeedsRemux, file)
	require.Len(t, got, 3)

	assert.Equal(t, StrategyRemux, got[0].Strategy)
	assert.Equal(t, "mp4", got[0].Container)
	assert.Equal(t, "avc1.4d401f", got[0].VideoCodec)

	assert.Equal(t, StrategyHLSCopy, got[1].Strategy)
	assert.Equal(t, "hls", got[1].Container)

	assert.Equal(t, StrategyTranscode, got[2].Strategy)
}

func TestBuildCandidates_HEVCGetsHLSCopyBeforeTranscode(t *testing.T) {
	file := probedFile("mkv", "hevc", "aac")
	file.VideoProfile = "Main 10"
	file.VideoLevel = 153

	got := BuildCandidates(ClassificationNeedsTranscoding, file)
	require.Len(t, got, 2)

	assert.Equal(t, StrategyHLSCopy, got[0].Strategy)
	assert.Equal(t, "hvc1.2.6.L153.B0", got[0].VideoCodec)
	assert.Equal(t, "mp4a.40.2", got[0].AudioCodec)

	assert.Equal(t, StrategyTranscode, got[1].Strategy)
}

func TestBuildCandidates_UndecodableAudioSkipsHLSCopy(t *testing.T) {
	file := probedFile("mkv", "hevc", "dts")

	got := BuildCandidates(ClassificationNeedsTranscoding, file)
	require.Len(t, got, 1)
	assert.Equal(t, StrategyTranscode, got[0].Strategy)
}

// Whatever the input looks like, the last candidate is always the
// guaranteed H.264/AAC HLS fallback.
func TestBuildCandidates_AlwaysEndsWithFallback(t *testing.T) {
	cases := []struct {
		file  *models.MediaFile
		class Classification
	}{
		{probedFile("mp4", "h264", "aac"), ClassificationDirectPlay},
		{probedFile("mkv", "h264", "ac3"), ClassificationNeedsRemux},
		{probedFile("mkv", "hevc", "aac"), ClassificationNeedsTranscoding},
		{probedFile("avi", "mpeg4", "mp3"), ClassificationNeedsTranscoding},
		{probedFile("mp4", "h264", ""), ClassificationDirectPlay},
	}

	for _, tc := range cases {
		got := BuildCandidates(tc.class, tc.file)
		require.NotEmpty(t, got)

		last := got[len(got)-1]
		assert.Equal(t, StrategyTranscode, last.Strategy)
		assert.Equal(t, "hls", last.Container)
		assert.Equal(t, "avc1.640028", last.VideoCodec)
		assert.Equal(t, "mp4a.40.2", last.AudioCodec)
		assert.Equal(t, `application/vnd.apple.mpegurl`, last.MIMEType)
	}
}
