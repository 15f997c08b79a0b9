package streaming

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
)

func probedFile(container, videoCodec, audioCodec string) *models.MediaFile {
	return &models.MediaFile{
		Path:       "/media/movie.bin",
		Container:  container,
		VideoCodec: videoCodec,
		AudioCodec: audioCodec,
	}
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name string
		file *models.MediaFile
		want Classification
	}{
		{
			name: "h264 aac mp4 plays directly",
			file: probedFile("mp4", "h264", "aac"),
			want: ClassificationDirectPlay,
		},
		{
			name: "vp9 opus webm plays directly",
			file: probedFile("webm", "vp9", "opus"),
			want: ClassificationDirectPlay,
		},
		{
			name: "h264 aac mkv needs remux",
			file: probedFile("mkv", "h264", "aac"),
			want: ClassificationNeedsRemux,
		},
		{
			name: "h264 aac mov needs remux",
			file: probedFile("mov", "h264", "aac"),
			want: ClassificationNeedsRemux,
		},
		{
			name: "hevc aac mkv needs transcoding",
			file: probedFile("mkv", "hevc", "aac"),
			want: ClassificationNeedsTranscoding,
		},
		{
			name: "h264 dts mkv needs transcoding",
			file: probedFile("mkv", "h264", "dts"),
			want: ClassificationNeedsTranscoding,
		},
		{
			name: "playable codecs in avi need transcoding",
			file: probedFile("avi", "h264", "mp3"),
			want: ClassificationNeedsTranscoding,
		},
		{
			name: "video only mp4 plays directly",
			file: probedFile("mp4", "h264", ""),
			want: ClassificationDirectPlay,
		},
		{
			name: "unknown video codec needs transcoding",
			file: probedFile("mp4", "prores", "aac"),
			want: ClassificationNeedsTranscoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&fakeProber{}, nil, testLogger())
			assert.Equal(t, tt.want, c.Classify(context.Background(), tt.file))
		})
	}
}

func TestClassifier_ProbesUnprobedFiles(t *testing.T) {
	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)

	file := &models.MediaFile{Path: "/media/show.mkv", Size: 100}
	require.NoError(t, files.Create(context.Background(), file))

	prober := &fakeProber{
		result: &ffmpeg.ProbeResult{
			Format: ffmpeg.ProbeFormat{
				FormatName: "matroska,webm",
				Duration:   "4200.5",
				BitRate:    "6000000",
			},
			Streams: []ffmpeg.ProbeStream{
				{CodecType: "video", CodecName: "h264", Profile: "High", Level: 40, Width: 1920, Height: 1080},
				{CodecType: "audio", CodecName: "aac", Channels: 6},
			},
		},
	}
	c := NewClassifier(prober, files, testLogger())

	got := c.Classify(context.Background(), file)
	assert.Equal(t, ClassificationNeedsRemux, got)
	assert.Equal(t, 1, prober.probeCalls())

	// The in-memory record is filled synchronously.
	assert.Equal(t, "mkv", file.Container)
	assert.Equal(t, "h264", file.VideoCodec)
	assert.Equal(t, "aac", file.AudioCodec)
	assert.Equal(t, int64(4200500), file.DurationMs)
	assert.Equal(t, 1080, file.Height)

	// The database catches up in the background.
	require.Eventually(t, func() bool {
		stored, err := files.GetByID(context.Background(), file.ID)
		return err == nil && stored != nil && stored.Probed()
	}, 2*time.Second, 10*time.Millisecond)

	// A second classification hits the stored metadata, not ffprobe.
	c.Classify(context.Background(), file)
	assert.Equal(t, 1, prober.probeCalls())
}

func TestClassifier_ProbeFailureAssumesTranscode(t *testing.T) {
	prober := &fakeProber{err: errors.New("moov atom not found")}
	c := NewClassifier(prober, nil, testLogger())

	file := &models.MediaFile{Path: "/media/broken.mkv"}
	got := c.Classify(context.Background(), file)

	assert.Equal(t, ClassificationNeedsTranscoding, got)
	assert.False(t, file.Probed())
}
