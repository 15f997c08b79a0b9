package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVideo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Video
		ok    bool
	}{
		{"canonical", "h264", VideoH264, true},
		{"alias h265", "h265", VideoHEVC, true},
		{"alias hvc1", "hvc1", VideoHEVC, true},
		{"encoder name", "libx264", VideoH264, true},
		{"uppercase", "HEVC", VideoHEVC, true},
		{"whitespace", " vp9 ", VideoVP9, true},
		{"unknown", "rv40", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseVideo(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAudio(t *testing.T) {
	got, ok := ParseAudio("ec-3")
	assert.True(t, ok)
	assert.Equal(t, AudioEAC3, got)

	got, ok = ParseAudio("libopus")
	assert.True(t, ok)
	assert.Equal(t, AudioOpus, got)

	_, ok = ParseAudio("atmos")
	assert.False(t, ok)
}

func TestNormalizeContainer(t *testing.T) {
	tests := []struct {
		name       string
		formatName string
		path       string
		want       Container
	}{
		{"mkv", "matroska,webm", "/media/film.mkv", ContainerMKV},
		{"webm by extension", "matroska,webm", "/media/film.webm", ContainerWebM},
		{"mp4", "mov,mp4,m4a,3gp,3g2,mj2", "/media/film.mp4", ContainerMP4},
		{"mov by extension", "mov,mp4,m4a,3gp,3g2,mj2", "/media/film.mov", ContainerMOV},
		{"m4v by extension", "mov,mp4,m4a,3gp,3g2,mj2", "/media/film.m4v", ContainerM4V},
		{"avi", "avi", "/media/film.avi", ContainerAVI},
		{"mpegts", "mpegts", "/media/film.ts", ContainerTS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeContainer(tt.formatName, tt.path))
		})
	}
}

func TestBrowserPlayable(t *testing.T) {
	assert.True(t, VideoH264.BrowserPlayable())
	assert.True(t, VideoVP9.BrowserPlayable())
	assert.True(t, VideoAV1.BrowserPlayable())
	assert.False(t, VideoHEVC.BrowserPlayable())
	assert.False(t, VideoMPEG2.BrowserPlayable())

	assert.True(t, AudioAAC.BrowserPlayable())
	assert.True(t, AudioFLAC.BrowserPlayable())
	assert.False(t, AudioDTS.BrowserPlayable())
	assert.False(t, AudioTrueHD.BrowserPlayable())
}

func TestContainerCapabilities(t *testing.T) {
	assert.True(t, ContainerMP4.Streamable())
	assert.True(t, ContainerWebM.Streamable())
	assert.False(t, ContainerMKV.Streamable())

	assert.True(t, ContainerMKV.Remuxable())
	assert.True(t, ContainerMOV.Remuxable())
	assert.False(t, ContainerAVI.Remuxable())
	assert.False(t, ContainerMP4.Remuxable())
}

func TestRFC6381Video(t *testing.T) {
	tests := []struct {
		name    string
		codec   Video
		profile string
		level   int
		want    string
	}{
		{"h264 unknown profile", VideoH264, "", 0, "avc1.640028"},
		{"h264 high 4.0", VideoH264, "High", 40, "avc1.640028"},
		{"h264 main 3.1", VideoH264, "Main", 31, "avc1.4d401f"},
		{"h264 baseline 3.0", VideoH264, "Baseline", 30, "avc1.42401e"},
		{"hevc unknown", VideoHEVC, "", 0, "hvc1.1.6.L123.B0"},
		{"hevc main 4.1", VideoHEVC, "Main", 123, "hvc1.1.6.L123.B0"},
		{"hevc main10 5.1", VideoHEVC, "Main 10", 153, "hvc1.2.6.L153.B0"},
		{"vp9", VideoVP9, "", 0, "vp09.00.10.08"},
		{"av1", VideoAV1, "", 0, "av01.0.08M.08"},
		{"vp8", VideoVP8, "", 0, "vp8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RFC6381Video(tt.codec, tt.profile, tt.level))
		})
	}
}

func TestRFC6381Audio(t *testing.T) {
	assert.Equal(t, "mp4a.40.2", RFC6381Audio(AudioAAC))
	assert.Equal(t, "mp4a.40.34", RFC6381Audio(AudioMP3))
	assert.Equal(t, "ac-3", RFC6381Audio(AudioAC3))
	assert.Equal(t, "ec-3", RFC6381Audio(AudioEAC3))
	assert.Equal(t, "opus", RFC6381Audio(AudioOpus))
}

func TestMIMEType(t *testing.T) {
	assert.Equal(t,
		`video/mp4; codecs="avc1.640028, mp4a.40.2"`,
		MIMEType(ContainerMP4, "avc1.640028", "mp4a.40.2"))
	assert.Equal(t,
		`video/webm; codecs="vp09.00.10.08, opus"`,
		MIMEType(ContainerWebM, "vp09.00.10.08", "opus"))
	assert.Equal(t,
		`video/mp4; codecs="avc1.640028"`,
		MIMEType(ContainerMP4, "avc1.640028", ""))
	assert.Equal(t,
		"application/vnd.apple.mpegurl",
		MIMEType(ContainerHLS, "hvc1.1.6.L123.B0", "mp4a.40.2"))
}
