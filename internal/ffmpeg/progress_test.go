package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Trimmed from a real ffmpeg transcode run.
const cannedTranscript = `ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers
Input #0, matroska,webm, from '/media/movies/example.mkv':
  Duration: 00:10:00.00, start: 0.000000, bitrate: 8042 kb/s
  Stream #0:0: Video: hevc (Main 10), yuv420p10le(tv), 1920x1080, 23.98 fps
  Stream #0:1: Audio: aac (LC), 48000 Hz, stereo, fltp
Output #0, mp4, to '/data/transcode/job.mp4':
  Stream #0:0: Video: h264 (libx264), yuv420p, 1920x1080
frame=  720 fps= 48 q=23.0 size=   12288KiB time=00:00:30.02 bitrate=3353.2kbits/s speed=2.01x
frame= 1440 fps= 47 q=24.0 size=   24576KiB time=00:01:00.05 bitrate=3352.9kbits/s speed=1.99x
frame= 7200 fps= 48 q=22.0 size=  122880KiB time=00:05:00.00 bitrate=3355.4kbits/s speed=2.00x
frame=14385 fps= 48 q=-1.0 Lsize=  245760KiB time=00:09:59.98 bitrate=3355.5kbits/s speed=2.00x
`

func TestParseDuration(t *testing.T) {
	d, ok := ParseDuration("  Duration: 00:10:00.00, start: 0.000000, bitrate: 8042 kb/s")
	assert.True(t, ok)
	assert.Equal(t, 10*time.Minute, d)

	d, ok = ParseDuration("  Duration: 01:30:15.50, start: 0.000000")
	assert.True(t, ok)
	assert.Equal(t, time.Hour+30*time.Minute+15*time.Second+500*time.Millisecond, d)

	_, ok = ParseDuration("frame= 720 fps= 48")
	assert.False(t, ok)
}

func TestParseTime(t *testing.T) {
	d, ok := ParseTime("frame=  720 fps= 48 q=23.0 size=   12288KiB time=00:00:30.02 bitrate=3353.2kbits/s")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second+20*time.Millisecond, d)

	_, ok = ParseTime("Press [q] to stop, [?] for help")
	assert.False(t, ok)
}

func TestProgressTracker_KnownDuration(t *testing.T) {
	tracker := NewProgressTracker(10 * time.Minute)

	frac, ok := tracker.ObserveLine("frame= 1440 fps= 47 time=00:05:00.00 speed=2.0x")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, frac, 0.001)

	// Non-progress lines leave the fraction untouched.
	_, ok = tracker.ObserveLine("[libx264 @ 0x55] frame I:97")
	assert.False(t, ok)
	assert.InDelta(t, 0.5, tracker.Fraction(), 0.001)
}

func TestProgressTracker_LearnsDurationFromTranscript(t *testing.T) {
	tracker := NewProgressTracker(0)

	for _, line := range strings.Split(cannedTranscript, "\n") {
		tracker.ObserveLine(line)
	}

	// The final time is a hair under the duration; capped below 1.0.
	assert.InDelta(t, 0.99, tracker.Fraction(), 0.011)
	assert.Less(t, tracker.Fraction(), 1.0)
}

func TestProgressTracker_NeverRegresses(t *testing.T) {
	tracker := NewProgressTracker(100 * time.Second)

	tracker.ObserveLine("time=00:00:50.00")
	// A stale line (e.g. after a seek) must not move progress backwards.
	frac, ok := tracker.ObserveLine("time=00:00:10.00")
	assert.False(t, ok)
	assert.InDelta(t, 0.5, frac, 0.001)
}

func TestProgressTracker_UnknownDurationReportsNothing(t *testing.T) {
	tracker := NewProgressTracker(0)
	_, ok := tracker.ObserveLine("time=00:00:30.00")
	assert.False(t, ok)
	assert.Zero(t, tracker.Fraction())
}
