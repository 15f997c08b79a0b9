package ffmpeg

import (
	"regexp"
	"strconv"
	"sync"
	"time"
)

// FFmpeg reports progress on stderr as "time=HH:MM:SS.ss" fields inside
// the periodic status line, and the source duration once at startup as
// "Duration: HH:MM:SS.ss". ProgressTracker turns those into a completion
// fraction.

var (
	durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	timeRe     = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// ParseDuration extracts the "Duration:" value from an ffmpeg log line.
func ParseDuration(line string) (time.Duration, bool) {
	m := durationRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return clockToDuration(m[1], m[2], m[3]), true
}

// ParseTime extracts the "time=" value from an ffmpeg progress line.
func ParseTime(line string) (time.Duration, bool) {
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return clockToDuration(m[1], m[2], m[3]), true
}

func clockToDuration(h, m, s string) time.Duration {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.ParseFloat(s, 64)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
}

// ProgressTracker computes a completion fraction from ffmpeg log lines.
// The total duration can be provided up front (from probing) or learned
// from the pipeline's own "Duration:" line.
type ProgressTracker struct {
	mu       sync.Mutex
	total    time.Duration
	fraction float64
}

// NewProgressTracker creates a tracker. total may be zero when the source
// duration is unknown; it is then learned from the log stream.
func NewProgressTracker(total time.Duration) *ProgressTracker {
	return &ProgressTracker{total: total}
}

// ObserveLine feeds one log line to the tracker. Returns the updated
// fraction and true when the line advanced progress.
func (p *ProgressTracker) ObserveLine(line string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total <= 0 {
		if d, ok := ParseDuration(line); ok {
			p.total = d
		}
	}

	t, ok := ParseTime(line)
	if !ok || p.total <= 0 {
		return p.fraction, false
	}

	frac := float64(t) / float64(p.total)
	if frac < 0 {
		frac = 0
	}
	// The muxer can report slightly past the container duration; 1.0 is
	// reserved for actual completion.
	if frac > 0.99 {
		frac = 0.99
	}
	if frac < p.fraction {
		return p.fraction, false
	}
	p.fraction = frac
	return p.fraction, true
}

// Fraction returns the current completion fraction in [0, 0.99].
func (p *ProgressTracker) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction
}
