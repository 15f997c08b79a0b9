// Package ffmpeg provides FFmpeg/FFprobe binary detection, command
// construction, media probing, and supervised pipeline execution.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vodarr/vodarr/internal/util"
)

// Environment variables overriding binary discovery.
const (
	EnvFFmpegBinary  = "VODARR_FFMPEG_BINARY"
	EnvFFprobeBinary = "VODARR_FFPROBE_BINARY"
)

// BinaryInfo contains information about the FFmpeg/FFprobe installation.
type BinaryInfo struct {
	FFmpegPath   string   `json:"ffmpeg_path"`
	FFprobePath  string   `json:"ffprobe_path"`
	Version      string   `json:"version"`
	MajorVersion int      `json:"major_version"`
	MinorVersion int      `json:"minor_version"`
	Encoders     []string `json:"encoders,omitempty"`
}

// HasEncoder returns true if the installation provides the named encoder.
func (info *BinaryInfo) HasEncoder(name string) bool {
	return slices.Contains(info.Encoders, name)
}

// SupportsMinVersion returns true if the installed ffmpeg is at least the
// given version.
func (info *BinaryInfo) SupportsMinVersion(major, minor int) bool {
	if info.MajorVersion != major {
		return info.MajorVersion > major
	}
	return info.MinorVersion >= minor
}

// BinaryDetector handles detection and caching of FFmpeg binaries.
type BinaryDetector struct {
	mu           sync.RWMutex
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration

	// Explicit paths from config; empty means auto-detect.
	ffmpegPath  string
	ffprobePath string
}

// NewBinaryDetector creates a new binary detector.
func NewBinaryDetector() *BinaryDetector {
	return &BinaryDetector{
		cacheTTL: 5 * time.Minute,
	}
}

// WithPaths sets explicit binary paths, bypassing auto-detection for any
// non-empty path.
func (d *BinaryDetector) WithPaths(ffmpegPath, ffprobePath string) *BinaryDetector {
	d.ffmpegPath = ffmpegPath
	d.ffprobePath = ffprobePath
	return d
}

// WithCacheTTL sets the cache TTL for binary detection.
func (d *BinaryDetector) WithCacheTTL(ttl time.Duration) *BinaryDetector {
	d.cacheTTL = ttl
	return d
}

// Detect detects FFmpeg and FFprobe binaries and their capabilities.
// Results are cached for the configured TTL.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring write lock
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Clear clears the cached binary information.
func (d *BinaryDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = nil
}

// detect performs the actual binary detection.
func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	info := &BinaryInfo{}

	// Find ffmpeg binary (required).
	// Search order: explicit config path -> env var -> PATH
	ffmpegPath := d.ffmpegPath
	if ffmpegPath == "" {
		var err error
		ffmpegPath, err = util.FindBinary("ffmpeg", EnvFFmpegBinary)
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found: %w", err)
		}
	}
	info.FFmpegPath = ffmpegPath

	// Find ffprobe binary. Probing degrades to the transcode fallback
	// without it, so absence is not fatal.
	ffprobePath := d.ffprobePath
	if ffprobePath == "" {
		if p, err := util.FindBinary("ffprobe", EnvFFprobeBinary); err == nil {
			ffprobePath = p
		}
	}
	info.FFprobePath = ffprobePath

	version, err := d.getVersion(ctx, ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}
	info.Version = version.full
	info.MajorVersion = version.major
	info.MinorVersion = version.minor

	if encoders, err := d.getEncoders(ctx, ffmpegPath); err == nil {
		info.Encoders = encoders
	}

	return info, nil
}

// versionInfo holds parsed ffmpeg version output.
type versionInfo struct {
	full  string
	major int
	minor int
}

// versionRe extracts the version from "ffmpeg version N.N.N ..." output.
var versionRe = regexp.MustCompile(`ffmpeg version (\S+)`)

// getVersion runs "ffmpeg -version" and parses the result.
func (d *BinaryDetector) getVersion(ctx context.Context, ffmpegPath string) (*versionInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return nil, fmt.Errorf("running ffmpeg -version: %w", err)
	}

	m := versionRe.FindStringSubmatch(string(out))
	if m == nil {
		return nil, fmt.Errorf("unrecognized ffmpeg version output")
	}

	v := &versionInfo{full: m[1]}
	parts := strings.SplitN(strings.TrimPrefix(m[1], "n"), ".", 3)
	if len(parts) > 0 {
		v.major, _ = strconv.Atoi(strings.TrimFunc(parts[0], func(r rune) bool { return r < '0' || r > '9' }))
	}
	if len(parts) > 1 {
		v.minor, _ = strconv.Atoi(strings.TrimFunc(parts[1], func(r rune) bool { return r < '0' || r > '9' }))
	}
	return v, nil
}

// getEncoders runs "ffmpeg -encoders" and returns the encoder names.
func (d *BinaryDetector) getEncoders(ctx context.Context, ffmpegPath string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("running ffmpeg -encoders: %w", err)
	}

	var encoders []string
	inList := false
	for _, line := range strings.Split(string(out), "\n") {
		// Encoder lines follow the "------" separator and look like
		// " V....D libx264   H.264 / AVC ..."
		if strings.HasPrefix(strings.TrimSpace(line), "------") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			encoders = append(encoders, fields[1])
		}
	}
	return encoders, nil
}
