package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/google/uuid"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
)

// playlistPollInterval is how often a blocked playlist request re-checks
// the playlist file while waiting for the first segment.
const playlistPollInterval = 200 * time.Millisecond

const (
	hlsPlaylistName  = "playlist.m3u8"
	hlsSegmentFormat = "segment_%05d.ts"
)

// HLSSession is one live packaging pipeline bound to a (file, user) pair.
type HLSSession struct {
	ID       uuid.UUID   `json:"id"`
	FileID   models.ULID `json:"file_id"`
	UserID   string      `json:"user_id"`
	Strategy Strategy    `json:"strategy"`
	Started  time.Time   `json:"started"`

	dir  string
	proc Process

	mu         sync.Mutex
	lastAccess time.Time
	failure    error
}

// touch stamps the last access time. Every playlist and segment request
// counts as activity.
func (s *HLSSession) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

func (s *HLSSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

func (s *HLSSession) fail(err error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = err
	}
	s.mu.Unlock()
}

func (s *HLSSession) failed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// LastAccess returns when the session was last used (for observability).
func (s *HLSSession) LastAccess() time.Time {
	return s.idleSince()
}

// sessionKey identifies the (file, user) pair a session serves.
type sessionKey struct {
	FileID models.ULID
	UserID string
}

// HLSManager owns live HLS packaging sessions. Session creation is
// idempotent per (file, user): a second request for the same pair
// attaches to the running pipeline instead of starting another.
type HLSManager struct {
	launcher Launcher
	hlsDir   string
	cfg      config.StreamingConfig
	preset   config.PresetConfig
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*HLSSession
	byKey    map[sessionKey]uuid.UUID

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHLSManager creates a session manager writing per-session directories
// under hlsDir. The preset drives the re-encode path; stream-copy sessions
// ignore it.
func NewHLSManager(launcher Launcher, hlsDir string, cfg config.StreamingConfig, preset config.PresetConfig, logger *slog.Logger) *HLSManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &HLSManager{
		launcher: launcher,
		hlsDir:   hlsDir,
		cfg:      cfg,
		preset:   preset,
		logger:   logger.With(slog.String("component", "hls-sessions")),
		sessions: make(map[uuid.UUID]*HLSSession),
		byKey:    make(map[sessionKey]uuid.UUID),
		stopCh:   make(chan struct{}),
	}
	go m.reapLoop()
	return m
}

// GetOrCreate returns the live session for (file, user) with the given
// strategy, starting a pipeline only when none exists. A session running
// with a different strategy for the same pair is reused as-is; the
// packaged output is compatible either way. A session whose pipeline has
// failed is torn down and replaced instead of reattached.
func (m *HLSManager) GetOrCreate(ctx context.Context, file *models.MediaFile, strategy Strategy, userID string) (*HLSSession, error) {
	if strategy != StrategyHLSCopy && strategy != StrategyTranscode {
		return nil, fmt.Errorf("%w: %s is not an HLS strategy", ErrInvalidStrategy, strategy)
	}

	key := sessionKey{FileID: file.ID, UserID: userID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byKey[key]; ok {
		sess, live := m.sessions[id]
		switch {
		case live && sess.failed() == nil:
			sess.touch()
			return sess, nil
		case live:
			// The pipeline died. Drop the dead session so this request
			// starts a fresh one.
			delete(m.sessions, id)
			delete(m.byKey, key)
			m.teardown(sess)
		default:
			delete(m.byKey, key)
		}
	}

	if _, err := os.Stat(file.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceFileMissing, file.Path)
	}

	id := uuid.New()
	dir := filepath.Join(m.hlsDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session dir: %w", err)
	}

	sess := &HLSSession{
		ID:       id,
		FileID:   file.ID,
		UserID:   userID,
		Strategy: strategy,
		Started:  time.Now(),
		dir:      dir,
	}
	sess.touch()

	proc, err := m.launcher.Launch(LaunchSpec{
		Args:          m.sessionArgs(file, strategy, dir),
		OutputDir:     dir,
		TotalDuration: time.Duration(file.DurationMs) * time.Millisecond,
	}, ffmpeg.SupervisorCallbacks{
		// Clean completion means the whole file is packaged; the session
		// keeps serving its segments until it goes idle.
		OnError: func(err error) {
			sess.fail(err)
			m.logger.Warn("session pipeline failed",
				slog.String("session_id", id.String()),
				slog.String("error", err.Error()),
			)
		},
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	sess.proc = proc

	m.sessions[id] = sess
	m.byKey[key] = id

	m.logger.InfoContext(ctx, "hls session started",
		slog.String("session_id", id.String()),
		slog.String("file_id", file.ID.String()),
		slog.String("user_id", userID),
		slog.String("strategy", string(strategy)),
	)
	return sess, nil
}

// sessionArgs builds the pipeline arguments for one session.
func (m *HLSManager) sessionArgs(file *models.MediaFile, strategy Strategy, dir string) []string {
	b := ffmpeg.NewCommandBuilder("").
		HideBanner().
		LogLevel("info").
		Overwrite().
		Input(file.Path).
		MapAll()

	if strategy == StrategyHLSCopy {
		b.StreamCopy()
	} else {
		b.VideoCodec("libx264").
			Preset(m.preset.Preset).
			CRF(m.preset.CRF).
			VideoBitrate(m.preset.VideoBitrate, m.preset.MaxRate, m.preset.BufSize).
			AudioCodec("aac").
			AudioBitrate(m.preset.AudioBitrate).
			AudioChannels(m.preset.AudioChannels)
		if m.preset.Height > 0 && file.Height > m.preset.Height {
			b.VideoFilter(fmt.Sprintf("scale=-2:%d", m.preset.Height))
		}
	}

	return b.
		HLSEvent(m.cfg.HLSSegmentSeconds, filepath.Join(dir, hlsSegmentFormat)).
		Output(filepath.Join(dir, hlsPlaylistName)).
		Args()
}

// Get returns a session by ID.
func (m *HLSManager) Get(id uuid.UUID) (*HLSSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Playlist returns the session's playlist bytes, blocking until the first
// segment is available. It fails fast when the pipeline has already died,
// and with ErrPlaylistNotReady when the wait budget runs out.
func (m *HLSManager) Playlist(ctx context.Context, id uuid.UUID) ([]byte, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	sess.touch()

	path := filepath.Join(sess.dir, hlsPlaylistName)
	deadline := time.NewTimer(m.cfg.PlaylistWaitTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(playlistPollInterval)
	defer tick.Stop()

	for {
		if err := sess.failed(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSubprocessFailed, err)
		}

		if data, ok := readReadyPlaylist(path); ok {
			return data, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrPlaylistNotReady
		case <-tick.C:
		}
	}
}

// readReadyPlaylist reads and parses the playlist file, reporting ready
// only once it references at least one segment. ffmpeg writes the file
// before the first segment closes, so existence alone is not enough.
func readReadyPlaylist(path string) ([]byte, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	pl, err := playlist.Unmarshal(data)
	if err != nil {
		return nil, false
	}
	media, ok := pl.(*playlist.Media)
	if !ok || len(media.Segments) == 0 {
		return nil, false
	}
	return data, true
}

// SegmentPath resolves a segment name inside the session directory. Names
// that escape the directory are rejected.
func (m *HLSManager) SegmentPath(id uuid.UUID, name string) (string, error) {
	sess, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: segment %q", ErrNotFound, name)
	}

	path := filepath.Join(sess.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: segment %q", ErrNotFound, name)
	}
	sess.touch()
	return path, nil
}

// Stop tears down one session: the pipeline is stopped and the session
// directory removed.
func (m *HLSManager) Stop(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		delete(m.byKey, sessionKey{FileID: sess.FileID, UserID: sess.UserID})
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	m.teardown(sess)
	return nil
}

// StopAll tears down every session. Called on shutdown.
func (m *HLSManager) StopAll() {
	m.stopOnce.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	sessions := make([]*HLSSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*HLSSession)
	m.byKey = make(map[sessionKey]uuid.UUID)
	m.mu.Unlock()

	for _, s := range sessions {
		m.teardown(s)
	}
}

// Sessions returns a snapshot of live sessions (for observability).
func (m *HLSManager) Sessions() []*HLSSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*HLSSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *HLSManager) teardown(sess *HLSSession) {
	if sess.proc != nil {
		sess.proc.Stop()
	}
	if err := os.RemoveAll(sess.dir); err != nil {
		m.logger.Warn("removing session dir",
			slog.String("dir", sess.dir),
			slog.String("error", err.Error()),
		)
	}
	m.logger.Info("hls session stopped", slog.String("session_id", sess.ID.String()))
}

// reapLoop stops sessions that have gone idle past the configured timeout.
func (m *HLSManager) reapLoop() {
	interval := m.cfg.SessionIdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.cfg.SessionIdleTimeout)
			for _, sess := range m.Sessions() {
				if sess.idleSince().Before(cutoff) {
					m.logger.Info("reaping idle hls session",
						slog.String("session_id", sess.ID.String()),
					)
					_ = m.Stop(sess.ID)
				}
			}
		}
	}
}
