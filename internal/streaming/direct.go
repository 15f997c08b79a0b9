package streaming

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vodarr/vodarr/internal/models"
)

// DirectPlaySession tracks a client playing source bytes straight off
// disk. There is no subprocess behind it; the session exists so active
// viewers show up in observability and so the cache reaper can tell a
// file is in use. Liveness comes from client heartbeats.
type DirectPlaySession struct {
	ID      uuid.UUID   `json:"id"`
	FileID  models.ULID `json:"file_id"`
	UserID  string      `json:"user_id"`
	Started time.Time   `json:"started"`

	mu       sync.Mutex
	lastBeat time.Time
}

func (s *DirectPlaySession) beat() {
	s.mu.Lock()
	s.lastBeat = time.Now()
	s.mu.Unlock()
}

// LastHeartbeat returns the time of the last heartbeat.
func (s *DirectPlaySession) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBeat
}

// DirectPlayManager is the heartbeat registry for direct-play sessions.
// Sessions that miss heartbeats past the TTL are dropped silently; the
// client can always open a new one.
type DirectPlayManager struct {
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*DirectPlaySession

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewDirectPlayManager creates a registry expiring sessions after ttl
// without a heartbeat.
func NewDirectPlayManager(ttl time.Duration, logger *slog.Logger) *DirectPlayManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &DirectPlayManager{
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "direct-sessions")),
		sessions: make(map[uuid.UUID]*DirectPlaySession),
		stopCh:   make(chan struct{}),
	}
	go m.expireLoop()
	return m
}

// Open registers a new direct-play session.
func (m *DirectPlayManager) Open(fileID models.ULID, userID string) *DirectPlaySession {
	sess := &DirectPlaySession{
		ID:      uuid.New(),
		FileID:  fileID,
		UserID:  userID,
		Started: time.Now(),
	}
	sess.beat()

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("direct play session opened",
		slog.String("session_id", sess.ID.String()),
		slog.String("file_id", fileID.String()),
		slog.String("user_id", userID),
	)
	return sess
}

// Heartbeat refreshes a session's liveness.
func (m *DirectPlayManager) Heartbeat(id uuid.UUID) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.beat()
	return nil
}

// Close removes a session explicitly.
func (m *DirectPlayManager) Close(id uuid.UUID) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.logger.Info("direct play session closed", slog.String("session_id", id.String()))
	return nil
}

// Sessions returns a snapshot of live sessions.
func (m *DirectPlayManager) Sessions() []*DirectPlaySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*DirectPlaySession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// ActiveFileIDs reports the files currently held open by live sessions.
func (m *DirectPlayManager) ActiveFileIDs() map[models.ULID]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.ULID]bool, len(m.sessions))
	for _, s := range m.sessions {
		out[s.FileID] = true
	}
	return out
}

// Shutdown stops the expiry loop.
func (m *DirectPlayManager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *DirectPlayManager) expireLoop() {
	interval := m.ttl / 4
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
			cutoff := time.Now().Add(-m.ttl)
			m.mu.Lock()
			for id, sess := range m.sessions {
				if sess.LastHeartbeat().Before(cutoff) {
					delete(m.sessions, id)
					m.logger.Info("direct play session expired",
						slog.String("session_id", id.String()),
					)
				}
			}
			m.mu.Unlock()
		}
	}
}
