package handlers

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vodarr/vodarr/internal/streaming"
)

// HLSHandler serves session playlists and segments as raw chi routes.
type HLSHandler struct {
	sessions *streaming.HLSManager
	logger   *slog.Logger
}

// NewHLSHandler creates an HLS handler.
func NewHLSHandler(sessions *streaming.HLSManager, logger *slog.Logger) *HLSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HLSHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "hls-handler")),
	}
}

// RegisterRoutes registers the raw HLS routes.
func (h *HLSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/hls/{sessionID}/playlist.m3u8", h.Playlist)
	r.Get("/hls/{sessionID}/{segment}", h.Segment)
}

// Playlist serves the session playlist, blocking until the first segment
// exists. ffmpeg writes relative segment URIs, so the playlist works
// as-is under this route prefix.
func (h *HLSHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session ID", http.StatusUnprocessableEntity)
		return
	}

	data, err := h.sessions.Playlist(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	// Event playlists grow; clients must refetch.
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// Segment serves one media segment from the session directory.
func (h *HLSHandler) Segment(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session ID", http.StatusUnprocessableEntity)
		return
	}

	path, err := h.sessions.SegmentPath(sessionID, chi.URLParam(r, "segment"))
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, streaming.ErrNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp2t")
	// Segments are immutable once written.
	w.Header().Set("Cache-Control", "max-age=31536000, immutable")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
