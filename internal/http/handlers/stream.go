package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/http/middleware"
	"github.com/vodarr/vodarr/internal/httprange"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/streaming"
)

// StreamHandler serves media bytes. These are raw chi routes, not huma
// operations: responses are byte ranges, live fMP4 streams, and redirects
// that do not fit an OpenAPI schema.
type StreamHandler struct {
	library  *service.LibraryService
	router   *streaming.Router
	detector *ffmpeg.BinaryDetector
	logger   *slog.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(library *service.LibraryService, router *streaming.Router, detector *ffmpeg.BinaryDetector, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		library:  library,
		router:   router,
		detector: detector,
		logger:   logger.With(slog.String("component", "stream-handler")),
	}
}

// RegisterRoutes registers the raw stream routes.
func (h *StreamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{fileID}", h.Stream)
	r.Head("/stream/{fileID}", h.Stream)
}

// Stream serves a media file with the requested (or auto-detected)
// strategy. Direct play answers byte ranges; remux streams fragmented MP4
// as it is produced; HLS strategies redirect to the session playlist.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	fileID, err := models.ParseULID(chi.URLParam(r, "fileID"))
	if err != nil {
		http.Error(w, "invalid file ID", http.StatusUnprocessableEntity)
		return
	}

	file, err := h.library.GetFile(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.UserFromContext(r.Context())
	plan, err := h.router.Route(r.Context(), file, r.URL.Query().Get("strategy"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	switch plan.Strategy {
	case streaming.StrategyDirectPlay:
		h.serveDirect(w, r, plan)
	case streaming.StrategyRemux:
		h.serveRemux(w, r, plan)
	default:
		h.serveHLS(w, r, plan, userID)
	}
}

// hlsSessionBody points JSON clients at the session playlist without the
// redirect round trip.
type hlsSessionBody struct {
	SessionID   string `json:"session_id"`
	Strategy    string `json:"strategy"`
	PlaylistURL string `json:"playlist_url"`
}

func (h *StreamHandler) serveHLS(w http.ResponseWriter, r *http.Request, plan *streaming.StreamPlan, userID string) {
	// The session playlist URL carries the user so segment requests from
	// header-less <video> elements keep their identity.
	target := fmt.Sprintf("/hls/%s/playlist.m3u8?user=%s", plan.Session.ID, url.QueryEscape(userID))

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hlsSessionBody{
			SessionID:   plan.Session.ID.String(),
			Strategy:    string(plan.Strategy),
			PlaylistURL: target,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *StreamHandler) serveDirect(w http.ResponseWriter, r *http.Request, plan *streaming.StreamPlan) {
	if err := httprange.ServeFile(w, r, plan.File.Path, plan.File.Size, plan.MIMEType); err != nil {
		h.logger.Warn("direct play failed",
			slog.String("file_id", plan.File.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (h *StreamHandler) serveRemux(w http.ResponseWriter, r *http.Request, plan *streaming.StreamPlan) {
	info, err := h.detector.Detect(r.Context())
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", streaming.ErrPipelineStartFailed, err))
		return
	}

	// Length is unknown and seeking is impossible in a live remux.
	w.Header().Set("Content-Type", plan.MIMEType)
	w.Header().Set("Accept-Ranges", "none")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	cmd := ffmpeg.NewCommand(info.FFmpegPath, plan.RemuxArgs)
	h.logger.Info("remux started",
		slog.String("file_id", plan.File.ID.String()),
		slog.String("command", cmd.String()),
	)

	// The request context tears the pipeline down when the client leaves.
	err = cmd.StreamToWriter(r.Context(), w)
	switch {
	case err == nil:
		h.logger.Info("remux finished", slog.String("file_id", plan.File.ID.String()))
	case errors.Is(err, context.Canceled):
		h.logger.Debug("remux canceled by client", slog.String("file_id", plan.File.ID.String()))
	default:
		// Headers are gone; all we can do is log and close.
		h.logger.Warn("remux failed",
			slog.String("file_id", plan.File.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
