package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/vodarr/vodarr/internal/http/middleware"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/streaming"
)

// SessionsHandler exposes session observability and the direct-play
// heartbeat registry.
type SessionsHandler struct {
	library *service.LibraryService
	hls     *streaming.HLSManager
	direct  *streaming.DirectPlayManager
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(library *service.LibraryService, hls *streaming.HLSManager, direct *streaming.DirectPlayManager) *SessionsHandler {
	return &SessionsHandler{library: library, hls: hls, direct: direct}
}

// HLSSessionInfo is the observable state of one HLS session.
type HLSSessionInfo struct {
	ID         string             `json:"id"`
	FileID     string             `json:"file_id"`
	UserID     string             `json:"user_id"`
	Strategy   streaming.Strategy `json:"strategy"`
	Started    time.Time          `json:"started"`
	LastAccess time.Time          `json:"last_access"`
}

// DirectSessionInfo is the observable state of one direct-play session.
type DirectSessionInfo struct {
	ID            string    `json:"id"`
	FileID        string    `json:"file_id"`
	UserID        string    `json:"user_id"`
	Started       time.Time `json:"started"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// ListSessionsInput is empty.
type ListSessionsInput struct{}

// ListSessionsOutput lists all live sessions.
type ListSessionsOutput struct {
	Body struct {
		HLS    []HLSSessionInfo    `json:"hls"`
		Direct []DirectSessionInfo `json:"direct"`
	}
}

// StopHLSSessionInput identifies one HLS session.
type StopHLSSessionInput struct {
	SessionID string `path:"sessionID" doc:"HLS session UUID"`
}

// StopHLSSessionOutput is empty.
type StopHLSSessionOutput struct{}

// OpenDirectSessionInput opens a direct-play session for a file.
type OpenDirectSessionInput struct {
	Body struct {
		FileID string `json:"file_id" doc:"Media file ULID"`
	}
}

// OpenDirectSessionOutput returns the created session.
type OpenDirectSessionOutput struct {
	Body DirectSessionInfo
}

// DirectSessionInput identifies one direct-play session.
type DirectSessionInput struct {
	SessionID string `path:"sessionID" doc:"Direct play session UUID"`
}

// DirectSessionOutput is empty.
type DirectSessionOutput struct{}

// Register registers the session routes with the API.
func (h *SessionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSessions",
		Method:      "GET",
		Path:        "/api/v1/sessions",
		Summary:     "List live playback sessions",
		Tags:        []string{"Sessions"},
	}, h.ListSessions)

	huma.Register(api, huma.Operation{
		OperationID: "stopHLSSession",
		Method:      "DELETE",
		Path:        "/api/v1/sessions/hls/{sessionID}",
		Summary:     "Stop an HLS session",
		Description: "Stops the packaging pipeline and removes the session's playlist and segments.",
		Tags:        []string{"Sessions"},
	}, h.StopHLSSession)

	huma.Register(api, huma.Operation{
		OperationID: "openDirectSession",
		Method:      "POST",
		Path:        "/api/v1/sessions/direct",
		Summary:     "Open a direct play session",
		Tags:        []string{"Sessions"},
	}, h.OpenDirectSession)

	huma.Register(api, huma.Operation{
		OperationID: "heartbeatDirectSession",
		Method:      "POST",
		Path:        "/api/v1/sessions/direct/{sessionID}/heartbeat",
		Summary:     "Heartbeat a direct play session",
		Tags:        []string{"Sessions"},
	}, h.HeartbeatDirectSession)

	huma.Register(api, huma.Operation{
		OperationID: "closeDirectSession",
		Method:      "DELETE",
		Path:        "/api/v1/sessions/direct/{sessionID}",
		Summary:     "Close a direct play session",
		Tags:        []string{"Sessions"},
	}, h.CloseDirectSession)
}

// ListSessions returns all live HLS and direct-play sessions.
func (h *SessionsHandler) ListSessions(_ context.Context, _ *ListSessionsInput) (*ListSessionsOutput, error) {
	out := &ListSessionsOutput{}
	out.Body.HLS = make([]HLSSessionInfo, 0)
	out.Body.Direct = make([]DirectSessionInfo, 0)

	for _, s := range h.hls.Sessions() {
		out.Body.HLS = append(out.Body.HLS, HLSSessionInfo{
			ID:         s.ID.String(),
			FileID:     s.FileID.String(),
			UserID:     s.UserID,
			Strategy:   s.Strategy,
			Started:    s.Started,
			LastAccess: s.LastAccess(),
		})
	}
	for _, s := range h.direct.Sessions() {
		out.Body.Direct = append(out.Body.Direct, DirectSessionInfo{
			ID:            s.ID.String(),
			FileID:        s.FileID.String(),
			UserID:        s.UserID,
			Started:       s.Started,
			LastHeartbeat: s.LastHeartbeat(),
		})
	}
	return out, nil
}

// StopHLSSession tears down one HLS session.
func (h *SessionsHandler) StopHLSSession(_ context.Context, input *StopHLSSessionInput) (*StopHLSSessionOutput, error) {
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid session ID", err)
	}
	if err := h.hls.Stop(sessionID); err != nil {
		return nil, humaError(err)
	}
	return &StopHLSSessionOutput{}, nil
}

// OpenDirectSession registers a direct-play viewer for a file.
func (h *SessionsHandler) OpenDirectSession(ctx context.Context, input *OpenDirectSessionInput) (*OpenDirectSessionOutput, error) {
	userID := middleware.UserFromContext(ctx)
	if userID == "" {
		return nil, humaError(streaming.ErrUnauthorized)
	}

	fileID, err := models.ParseULID(input.Body.FileID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid file ID", err)
	}
	if _, err := h.library.GetFile(ctx, fileID); err != nil {
		return nil, humaError(err)
	}

	sess := h.direct.Open(fileID, userID)
	return &OpenDirectSessionOutput{
		Body: DirectSessionInfo{
			ID:            sess.ID.String(),
			FileID:        sess.FileID.String(),
			UserID:        sess.UserID,
			Started:       sess.Started,
			LastHeartbeat: sess.LastHeartbeat(),
		},
	}, nil
}

// HeartbeatDirectSession refreshes a direct-play session's liveness.
func (h *SessionsHandler) HeartbeatDirectSession(_ context.Context, input *DirectSessionInput) (*DirectSessionOutput, error) {
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid session ID", err)
	}
	if err := h.direct.Heartbeat(sessionID); err != nil {
		return nil, humaError(err)
	}
	return &DirectSessionOutput{}, nil
}

// CloseDirectSession removes a direct-play session.
func (h *SessionsHandler) CloseDirectSession(_ context.Context, input *DirectSessionInput) (*DirectSessionOutput, error) {
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid session ID", err)
	}
	if err := h.direct.Close(sessionID); err != nil {
		return nil, humaError(err)
	}
	return &DirectSessionOutput{}, nil
}
