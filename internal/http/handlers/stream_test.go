package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/http/middleware"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/service"
	"github.com/vodarr/vodarr/internal/streaming"
)

// newStreamTestServer wires a stream handler over stub pipelines and one
// registered hevc/mkv file, which every HLS strategy accepts.
func newStreamTestServer(t *testing.T) (*chi.Mux, *models.MediaFile) {
	t.Helper()

	db := setupTestDB(t)
	files := repository.NewMediaFileRepository(db)
	library := service.NewLibraryService(files, testLogger())
	classifier := streaming.NewClassifier(&stubProber{}, files, testLogger())

	cfg := config.StreamingConfig{
		SessionIdleTimeout:  time.Minute,
		PlaylistWaitTimeout: time.Second,
		ShutdownGrace:       time.Second,
		HLSSegmentSeconds:   4,
	}
	hls := streaming.NewHLSManager(&stubLauncher{}, t.TempDir(), cfg, config.DefaultPresets()["720p"], testLogger())
	t.Cleanup(hls.StopAll)

	router := streaming.NewRouter(classifier, hls, testLogger())
	handler := NewStreamHandler(library, router, nil, testLogger())

	file := &models.MediaFile{
		Path:       writeSourceFile(t, "movie.mkv", 2048),
		Size:       2048,
		Container:  "mkv",
		VideoCodec: "hevc",
		AudioCodec: "aac",
		Width:      1920,
		Height:     1080,
		DurationMs: 60000,
	}
	require.NoError(t, files.Create(context.Background(), file))

	mux := chi.NewRouter()
	mux.Use(middleware.ResolveUser)
	handler.RegisterRoutes(mux)
	return mux, file
}

func TestStreamHandler_HLSRedirectsByDefault(t *testing.T) {
	mux, file := newStreamTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/"+file.ID.String()+"?strategy=HLS_COPY", nil)
	req.Header.Set("X-User-ID", "alice")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.Contains(t, loc, "/hls/")
	assert.Contains(t, loc, "playlist.m3u8")
	assert.Contains(t, loc, "user=alice")
}

func TestStreamHandler_HLSAnswersJSONWhenAsked(t *testing.T) {
	mux, file := newStreamTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/"+file.ID.String()+"?strategy=HLS_COPY", nil)
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var body struct {
		SessionID   string `json:"session_id"`
		Strategy    string `json:"strategy"`
		PlaylistURL string `json:"playlist_url"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, "HLS_COPY", body.Strategy)
	assert.Contains(t, body.PlaylistURL, "/hls/"+body.SessionID+"/playlist.m3u8")
	assert.Contains(t, body.PlaylistURL, "user=alice")
}

func TestStreamHandler_HLSWithoutUserIsUnauthorized(t *testing.T) {
	mux, file := newStreamTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stream/"+file.ID.String()+"?strategy=HLS_COPY", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
