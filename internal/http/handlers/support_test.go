package handlers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/streaming"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestDB creates an isolated in-memory database with the schema
// migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.MediaFile{}, &models.TranscodeJob{}))
	return db
}

// writeSourceFile drops a stand-in media file on disk and returns its path.
func writeSourceFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

// stubProcess is an inert pipeline handle.
type stubProcess struct {
	once sync.Once
	done chan struct{}
}

func newStubProcess() *stubProcess {
	return &stubProcess{done: make(chan struct{})}
}

func (p *stubProcess) Stop()                      { p.once.Do(func() { close(p.done) }) }
func (p *stubProcess) Done() <-chan struct{}      { return p.done }
func (p *stubProcess) Progress() float64          { return 0 }
func (p *stubProcess) Stats() ffmpeg.ProcessStats { return ffmpeg.ProcessStats{} }

// stubLauncher hands out inert processes instead of spawning subprocesses.
type stubLauncher struct{}

var _ streaming.Launcher = (*stubLauncher)(nil)

func (l *stubLauncher) Launch(streaming.LaunchSpec, ffmpeg.SupervisorCallbacks) (streaming.Process, error) {
	return newStubProcess(), nil
}

// stubProber fails every probe; handler tests pre-populate file metadata.
type stubProber struct{}

var _ streaming.Prober = (*stubProber)(nil)

func (p *stubProber) Probe(context.Context, string) (*ffmpeg.ProbeResult, error) {
	return nil, os.ErrNotExist
}
