package streaming

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

// writeSourceFile drops a small stand-in media file on disk and returns
// its path.
func writeSourceFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mkv")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

// fakeProcess is a Process whose lifecycle the test controls.
type fakeProcess struct {
	stopOnce sync.Once
	done     chan struct{}
	stopped  bool
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{done: make(chan struct{})}
}

func (p *fakeProcess) Stop() {
	p.stopOnce.Do(func() {
		p.stopped = true
		close(p.done)
	})
}

func (p *fakeProcess) exit() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *fakeProcess) Done() <-chan struct{}      { return p.done }
func (p *fakeProcess) Progress() float64          { return 0 }
func (p *fakeProcess) Stats() ffmpeg.ProcessStats { return ffmpeg.ProcessStats{} }

// fakeLauncher records launches instead of spawning subprocesses.
type fakeLauncher struct {
	mu       sync.Mutex
	failWith error
	specs    []LaunchSpec
	cbs      []ffmpeg.SupervisorCallbacks
	procs    []*fakeProcess
}

var _ Launcher = (*fakeLauncher)(nil)

func (l *fakeLauncher) Launch(spec LaunchSpec, cb ffmpeg.SupervisorCallbacks) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return nil, l.failWith
	}
	proc := newFakeProcess()
	l.specs = append(l.specs, spec)
	l.cbs = append(l.cbs, cb)
	l.procs = append(l.procs, proc)
	return proc, nil
}

func (l *fakeLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.procs)
}

func (l *fakeLauncher) last() (LaunchSpec, ffmpeg.SupervisorCallbacks, *fakeProcess) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.procs)
	return l.specs[n-1], l.cbs[n-1], l.procs[n-1]
}

// fakeProber returns a canned probe result or error.
type fakeProber struct {
	mu     sync.Mutex
	result *ffmpeg.ProbeResult
	err    error
	calls  int
}

var _ Prober = (*fakeProber)(nil)

func (p *fakeProber) Probe(_ context.Context, _ string) (*ffmpeg.ProbeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *fakeProber) probeCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
