package streaming

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vodarr/vodarr/internal/ffmpeg"
)

// Process is a handle on a running pipeline subprocess. Satisfied by
// *ffmpeg.Supervisor.
type Process interface {
	// Stop terminates the process with graceful-then-kill semantics and
	// blocks until it is reaped.
	Stop()
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Progress returns the completion fraction.
	Progress() float64
	// Stats returns resource usage of the process.
	Stats() ffmpeg.ProcessStats
}

// LaunchSpec describes one pipeline to run.
type LaunchSpec struct {
	// Args is the full ffmpeg argument list (without the binary).
	Args []string
	// OutputPath / OutputDir are cleaned up on non-clean exit.
	OutputPath string
	OutputDir  string
	// TotalDuration drives progress fractions; zero means unknown.
	TotalDuration time.Duration
}

// Launcher starts pipeline subprocesses. The indirection keeps the
// session and job managers testable without spawning processes.
type Launcher interface {
	Launch(spec LaunchSpec, cb ffmpeg.SupervisorCallbacks) (Process, error)
}

// pipelineLauncher is the production Launcher backed by the ffmpeg
// supervisor.
type pipelineLauncher struct {
	binary string
	grace  time.Duration
	logger *slog.Logger
}

// Compile-time interface check.
var _ Launcher = (*pipelineLauncher)(nil)

// NewPipelineLauncher creates a Launcher that runs the given ffmpeg
// binary with the configured shutdown grace period.
func NewPipelineLauncher(binary string, grace time.Duration, logger *slog.Logger) Launcher {
	return &pipelineLauncher{
		binary: binary,
		grace:  grace,
		logger: logger,
	}
}

func (l *pipelineLauncher) Launch(spec LaunchSpec, cb ffmpeg.SupervisorCallbacks) (Process, error) {
	sup := ffmpeg.NewSupervisor(ffmpeg.SupervisorConfig{
		Binary:        l.binary,
		Args:          spec.Args,
		OutputPath:    spec.OutputPath,
		OutputDir:     spec.OutputDir,
		GracePeriod:   l.grace,
		TotalDuration: spec.TotalDuration,
		Logger:        l.logger,
	}, cb)

	if err := sup.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPipelineStartFailed, err)
	}
	return sup, nil
}
