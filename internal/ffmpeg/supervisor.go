package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// SupervisorConfig describes one supervised pipeline run.
type SupervisorConfig struct {
	// Binary and Args form the full command line.
	Binary string
	Args   []string
	// OutputPath is the file the pipeline writes. It is deleted whenever
	// the run ends in anything other than normal completion, so failed or
	// canceled runs never leave partial output behind. Empty disables
	// cleanup (pipe output).
	OutputPath string
	// OutputDir is an optional directory deleted on non-clean exit
	// (segmented outputs). Empty disables cleanup.
	OutputDir string
	// GracePeriod is the window between the graceful stop signal and
	// SIGKILL.
	GracePeriod time.Duration
	// TotalDuration is the source media duration for progress reporting;
	// zero lets the tracker learn it from the log stream.
	TotalDuration time.Duration

	Logger *slog.Logger
}

// SupervisorCallbacks receive pipeline lifecycle events. All callbacks are
// invoked from the supervisor's goroutines; keep them fast or dispatch.
type SupervisorCallbacks struct {
	// OnProgress receives monotonically increasing fractions in [0, 0.99].
	OnProgress func(fraction float64)
	// OnComplete fires exactly once after a clean exit (status 0).
	OnComplete func()
	// OnError fires exactly once when the pipeline exits non-zero or
	// cannot be waited on. Requested stops do not report an error.
	OnError func(err error)
}

// Supervisor runs one pipeline subprocess to completion: it merges the
// process's output into a bounded line stream for progress tracking and
// error tails, enforces two-phase shutdown, and guarantees partial output
// cleanup on any non-clean exit.
type Supervisor struct {
	cfg SupervisorConfig
	cb  SupervisorCallbacks

	tracker *ProgressTracker
	tail    *lineTail

	mu       sync.Mutex
	cmd      *exec.Cmd
	monitor  *ProcessMonitor
	stopping bool
	started  bool

	done chan struct{}
}

// NewSupervisor creates a supervisor for one pipeline run.
func NewSupervisor(cfg SupervisorConfig, cb SupervisorCallbacks) *Supervisor {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Supervisor{
		cfg:     cfg,
		cb:      cb,
		tracker: NewProgressTracker(cfg.TotalDuration),
		tail:    newLineTail(stderrTailLines),
		done:    make(chan struct{}),
	}
}

// Start launches the subprocess. A start failure is returned synchronously;
// everything after a successful start is reported through callbacks.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("supervisor already started")
	}

	cmd := exec.Command(s.cfg.Binary, s.cfg.Args...)

	// Merge stdout and stderr into one readable stream; ffmpeg logs and
	// progress both arrive on stderr, but stand-ins and some muxers use
	// stdout.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return fmt.Errorf("starting pipeline: %w", err)
	}

	s.cmd = cmd
	s.started = true

	if monitor, err := NewProcessMonitor(int32(cmd.Process.Pid)); err == nil {
		s.monitor = monitor
		monitor.Start()
	}

	s.cfg.Logger.Debug("pipeline started",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("binary", s.cfg.Binary),
	)

	go s.consume(pr)
	go s.wait(pw)

	return nil
}

// consume reads merged process output line by line, feeding the progress
// tracker and the error tail. Lines are bounded so the buffer cannot grow
// without limit.
func (s *Supervisor) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLogLineBytes)
	scanner.Split(scanLogLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.tail.Append(line)
		if frac, ok := s.tracker.ObserveLine(line); ok && s.cb.OnProgress != nil {
			s.cb.OnProgress(frac)
		}
	}
	// If the scanner gives up (oversized token, read error), keep draining
	// so the process never blocks on a full pipe and wait can reap it.
	_, _ = io.Copy(io.Discard, r)
}

// wait reaps the process and dispatches the terminal callback.
func (s *Supervisor) wait(pw *io.PipeWriter) {
	err := s.cmd.Wait()
	pw.Close()

	s.mu.Lock()
	stopping := s.stopping
	monitor := s.monitor
	s.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	close(s.done)

	switch {
	case err == nil:
		// Completed normally; output is whole even if a stop raced the
		// final write.
		s.cfg.Logger.Debug("pipeline completed", slog.String("output", s.cfg.OutputPath))
		if s.cb.OnComplete != nil {
			s.cb.OnComplete()
		}
	case stopping:
		s.cfg.Logger.Debug("pipeline stopped on request")
		s.cleanup()
	default:
		s.cleanup()
		failure := fmt.Errorf("pipeline exited: %w (output tail: %s)", err, s.tail.Last(5))
		s.cfg.Logger.Warn("pipeline failed", slog.String("error", failure.Error()))
		if s.cb.OnError != nil {
			s.cb.OnError(failure)
		}
	}
}

// cleanup removes partial output after a non-clean exit.
func (s *Supervisor) cleanup() {
	if s.cfg.OutputPath != "" {
		if err := os.Remove(s.cfg.OutputPath); err != nil && !os.IsNotExist(err) {
			s.cfg.Logger.Warn("removing partial output",
				slog.String("path", s.cfg.OutputPath),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.cfg.OutputDir != "" {
		if err := os.RemoveAll(s.cfg.OutputDir); err != nil {
			s.cfg.Logger.Warn("removing partial output dir",
				slog.String("path", s.cfg.OutputDir),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Stop terminates the pipeline in two phases: a graceful interrupt, then
// SIGKILL after the grace period. Blocks until the process is reaped.
// Safe to call concurrently and after exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	alreadyStopping := s.stopping
	s.stopping = true
	cmd := s.cmd
	s.mu.Unlock()

	if alreadyStopping {
		<-s.done
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	// Phase one: ffmpeg treats an interrupt as "finish writing and quit".
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		<-s.done
		return
	}

	select {
	case <-s.done:
	case <-time.After(s.cfg.GracePeriod):
		s.cfg.Logger.Warn("pipeline ignored graceful stop, killing",
			slog.Int("pid", cmd.Process.Pid),
		)
		_ = cmd.Process.Kill()
		<-s.done
	}
}

// Done returns a channel closed when the process has been reaped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Progress returns the current completion fraction.
func (s *Supervisor) Progress() float64 {
	return s.tracker.Fraction()
}

// Stats returns resource usage for the running process, if available.
func (s *Supervisor) Stats() ProcessStats {
	s.mu.Lock()
	monitor := s.monitor
	s.mu.Unlock()
	if monitor == nil {
		return ProcessStats{}
	}
	return monitor.Stats()
}

// PID returns the subprocess PID, or 0 before start.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}
