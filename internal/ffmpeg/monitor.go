package ffmpeg

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats contains resource usage statistics for a pipeline process.
type ProcessStats struct {
	PID            int32     `json:"pid"`
	Running        bool      `json:"running"`
	CPUPercent     float64   `json:"cpu_percent"`
	MemoryRSSBytes uint64    `json:"memory_rss_bytes"`
	MemoryPercent  float32   `json:"memory_percent"`
	StartedAt      time.Time `json:"started_at"`
	LastUpdated    time.Time `json:"last_updated"`
}

// ProcessMonitor samples resource usage of a running pipeline process.
type ProcessMonitor struct {
	proc     *process.Process
	interval time.Duration

	mu    sync.RWMutex
	stats ProcessStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessMonitor creates a monitor for the given PID. Returns an error
// if the process does not exist.
func NewProcessMonitor(pid int32) (*ProcessMonitor, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessMonitor{
		proc:     proc,
		interval: time.Second,
		stats: ProcessStats{
			PID:       pid,
			StartedAt: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// SetInterval sets the sampling interval. Call before Start.
func (pm *ProcessMonitor) SetInterval(d time.Duration) {
	pm.interval = d
}

// Start begins sampling in the background.
func (pm *ProcessMonitor) Start() {
	pm.wg.Add(1)
	go func() {
		defer pm.wg.Done()

		ticker := time.NewTicker(pm.interval)
		defer ticker.Stop()

		pm.sample()
		for {
			select {
			case <-pm.ctx.Done():
				return
			case <-ticker.C:
				pm.sample()
			}
		}
	}()
}

// Stop stops sampling. Safe to call more than once.
func (pm *ProcessMonitor) Stop() {
	pm.cancel()
	pm.wg.Wait()
}

// Stats returns the latest sample.
func (pm *ProcessMonitor) Stats() ProcessStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.stats
}

// Alive reports whether the process still exists.
func (pm *ProcessMonitor) Alive() bool {
	running, err := pm.proc.IsRunning()
	return err == nil && running
}

func (pm *ProcessMonitor) sample() {
	now := time.Now()

	// CPUPercent measures utilization since the previous call.
	cpu, cpuErr := pm.proc.CPUPercent()
	memInfo, memErr := pm.proc.MemoryInfo()
	memPct, _ := pm.proc.MemoryPercent()
	running, _ := pm.proc.IsRunning()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.stats.Running = running
	pm.stats.LastUpdated = now
	if cpuErr == nil {
		pm.stats.CPUPercent = cpu
	}
	if memErr == nil && memInfo != nil {
		pm.stats.MemoryRSSBytes = memInfo.RSS
		pm.stats.MemoryPercent = memPct
	}
}
