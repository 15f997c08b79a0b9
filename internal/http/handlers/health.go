package handlers

import (
	"context"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"gorm.io/gorm"

	"github.com/vodarr/vodarr/internal/ffmpeg"
	"github.com/vodarr/vodarr/internal/streaming"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	db        *gorm.DB
	detector  *ffmpeg.BinaryDetector
	jobs      *streaming.JobManager
	hls       *streaming.HLSManager
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithDB sets the database connection for health checks.
func (h *HealthHandler) WithDB(db *gorm.DB) *HealthHandler {
	h.db = db
	return h
}

// WithBinaryDetector sets the ffmpeg detector for pipeline health checks.
func (h *HealthHandler) WithBinaryDetector(d *ffmpeg.BinaryDetector) *HealthHandler {
	h.detector = d
	return h
}

// WithManagers sets the session and job managers for activity reporting.
func (h *HealthHandler) WithManagers(jobs *streaming.JobManager, hls *streaming.HLSManager) *HealthHandler {
	h.jobs = jobs
	h.hls = hls
	return h
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	CPU           CPUInfo           `json:"cpu"`
	Memory        MemoryInfo        `json:"memory"`
	FFmpeg        FFmpegHealth      `json:"ffmpeg"`
	Activity      ActivityInfo      `json:"activity"`
	Checks        map[string]string `json:"checks"`
}

// CPUInfo holds load information.
type CPUInfo struct {
	Cores    int     `json:"cores"`
	Load1Min float64 `json:"load_1min"`
}

// MemoryInfo holds memory usage information.
type MemoryInfo struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// FFmpegHealth describes the detected pipeline binaries.
type FFmpegHealth struct {
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
	FFprobePath string `json:"ffprobe_path,omitempty"`
}

// ActivityInfo summarizes live streaming work.
type ActivityInfo struct {
	RunningTranscodes int `json:"running_transcodes"`
	HLSSessions       int `json:"hls_sessions"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics and pipeline availability",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(ctx context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	checks := map[string]string{
		"database": h.checkDatabase(ctx),
	}

	ffmpegHealth := h.checkFFmpeg(ctx)
	if ffmpegHealth.Available {
		checks["ffmpeg"] = "ok"
	} else {
		checks["ffmpeg"] = "unavailable"
	}

	status := "healthy"
	for _, v := range checks {
		if v != "ok" {
			status = "degraded"
			break
		}
	}

	activity := ActivityInfo{}
	if h.jobs != nil {
		activity.RunningTranscodes = h.jobs.RunningCount()
	}
	if h.hls != nil {
		activity.HLSSessions = len(h.hls.Sessions())
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:        status,
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPU:           h.cpuInfo(),
			Memory:        h.memoryInfo(),
			FFmpeg:        ffmpegHealth,
			Activity:      activity,
			Checks:        checks,
		},
	}, nil
}

func (h *HealthHandler) cpuInfo() CPUInfo {
	info := CPUInfo{Cores: runtime.NumCPU()}
	if avg, err := load.Avg(); err == nil {
		info.Load1Min = avg.Load1
	}
	return info
}

func (h *HealthHandler) memoryInfo() MemoryInfo {
	info := MemoryInfo{}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalBytes = vm.Total
		info.UsedBytes = vm.Used
		info.UsedPercent = vm.UsedPercent
	}
	return info
}

func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return "error"
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "error"
	}
	return "ok"
}

func (h *HealthHandler) checkFFmpeg(ctx context.Context) FFmpegHealth {
	if h.detector == nil {
		return FFmpegHealth{}
	}
	info, err := h.detector.Detect(ctx)
	if err != nil || info == nil {
		return FFmpegHealth{}
	}
	return FFmpegHealth{
		Available:   true,
		Version:     info.Version,
		FFmpegPath:  info.FFmpegPath,
		FFprobePath: info.FFprobePath,
	}
}
