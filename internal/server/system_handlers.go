package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves the host and process health endpoint.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	hub         *Hub
}

// NewSystemHandlers creates the system handlers. The data directory is the
// path whose disk usage is reported, so the status page watches the volume
// the databases actually live on.
func NewSystemHandlers(dataDir string, hub *Hub, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		hub:         hub,
	}
}

// HandleSystemStatus returns host resource usage and process stats.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := map[string]interface{}{
		"status":       "ok",
		"uptime_hours": time.Since(h.startupTime).Hours(),
		"cpu_percent":  cpuPercent,
		"ram_percent":  ramPercent,
		"disk_percent": h.getDiskPercent(),
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"heap_mb":      float64(memStats.HeapAlloc) / 1024 / 1024,
	}
	if h.hub != nil {
		response["ws_clients"] = h.hub.Subscribers()
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// getSystemStats calculates CPU and RAM usage percentages.
// The CPU sample interval is 100ms so the status call stays fast; the
// dashboard polls this endpoint and a one second sample would stall it.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDiskPercent reports usage of the volume holding the data directory.
func (h *SystemHandlers) getDiskPercent() float64 {
	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
		return 0
	}
	return usage.UsedPercent
}
