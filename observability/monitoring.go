package observability

import (
	"runtime"
	"sync"
	"time"
)

// MonitoringStats is the latest snapshot sampled by the heartbeat.
type MonitoringStats struct {
	// --- PROCESS ---
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`

	// --- RUNTIME ---
	AllocMemMb uint64 `json:"alloc_mem_mb"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`

	// --- CHAT ---
	Sessions int `json:"sessions"`
	Rooms    int `json:"rooms"`

	SampledAt time.Time `json:"sampled_at"`
}

// MonitoringManager keeps the last snapshot and mirrors it to Prometheus gauges.
type MonitoringManager struct {
	mu          sync.RWMutex
	latestStats MonitoringStats
}

func NewMonitoringManager() *MonitoringManager {
	return &MonitoringManager{}
}

// Record completes stats with Go runtime figures, stores it and updates the gauges.
func (mm *MonitoringManager) Record(stats MonitoringStats) MonitoringStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC
	stats.Goroutines = runtime.NumGoroutine()
	if stats.SampledAt.IsZero() {
		stats.SampledAt = time.Now().UTC()
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.mu.Unlock()

	ActiveSessions.Set(float64(stats.Sessions))
	ActiveRooms.Set(float64(stats.Rooms))
	ProcessRSS.Set(float64(stats.RSSBytes))
	ProcessCPU.Set(stats.CPUPercent)
	return stats
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}
