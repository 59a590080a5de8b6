package workers

import (
	"chatchat/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsProvider reports the live session and room counts.
type StatsProvider interface {
	Stats() (sessions int, rooms int)
}

type HeartbeatWorker struct {
	log        *slog.Logger
	registry   StatsProvider
	monitoring *observability.MonitoringManager
	interval   time.Duration
}

func NewHeartbeatWorker(
	log *slog.Logger,
	registry StatsProvider,
	monitoring *observability.MonitoringManager,
	interval time.Duration,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:        log,
		registry:   registry,
		monitoring: monitoring,
		interval:   interval,
	}
}

// Run samples process health (CPU, RAM, Status) and chat load at every interval.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Beat(p)
		}
	}
}

// Beat takes one sample. Process stats failures are logged and the chat figures still recorded.
func (w *HeartbeatWorker) Beat(p *process.Process) observability.MonitoringStats {
	sessions, rooms := w.registry.Stats()
	stats := observability.MonitoringStats{PID: p.Pid, Sessions: sessions, Rooms: rooms}

	rss, cpu, status, err := getSelfStats(p)
	if err != nil {
		w.log.Error("Failed to collect self stats", "err", err)
	} else {
		stats.RSSBytes, stats.CPUPercent, stats.Status = rss, cpu, status
	}

	stats = w.monitoring.Record(stats)
	w.log.Debug("Heartbeat",
		"sessions", stats.Sessions,
		"rooms", stats.Rooms,
		"rss_bytes", stats.RSSBytes,
		"cpu_percent", stats.CPUPercent,
		"goroutines", stats.Goroutines)
	return stats
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
