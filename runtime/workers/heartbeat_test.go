package workers

import (
	"chatchat/observability"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

type fixedStats struct{ sessions, rooms int }

func (f fixedStats) Stats() (int, int) { return f.sessions, f.rooms }

func TestHeartbeatWorker_Beat(t *testing.T) {
	req := require.New(t)
	monitoring := observability.NewMonitoringManager()
	worker := NewHeartbeatWorker(logs.GetLoggerFromLevel(slog.LevelDebug), fixedStats{sessions: 4, rooms: 2}, monitoring, time.Second)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	stats := worker.Beat(p)

	req.Equal(4, stats.Sessions)
	req.Equal(2, stats.Rooms)
	req.Equal(int32(os.Getpid()), stats.PID)
	req.Equal(stats, monitoring.GetLatest())
}

func TestHeartbeatWorker_Run_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	monitoring := observability.NewMonitoringManager()
	worker := NewHeartbeatWorker(logs.GetLoggerFromLevel(slog.LevelDebug), fixedStats{sessions: 1}, monitoring, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := worker.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
	req.Equal(1, monitoring.GetLatest().Sessions)
}
