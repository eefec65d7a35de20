package observability

import (
	"log/slog"
	"os"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestMonitoringManager_SampleProcess(t *testing.T) {
	req := require.New(t)
	mm, err := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	req.NoError(mm.SampleProcess())

	stats := mm.GetLatest()
	req.Equal(int32(os.Getpid()), stats.Process.PID)
	req.NotZero(stats.Process.RSSBytes)
	req.Positive(stats.Process.Goroutines)
	req.False(stats.Process.SampledAt.IsZero())
}

func TestMonitoringManager_RecordChannel(t *testing.T) {
	req := require.New(t)
	mm, err := NewMonitoringManager(logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	mm.RecordChannel(ChannelFill{Name: "journal", Capacity: 10, Length: 3})
	mm.RecordChannel(ChannelFill{Name: "archive", Capacity: 4, Length: 0})
	mm.RecordChannel(ChannelFill{Name: "journal", Capacity: 10, Length: 7})

	req.Equal([]ChannelFill{
		{Name: "archive", Capacity: 4, Length: 0},
		{Name: "journal", Capacity: 10, Length: 7},
	}, mm.GetLatest().Channels)
}
