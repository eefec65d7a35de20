// Package observability keeps the latest health figures of the relay
// process. Workers refresh it, the HTTP API reads it.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

type ChannelFill struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Length   int    `json:"length"`
}

type ProcessStats struct {
	PID        int32     `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	RSSBytes   uint64    `json:"rss_bytes"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	Goroutines int       `json:"goroutines"`
	SampledAt  time.Time `json:"sampled_at"`
}

type MonitoringStats struct {
	Process  ProcessStats  `json:"process"`
	Channels []ChannelFill `json:"channels"`
}

// MonitoringManager holds the last sample of every figure.
type MonitoringManager struct {
	log      *slog.Logger
	mu       sync.RWMutex
	proc     *process.Process
	process  ProcessStats
	channels map[string]ChannelFill
}

// NewMonitoringManager watches the current process.
func NewMonitoringManager(log *slog.Logger) (*MonitoringManager, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &MonitoringManager{
		log:      log,
		proc:     p,
		channels: make(map[string]ChannelFill),
	}, nil
}

// SampleProcess reads CPU and memory usage of the process.
func (mm *MonitoringManager) SampleProcess() error {
	memInfo, err := mm.proc.MemoryInfo()
	if err != nil {
		return err
	}
	cpu, err := mm.proc.CPUPercent()
	if err != nil {
		return err
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		PID:        mm.proc.Pid,
		CPUPercent: cpu,
		RSSBytes:   memInfo.RSS,
		AllocMemMb: m.Alloc / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now().UTC(),
	}

	mm.mu.Lock()
	mm.process = stats
	mm.mu.Unlock()

	mm.log.Debug("Process sampled", "cpu", stats.CPUPercent, "rss", stats.RSSBytes, "goroutines", stats.Goroutines)
	return nil
}

func (mm *MonitoringManager) RecordChannel(fill ChannelFill) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.channels[fill.Name] = fill
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	channels := make([]ChannelFill, 0, len(mm.channels))
	for _, c := range mm.channels {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })
	return MonitoringStats{Process: mm.process, Channels: channels}
}
