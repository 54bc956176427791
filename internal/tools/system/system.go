// Package system implements the system_status tool contract: a
// CPU/RAM/disk/uptime snapshot plus the top-5 processes by CPU usage,
// cached for 30 seconds so repeated calls within one agent turn don't
// re-sample the host on every iteration.
package system

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"hearth/internal/tools"
)

// CacheTTL is how long a snapshot is reused before resampling the host.
const CacheTTL = 30 * time.Second

type snapshot struct {
	text      string
	sampledAt time.Time
}

// Sampler collects a host snapshot, caching the formatted result for
// CacheTTL. The zero value is not usable; construct with New.
type Sampler struct {
	mu    sync.Mutex
	cache *snapshot
	now   func() time.Time
}

// New returns a Sampler ready to use.
func New() *Sampler {
	return &Sampler{now: time.Now}
}

// Definition returns the registry Definition for system_status.
func (s *Sampler) Definition() tools.Definition {
	return tools.Definition{
		Name:        "system_status",
		Description: "Returns CPU, memory, disk and uptime for the host, plus the top 5 processes by CPU usage.",
		InputSchema: tools.Schema{Type: "object", Properties: map[string]tools.Property{}},
		Timeout:     10 * time.Second,
		Handler:     s.Execute,
	}
}

// Execute returns the cached snapshot if one is younger than CacheTTL, or
// samples a fresh one.
func (s *Sampler) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	s.mu.Lock()
	if s.cache != nil && s.now().Sub(s.cache.sampledAt) < CacheTTL {
		text := s.cache.text
		s.mu.Unlock()
		return text, nil
	}
	s.mu.Unlock()

	text, err := s.sample(ctx)
	if err != nil {
		return "", fmt.Errorf("system_status: %w", err)
	}

	s.mu.Lock()
	s.cache = &snapshot{text: text, sampledAt: s.now()}
	s.mu.Unlock()

	return text, nil
}

func (s *Sampler) sample(ctx context.Context) (string, error) {
	var sb strings.Builder

	percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err == nil && len(percents) > 0 {
		fmt.Fprintf(&sb, "cpu_percent: %.1f\n", percents[0])
	} else {
		sb.WriteString("cpu_percent: unavailable\n")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fmt.Fprintf(&sb, "memory_used_percent: %.1f\nmemory_total_mb: %d\n", vm.UsedPercent, vm.Total/1024/1024)
	} else {
		sb.WriteString("memory: unavailable\n")
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		fmt.Fprintf(&sb, "disk_used_percent: %.1f\ndisk_total_gb: %.1f\n", du.UsedPercent, float64(du.Total)/1e9)
	} else {
		sb.WriteString("disk: unavailable\n")
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		fmt.Fprintf(&sb, "uptime: %s\n", (time.Duration(uptime) * time.Second).String())
	} else {
		sb.WriteString("uptime: unavailable\n")
	}

	top, err := topProcessesByCPU(ctx, 5)
	if err != nil {
		sb.WriteString("top_processes: unavailable\n")
	} else {
		sb.WriteString("top_processes_by_cpu:\n")
		for _, p := range top {
			fmt.Fprintf(&sb, "  %s (pid %d): %.1f%%\n", p.name, p.pid, p.cpuPercent)
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

type procUsage struct {
	pid        int32
	name       string
	cpuPercent float64
}

func topProcessesByCPU(ctx context.Context, n int) ([]procUsage, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	usages := make([]procUsage, 0, len(procs))
	for _, p := range procs {
		pct, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			name = "unknown"
		}
		usages = append(usages, procUsage{pid: p.Pid, name: name, cpuPercent: pct})
	}

	sort.Slice(usages, func(i, j int) bool { return usages[i].cpuPercent > usages[j].cpuPercent })
	if len(usages) > n {
		usages = usages[:n]
	}
	return usages, nil
}
