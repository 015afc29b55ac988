package probes

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"weather-service/internal/observability/health"
)

// SystemName is the aggregation key of the system probe.
const SystemName = "system"

// Resource limits of the system probe.
const (
	MemoryThreshold        = 0.90
	DiskThreshold          = 0.95
	GoroutineWarnThreshold = 1000
	GoroutineDownThreshold = 2000
)

// MemoryUsage is heap usage against the memory the process may use.
type MemoryUsage struct {
	Used  uint64
	Limit uint64
}

// DiskUsage is the size of the filesystem holding the temp directory.
type DiskUsage struct {
	Path  string
	Total uint64
	Free  uint64
}

// SystemProbe checks heap, storage and goroutine count of the process.
type SystemProbe struct {
	memory     func() (MemoryUsage, error)
	disk       func() (DiskUsage, error)
	goroutines func() int
	now        func() time.Time
}

// NewSystemProbe returns a probe reading the Go runtime and the temp directory filesystem.
func NewSystemProbe() *SystemProbe {
	return &SystemProbe{
		memory:     readMemory,
		disk:       func() (DiskUsage, error) { return readDisk(os.TempDir()) },
		goroutines: runtime.NumGoroutine,
		now:        time.Now,
	}
}

// Name implements health.Probe.
func (p *SystemProbe) Name() string { return SystemName }

// Check implements health.Probe.
func (p *SystemProbe) Check(_ context.Context) (st health.Status) {
	start := p.now()
	defer recoverInto(&st, SystemName, start, p.now)

	details := map[string]any{}
	var issues []string
	healthy := true

	mem, err := p.memory()
	if err != nil {
		return p.failed(start, fmt.Errorf("read memory: %w", err))
	}
	memRatio := ratio(mem.Used, mem.Limit)
	details["memory_used_bytes"] = mem.Used
	details["memory_max_bytes"] = mem.Limit
	details["memory_usage_ratio"] = memRatio
	if memRatio > MemoryThreshold {
		healthy = false
		issues = append(issues, fmt.Sprintf("High memory usage: %.1f%%", memRatio*100))
	}

	disk, err := p.disk()
	if err != nil {
		return p.failed(start, fmt.Errorf("read disk usage of %s: %w", disk.Path, err))
	}
	diskRatio := ratio(disk.Total-disk.Free, disk.Total)
	details["disk_total_bytes"] = disk.Total
	details["disk_free_bytes"] = disk.Free
	details["disk_usage_ratio"] = diskRatio
	if diskRatio > DiskThreshold {
		healthy = false
		issues = append(issues, fmt.Sprintf("High disk usage: %.1f%%", diskRatio*100))
	}

	goroutines := p.goroutines()
	details["goroutine_count"] = goroutines
	details["available_processors"] = runtime.NumCPU()
	if goroutines > GoroutineWarnThreshold {
		issues = append(issues, fmt.Sprintf("High goroutine count: %d", goroutines))
		if goroutines > GoroutineDownThreshold {
			healthy = false
		}
	}

	elapsed := p.now().Sub(start)
	details["response_time_ms"] = elapsed.Milliseconds()

	message := strings.Join(issues, "; ")
	if !healthy {
		return health.Down(SystemName, message).WithResponseTime(elapsed).WithDetails(details)
	}
	return health.Up(SystemName, message).WithResponseTime(elapsed).WithDetails(details)
}

func (p *SystemProbe) failed(start time.Time, err error) health.Status {
	elapsed := p.now().Sub(start)
	return health.Down(SystemName, "System check failed: "+err.Error()).
		WithResponseTime(elapsed).
		WithDetails(map[string]any{
			"error":            err.Error(),
			"response_time_ms": elapsed.Milliseconds(),
		})
}

func ratio(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

// readMemory compares the live heap with the soft memory limit, or with the
// heap reserved from the OS when no limit is set.
func readMemory() (MemoryUsage, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	limit := ms.HeapSys
	if l := debug.SetMemoryLimit(-1); l > 0 && l < math.MaxInt64 {
		limit = uint64(l)
	}
	return MemoryUsage{Used: ms.HeapAlloc, Limit: limit}, nil
}

func readDisk(path string) (DiskUsage, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return DiskUsage{Path: path}, err
	}
	bsize := uint64(fs.Bsize) //nolint:gosec // block size is never negative
	return DiskUsage{
		Path:  path,
		Total: uint64(fs.Blocks) * bsize,
		Free:  uint64(fs.Bfree) * bsize,
	}, nil
}
