package gqlserver

import (
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/version"
)

// systemStats is the host section of the health report
type systemStats struct {
	Version              string `json:"version"`
	UptimeSeconds        int64  `json:"uptime_seconds"`
	MemoryTotalBytes     uint64 `json:"memory_total_bytes,omitempty"`
	MemoryAvailableBytes uint64 `json:"memory_available_bytes,omitempty"`
}

func collectSystemStats(started time.Time) (systemStats, error) {
	stats := systemStats{
		Version:       version.Get().Version,
		UptimeSeconds: int64(time.Since(started).Seconds()),
	}
	v, err := mem.VirtualMemory()
	if err != nil {
		return stats, errors.Wrap(err, "failed to get memory stats")
	}
	stats.MemoryTotalBytes = v.Total
	stats.MemoryAvailableBytes = v.Available
	return stats, nil
}
