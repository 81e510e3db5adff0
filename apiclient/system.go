package apiclient // import "github.com/quarterdeck-gg/console/apiclient"

import (
	"context"
	"encoding/json"

	"github.com/quarterdeck-gg/console/querycache"
)

// systemStatsPath is the backend endpoint reporting host-level metrics for
// the dashboard's system panel.
const systemStatsPath = "/system/stats"

// SystemStatsKey addresses the cached system metrics in the query cache.
var SystemStatsKey = querycache.Key{Resource: "system", Op: "stats"}

// SystemStats is the backend host's resource usage at fetch time.
type SystemStats struct {
	CPULoad       float64 `json:"cpu_load"`       // 1-minute load average
	MemUsedMiB    uint64  `json:"mem_used"`       // Memory in use, MiB
	MemTotalMiB   uint64  `json:"mem_total"`      // Total memory, MiB
	DiskUsedMiB   uint64  `json:"disk_used"`      // Disk in use, MiB
	DiskTotalMiB  uint64  `json:"disk_total"`     // Total disk, MiB
	UptimeSeconds uint64  `json:"uptime_seconds"` // Backend host uptime
}

// SystemStats fetches the backend host's current resource usage. Same error
// taxonomy as InstanceList: *TransportError for a non-200 status,
// *ShapeError for a missing or malformed body.
func (c *Client) SystemStats(ctx context.Context) (SystemStats, error) {
	url := c.baseURL + systemStatsPath

	body, err := c.get(ctx, systemStatsPath)
	if err != nil {
		return SystemStats{}, err
	}

	var stats SystemStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return SystemStats{}, &ShapeError{URL: url, Reason: err.Error()}
	}

	return stats, nil
}
