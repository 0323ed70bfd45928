package models

import "time"

// ServiceStatus is the last observed health of a downstream service.
type ServiceStatus struct {
	Service   string    `json:"service"` // "bot", "scheduler", "scraper"
	URL       string    `json:"url"`
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
	LatencyMs int       `json:"latencyMs"`
	CheckedAt time.Time `json:"checkedAt"`
}

// SystemStats is a snapshot of host resource usage.
type SystemStats struct {
	CPUPercent  float64   `json:"cpuPercent"`
	MemPercent  float64   `json:"memPercent"`
	MemUsedMB   uint64    `json:"memUsedMb"`
	MemTotalMB  uint64    `json:"memTotalMb"`
	DiskPercent float64   `json:"diskPercent"`
	CollectedAt time.Time `json:"collectedAt"`
}
