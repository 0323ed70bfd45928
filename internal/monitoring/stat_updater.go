package monitoring

import (
	"sync"
	"time"

	"github.com/ragpanel/ragpanel-be/internal/models"
	ws "github.com/ragpanel/ragpanel-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatUpdater periodically samples host resource usage for the admin
// dashboard and broadcasts it to connected websocket clients.
type StatUpdater struct {
	hub    *ws.Hub
	ticker *time.Ticker
	done   chan bool

	mu     sync.RWMutex
	latest models.SystemStats
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(hub *ws.Hub) *StatUpdater {
	return &StatUpdater{
		hub:  hub,
		done: make(chan bool),
	}
}

// Run starts the periodic sampling.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	su.ticker = time.NewTicker(15 * time.Second)
	defer su.ticker.Stop()

	// Run once immediately on start
	su.sample()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-su.ticker.C:
			su.sample()
		}
	}
}

// Stop halts the periodic sampling.
func (su *StatUpdater) Stop() {
	su.done <- true
}

// Latest returns the most recent stats snapshot.
func (su *StatUpdater) Latest() models.SystemStats {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.latest
}

func (su *StatUpdater) sample() {
	stats := models.SystemStats{CollectedAt: time.Now()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: Could not sample CPU usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemPercent = vm.UsedPercent
		stats.MemUsedMB = vm.Used / 1024 / 1024
		stats.MemTotalMB = vm.Total / 1024 / 1024
	} else {
		log.Warn().Err(err).Msg("StatUpdater: Could not sample memory usage")
	}

	if du, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = du.UsedPercent
	} else {
		log.Warn().Err(err).Msg("StatUpdater: Could not sample disk usage")
	}

	su.mu.Lock()
	su.latest = stats
	su.mu.Unlock()

	su.hub.Broadcast <- ws.NewMessage("system_stats", stats)
}
