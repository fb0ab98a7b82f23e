package monitoring

import (
	"fmt"
	"time"

	"github.com/isdelr/sharehub-be/internal/services"
	ws "github.com/isdelr/sharehub-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatUpdater periodically samples host resources and marketplace totals
// and pushes them to connected clients.
type StatUpdater struct {
	itemSvc      services.ItemServiceProvider
	eventSvc     services.EventServiceProvider
	hub          *ws.Hub
	ticker       *time.Ticker
	done         chan bool
	lastCPUAlert time.Time
}

// Stats is the payload broadcast on every tick.
type Stats struct {
	CPUPercent float64        `json:"cpuPercent"`
	MemPercent float64        `json:"memPercent"`
	Items      map[string]int `json:"items"` // count per status
	SampledAt  time.Time      `json:"sampledAt"`
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(itemSvc services.ItemServiceProvider, eventSvc services.EventServiceProvider, hub *ws.Hub) *StatUpdater {
	return &StatUpdater{
		itemSvc:  itemSvc,
		eventSvc: eventSvc,
		hub:      hub,
		done:     make(chan bool),
	}
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	su.ticker = time.NewTicker(30 * time.Second)
	defer su.ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-su.ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	su.done <- true
}

func (su *StatUpdater) update() {
	stats := Stats{SampledAt: time.Now().UTC(), Items: map[string]int{}}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("StatUpdater: failed to sample CPU")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemPercent = vm.UsedPercent
	} else {
		log.Warn().Err(err).Msg("StatUpdater: failed to sample memory")
	}

	counts, err := su.itemSvc.CountByStatus()
	if err != nil {
		log.Error().Err(err).Msg("StatUpdater: failed to count items")
	} else {
		for status, n := range counts {
			stats.Items[string(status)] = n
		}
	}

	su.hub.Broadcast <- ws.NewItemMessage("stats.update", stats)
	su.checkAndAlertForHighCPU(stats.CPUPercent)
}

func (su *StatUpdater) checkAndAlertForHighCPU(cpuPercent float64) {
	const highCPUThreshold = 90.0
	const alertCooldown = 15 * time.Minute

	if cpuPercent <= highCPUThreshold {
		return
	}
	if time.Since(su.lastCPUAlert) < alertCooldown {
		return
	}

	msg := fmt.Sprintf("High CPU usage (%.1f%%) on the ShareHub host.", cpuPercent)
	if err := su.eventSvc.CreateEvent("system.alert.cpu", "warn", msg, nil); err != nil {
		log.Warn().Err(err).Msg("StatUpdater: failed to record CPU alert")
	}
	su.lastCPUAlert = time.Now()
}
