package monitoring

import (
	"fmt"
	"time"

	"github.com/isdelr/sharehub-be/internal/services"
	ws "github.com/isdelr/sharehub-be/internal/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically moves items past their expiry out of circulation.
// Food listings carry an expiresAt; once it passes they should stop
// showing up as available.
type Sweeper struct {
	itemSvc  services.ItemServiceProvider
	eventSvc services.EventServiceProvider
	hub      *ws.Hub
	cron     *cron.Cron
}

// NewSweeper creates a new Sweeper.
func NewSweeper(itemSvc services.ItemServiceProvider, eventSvc services.EventServiceProvider, hub *ws.Hub) *Sweeper {
	return &Sweeper{
		itemSvc:  itemSvc,
		eventSvc: eventSvc,
		hub:      hub,
		cron:     cron.New(),
	}
}

// Start schedules the sweep and runs one immediately to catch anything
// that expired while the service was down.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	log.Info().Msg("Starting background expiry sweeper...")
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Stopped background expiry sweeper.")
}

func (s *Sweeper) sweep() {
	expired, err := s.itemSvc.MarkExpired(time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("Sweeper: failed to expire items")
		return
	}

	for _, item := range expired {
		msg := fmt.Sprintf("'%s' expired and was removed from circulation", item.Title)
		if err := s.eventSvc.CreateEvent("item.expired", "info", msg, &item.ID); err != nil {
			log.Warn().Err(err).Str("item_id", item.ID).Msg("Sweeper: failed to record expiry event")
		}
		s.hub.Broadcast <- ws.NewItemMessage("item.expired", item)
	}

	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("Sweeper: expired items")
	}
}
