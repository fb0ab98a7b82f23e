package monitoring

import (
	"testing"
	"time"

	"github.com/isdelr/sharehub-be/internal/database"
	"github.com/isdelr/sharehub-be/internal/models"
	"github.com/isdelr/sharehub-be/internal/services"
	ws "github.com/isdelr/sharehub-be/internal/websocket"
)

func TestSweepExpiresStaleItems(t *testing.T) {
	db := database.NewTestDB(t)
	items := services.NewItemService(db)
	users := services.NewUserService(db)
	events := services.NewEventService(db)

	hub := ws.NewHub()
	go hub.Run()

	owner, err := users.CreateUser("Alice", "alice@example.com", "password123", "", models.Location{Lat: 52.52, Lng: 13.405})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	item := models.Item{
		Title:       "Day-old bread",
		Description: "Still good for toast",
		Category:    models.CategoryFood,
		Address:     "Bakery, Berlin",
		Location:    models.Location{Lat: 52.52, Lng: 13.405},
		Condition:   models.ConditionFair,
		IsFree:      true,
		OwnerID:     owner.ID,
		ExpiresAt:   &past,
	}
	created, err := items.CreateItem(item)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	sweeper := NewSweeper(items, events, hub)
	sweeper.sweep()

	got, err := items.GetItemByID(created.ID)
	if err != nil {
		t.Fatalf("GetItemByID: %v", err)
	}
	if got.Status != models.StatusExpired {
		t.Errorf("expected status 'expired', got %q", got.Status)
	}

	recent, err := events.GetRecentEvents(10)
	if err != nil {
		t.Fatalf("GetRecentEvents: %v", err)
	}
	var found bool
	for _, e := range recent {
		if e.Type == "item.expired" && e.ItemID != nil && *e.ItemID == created.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected an item.expired event for the swept item")
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	db := database.NewTestDB(t)
	items := services.NewItemService(db)
	events := services.NewEventService(db)

	hub := ws.NewHub()
	go hub.Run()

	sweeper := NewSweeper(items, events, hub)
	// Nothing to expire; must not error or emit events.
	sweeper.sweep()
	sweeper.sweep()

	recent, err := events.GetRecentEvents(10)
	if err != nil {
		t.Fatalf("GetRecentEvents: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no events, got %d", len(recent))
	}
}
