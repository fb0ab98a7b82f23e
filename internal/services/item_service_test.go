package services

import (
	"errors"
	"testing"
	"time"

	"github.com/isdelr/sharehub-be/internal/database"
	"github.com/isdelr/sharehub-be/internal/models"
)

func newTestServices(t *testing.T) (*ItemService, *UserService) {
	t.Helper()
	db := database.NewTestDB(t)
	return NewItemService(db), NewUserService(db)
}

func createTestUser(t *testing.T, users *UserService, name, email string) models.User {
	t.Helper()
	user, err := users.CreateUser(name, email, "password123", "1 Test St", models.Location{Lat: 52.52, Lng: 13.405})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return user
}

func testItem(ownerID string) models.Item {
	return models.Item{
		Title:       "Box of apples",
		Description: "Fresh from the garden",
		Category:    models.CategoryFood,
		Address:     "Alexanderplatz, Berlin",
		Location:    models.Location{Lat: 52.5219, Lng: 13.4132},
		Condition:   models.ConditionGood,
		IsFree:      true,
		OwnerID:     ownerID,
		Tags:        []string{"fruit", "organic"},
	}
}

func TestCreateItemDefaultsAndOwnerName(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	created, err := items.CreateItem(testItem(owner.ID))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated id")
	}
	if created.Status != models.StatusAvailable {
		t.Errorf("expected default status 'available', got %q", created.Status)
	}
	if created.OwnerName != "Alice" {
		t.Errorf("expected owner name populated, got %q", created.OwnerName)
	}
	if len(created.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(created.Tags))
	}
}

func TestCreateItemValidation(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	tests := []struct {
		name   string
		mutate func(*models.Item)
	}{
		{"missing title", func(i *models.Item) { i.Title = "" }},
		{"missing description", func(i *models.Item) { i.Description = "  " }},
		{"missing address", func(i *models.Item) { i.Address = "" }},
		{"bad category", func(i *models.Item) { i.Category = "vehicles" }},
		{"bad condition", func(i *models.Item) { i.Condition = "broken" }},
		{"lat out of range", func(i *models.Item) { i.Location.Lat = 95 }},
		{"negative price", func(i *models.Item) { i.IsFree = false; i.Price = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem(owner.ID)
			tt.mutate(&item)
			_, err := items.CreateItem(item)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCreateItemZeroesPriceWhenFree(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	item := testItem(owner.ID)
	item.IsFree = true
	item.Price = 25

	created, err := items.CreateItem(item)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if created.Price != 0 {
		t.Errorf("expected price zeroed for free item, got %v", created.Price)
	}
}

func TestCreateItemIncrementsSharedCounter(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	for i := 0; i < 3; i++ {
		if _, err := items.CreateItem(testItem(owner.ID)); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}

	got, err := users.GetUserByID(owner.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.ItemsShared != 3 {
		t.Errorf("expected itemsShared=3, got %d", got.ItemsShared)
	}
}

func TestCreateItemUnknownOwner(t *testing.T) {
	items, _ := newTestServices(t)
	_, err := items.CreateItem(testItem("no-such-user"))
	if err == nil {
		t.Fatal("expected error for unknown owner")
	}
}

func seedCatalog(t *testing.T, items *ItemService, ownerID string) {
	t.Helper()
	// 5 food items: 3 available, 2 claimed. Plus one book.
	for i := 0; i < 3; i++ {
		if _, err := items.CreateItem(testItem(ownerID)); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		item := testItem(ownerID)
		item.Status = models.StatusClaimed
		if _, err := items.CreateItem(item); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	book := testItem(ownerID)
	book.Title = "Old paperbacks"
	book.Category = models.CategoryBooks
	if _, err := items.CreateItem(book); err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func TestListItemsFilterAndPaginate(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")
	seedCatalog(t, items, owner.ID)

	page, err := items.ListItems(models.ItemFilter{
		Category: models.CategoryFood,
		Status:   models.StatusAvailable,
	}, 1, 2)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}

	if len(page.Items) != 2 {
		t.Errorf("expected 2 items on page 1, got %d", len(page.Items))
	}
	if page.Total != 3 {
		t.Errorf("expected total=3, got %d", page.Total)
	}
	if page.TotalPages != 2 {
		t.Errorf("expected totalPages=2, got %d", page.TotalPages)
	}
	for _, item := range page.Items {
		if item.Status != models.StatusAvailable {
			t.Errorf("unexpected status %q in filtered page", item.Status)
		}
		if item.Category != models.CategoryFood {
			t.Errorf("unexpected category %q in filtered page", item.Category)
		}
	}
}

func TestListItemsAllCategoryUnfiltered(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")
	seedCatalog(t, items, owner.ID)

	page, err := items.ListItems(models.ItemFilter{Category: "all"}, 1, 0)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if page.Total != 6 {
		t.Errorf("expected all 6 items, got total=%d", page.Total)
	}
}

func TestListItemsNewestFirst(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	first, _ := items.CreateItem(testItem(owner.ID))
	second, _ := items.CreateItem(testItem(owner.ID))

	page, err := items.ListItems(models.ItemFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}
	if page.Items[0].ID != second.ID || page.Items[1].ID != first.ID {
		t.Error("expected newest item first")
	}
}

func TestListItemsClampsLimit(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")
	seedCatalog(t, items, owner.ID)

	// An absurd limit must not be passed through to the query.
	page, err := items.ListItems(models.ItemFilter{}, 1, 1<<30)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if page.TotalPages != 1 {
		t.Errorf("expected a single page, got %d", page.TotalPages)
	}
}

func TestGetItemsByOwner(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")
	bob := createTestUser(t, users, "Bob", "bob@example.com")

	items.CreateItem(testItem(alice.ID))
	items.CreateItem(testItem(alice.ID))
	items.CreateItem(testItem(bob.ID))

	mine, err := items.GetItemsByOwner(alice.ID)
	if err != nil {
		t.Fatalf("GetItemsByOwner: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 items for Alice, got %d", len(mine))
	}
	for _, item := range mine {
		if item.OwnerID != alice.ID {
			t.Errorf("got item owned by %s", item.OwnerID)
		}
	}
}

func TestFindNearbyOrderedByDistance(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	// Roughly 0km, 1.1km and 5.5km north of the search point.
	offsets := []float64{0, 0.01, 0.05}
	for _, dlat := range offsets {
		item := testItem(owner.ID)
		item.Location = models.Location{Lat: 52.52 + dlat, Lng: 13.405}
		if _, err := items.CreateItem(item); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
	}
	// Well outside the 10km radius.
	far := testItem(owner.ID)
	far.Location = models.Location{Lat: 53.5, Lng: 13.405}
	items.CreateItem(far)

	found, err := items.FindNearby(52.52, 13.405, 10, models.ItemFilter{})
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 items within 10km, got %d", len(found))
	}
	for i := 1; i < len(found); i++ {
		if *found[i].DistanceKm < *found[i-1].DistanceKm {
			t.Error("results not ordered by increasing distance")
		}
	}
	if *found[0].DistanceKm > 0.01 {
		t.Errorf("closest item should be at the search point, got %.3fkm", *found[0].DistanceKm)
	}
}

func TestFindNearbyFilters(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	food := testItem(owner.ID)
	items.CreateItem(food)

	book := testItem(owner.ID)
	book.Category = models.CategoryBooks
	items.CreateItem(book)

	found, err := items.FindNearby(52.52, 13.405, 10, models.ItemFilter{Category: models.CategoryBooks})
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(found) != 1 || found[0].Category != models.CategoryBooks {
		t.Errorf("expected only the book, got %d items", len(found))
	}
}

func TestFindNearbyAcceptsOrigin(t *testing.T) {
	items, users := newTestServices(t)
	owner := createTestUser(t, users, "Alice", "alice@example.com")

	item := testItem(owner.ID)
	item.Location = models.Location{Lat: 0, Lng: 0}
	if _, err := items.CreateItem(item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	// (0,0) is a legitimate coordinate, not a missing one.
	found, err := items.FindNearby(0, 0, 10, models.ItemFilter{})
	if err != nil {
		t.Fatalf("FindNearby(0,0): %v", err)
	}
	if len(found) != 1 {
		t.Errorf("expected 1 item at the origin, got %d", len(found))
	}
}

func TestFindNearbyRejectsBadCoordinates(t *testing.T) {
	items, _ := newTestServices(t)

	if _, err := items.FindNearby(95, 0, 10, models.ItemFilter{}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for out-of-range lat, got %v", err)
	}
}

func TestUpdateItemStatusOwnerOnly(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")
	bob := createTestUser(t, users, "Bob", "bob@example.com")

	created, _ := items.CreateItem(testItem(alice.ID))

	_, err := items.UpdateItemStatus(created.ID, bob.ID, models.StatusPending, nil)
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for non-owner, got %v", err)
	}

	updated, err := items.UpdateItemStatus(created.ID, alice.ID, models.StatusPending, nil)
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if updated.Status != models.StatusPending {
		t.Errorf("expected status 'pending', got %q", updated.Status)
	}
	// Only status and updated_at change.
	if updated.Title != created.Title || updated.Price != created.Price || updated.Category != created.Category {
		t.Error("status update modified unrelated fields")
	}
}

func TestUpdateItemStatusIdempotent(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")
	created, _ := items.CreateItem(testItem(alice.ID))

	first, err := items.UpdateItemStatus(created.ID, alice.ID, models.StatusPending, nil)
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	second, err := items.UpdateItemStatus(created.ID, alice.ID, models.StatusPending, nil)
	if err != nil {
		t.Fatalf("UpdateItemStatus (reapply): %v", err)
	}
	if first.Status != second.Status {
		t.Error("reapplying the same status changed the result")
	}
}

func TestUpdateItemStatusUnknownItem(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")

	_, err := items.UpdateItemStatus("no-such-item", alice.ID, models.StatusClaimed, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimRecordsRecipientOnce(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")
	bob := createTestUser(t, users, "Bob", "bob@example.com")

	created, _ := items.CreateItem(testItem(alice.ID))

	claimed, err := items.UpdateItemStatus(created.ID, alice.ID, models.StatusClaimed, &bob.ID)
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if claimed.ClaimedBy == nil || *claimed.ClaimedBy != bob.ID {
		t.Error("expected claimedBy to record the recipient")
	}

	// Reapplying the claim must not double-count.
	if _, err := items.UpdateItemStatus(created.ID, alice.ID, models.StatusClaimed, &bob.ID); err != nil {
		t.Fatalf("UpdateItemStatus (reapply): %v", err)
	}

	gotBob, _ := users.GetUserByID(bob.ID)
	if gotBob.ItemsReceived != 1 {
		t.Errorf("expected itemsReceived=1, got %d", gotBob.ItemsReceived)
	}

	// Re-listing clears the recipient.
	relisted, err := items.UpdateItemStatus(created.ID, alice.ID, models.StatusAvailable, nil)
	if err != nil {
		t.Fatalf("UpdateItemStatus (relist): %v", err)
	}
	if relisted.ClaimedBy != nil {
		t.Error("expected claimedBy cleared on re-listing")
	}
}

func TestDeleteItem(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")
	bob := createTestUser(t, users, "Bob", "bob@example.com")

	created, _ := items.CreateItem(testItem(alice.ID))

	if err := items.DeleteItem(created.ID, bob.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for non-owner delete, got %v", err)
	}

	if err := items.DeleteItem("no-such-item", alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing id, got %v", err)
	}

	if err := items.DeleteItem(created.ID, alice.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := items.GetItemByID(created.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected item gone after delete")
	}
}

func TestMarkExpired(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	stale := testItem(alice.ID)
	stale.ExpiresAt = &past
	staleCreated, _ := items.CreateItem(stale)

	fresh := testItem(alice.ID)
	fresh.ExpiresAt = &future
	freshCreated, _ := items.CreateItem(fresh)

	claimed := testItem(alice.ID)
	claimed.ExpiresAt = &past
	claimed.Status = models.StatusClaimed
	claimedCreated, _ := items.CreateItem(claimed)

	expired, err := items.MarkExpired(time.Now().UTC())
	if err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != staleCreated.ID {
		t.Fatalf("expected only the stale item to expire, got %d", len(expired))
	}

	got, _ := items.GetItemByID(staleCreated.ID)
	if got.Status != models.StatusExpired {
		t.Errorf("expected status 'expired', got %q", got.Status)
	}
	got, _ = items.GetItemByID(freshCreated.ID)
	if got.Status != models.StatusAvailable {
		t.Errorf("fresh item should be untouched, got %q", got.Status)
	}
	got, _ = items.GetItemByID(claimedCreated.ID)
	if got.Status != models.StatusClaimed {
		t.Errorf("claimed item should be untouched, got %q", got.Status)
	}
}

func TestCountByStatus(t *testing.T) {
	items, users := newTestServices(t)
	alice := createTestUser(t, users, "Alice", "alice@example.com")
	seedCatalog(t, items, alice.ID)

	counts, err := items.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[models.StatusAvailable] != 4 {
		t.Errorf("expected 4 available, got %d", counts[models.StatusAvailable])
	}
	if counts[models.StatusClaimed] != 2 {
		t.Errorf("expected 2 claimed, got %d", counts[models.StatusClaimed])
	}
}
