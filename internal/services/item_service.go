package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/sharehub-be/internal/geo"
	"github.com/isdelr/sharehub-be/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPageSize is used when the caller does not specify a limit.
	DefaultPageSize = 20
	// MaxPageSize caps the caller-supplied limit.
	MaxPageSize = 100
	// NearbyResultCap bounds the number of items a proximity query returns.
	NearbyResultCap = 50
	// DefaultRadiusKm is the nearby search radius when none is given.
	DefaultRadiusKm = 10.0
)

// Sentinel errors the handlers map to HTTP statuses.
var (
	ErrNotFound   = errors.New("not found")
	ErrNotOwner   = errors.New("caller is not the owner")
	ErrValidation = errors.New("validation failed")
)

// ItemServiceProvider defines the interface for item services.
type ItemServiceProvider interface {
	ListItems(filter models.ItemFilter, page, limit int) (models.ItemPage, error)
	GetItemByID(id string) (models.Item, error)
	GetItemsByOwner(ownerID string) ([]models.Item, error)
	FindNearby(lat, lng, radiusKm float64, filter models.ItemFilter) ([]models.Item, error)
	CreateItem(item models.Item) (models.Item, error)
	UpdateItemStatus(id, callerID string, status models.ItemStatus, claimedBy *string) (models.Item, error)
	DeleteItem(id, callerID string) error
	MarkExpired(now time.Time) ([]models.Item, error)
	CountByStatus() (map[models.ItemStatus]int, error)
}

// ItemService provides business logic for item management.
type ItemService struct {
	db *sql.DB
}

// NewItemService creates a new ItemService.
func NewItemService(db *sql.DB) *ItemService {
	return &ItemService{db: db}
}

const itemColumns = `i.id, i.title, i.description, i.category, i.address, i.lat, i.lng,
	i.owner_id, u.name, i.status, i.condition, i.is_free, i.price,
	i.images_json, i.tags_json, i.claimed_by, i.expires_at, i.created_at, i.updated_at`

// scanItem is a helper to scan an item from a row or rows object.
func scanItem(scanner interface{ Scan(...interface{}) error }) (models.Item, error) {
	var item models.Item
	var imagesJSON, tagsJSON, claimedBy sql.NullString
	var expiresAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.Title, &item.Description, &item.Category, &item.Address,
		&item.Location.Lat, &item.Location.Lng, &item.OwnerID, &item.OwnerName,
		&item.Status, &item.Condition, &item.IsFree, &item.Price,
		&imagesJSON, &tagsJSON, &claimedBy, &expiresAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return item, err
	}

	if imagesJSON.Valid && imagesJSON.String != "" {
		if err := json.Unmarshal([]byte(imagesJSON.String), &item.Images); err != nil {
			log.Warn().Err(err).Str("item_id", item.ID).Msg("Malformed images JSON in database")
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &item.Tags); err != nil {
			log.Warn().Err(err).Str("item_id", item.ID).Msg("Malformed tags JSON in database")
		}
	}
	if claimedBy.Valid {
		item.ClaimedBy = &claimedBy.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		item.ExpiresAt = &t
	}
	return item, nil
}

// buildFilter translates an ItemFilter into WHERE clauses and args.
// A category of "all" (or empty) and an empty status leave that dimension
// unfiltered, matching the listing semantics of the public API.
func buildFilter(filter models.ItemFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if filter.Category != "" && filter.Category != "all" {
		clauses = append(clauses, "i.category = ?")
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		clauses = append(clauses, "i.status = ?")
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		clauses = append(clauses, "i.owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListItems returns one page of items matching the filter, newest first,
// with owner names populated.
func (s *ItemService) ListItems(filter models.ItemFilter, page, limit int) (models.ItemPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	where, args := buildFilter(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM items i" + where
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return models.ItemPage{}, err
	}

	query := "SELECT " + itemColumns + " FROM items i JOIN users u ON u.id = i.owner_id" +
		where + " ORDER BY i.created_at DESC, i.rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return models.ItemPage{}, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return models.ItemPage{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return models.ItemPage{}, err
	}

	return models.ItemPage{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// GetItemByID retrieves a single item by its ID, owner name populated.
func (s *ItemService) GetItemByID(id string) (models.Item, error) {
	row := s.db.QueryRow(
		"SELECT "+itemColumns+" FROM items i JOIN users u ON u.id = i.owner_id WHERE i.id = ?", id)
	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return models.Item{}, err
	}
	return item, nil
}

// GetItemsByOwner retrieves all items posted by one user, newest first.
func (s *ItemService) GetItemsByOwner(ownerID string) ([]models.Item, error) {
	rows, err := s.db.Query(
		"SELECT "+itemColumns+" FROM items i JOIN users u ON u.id = i.owner_id WHERE i.owner_id = ? ORDER BY i.created_at DESC, i.rowid DESC",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindNearby returns items within radiusKm of the given point, ordered by
// increasing distance, capped at NearbyResultCap. Candidates come from an
// indexed bounding-box query; exact distances are computed per candidate.
func (s *ItemService) FindNearby(lat, lng, radiusKm float64, filter models.ItemFilter) ([]models.Item, error) {
	if !geo.Valid(lat, lng) {
		return nil, fmt.Errorf("invalid coordinates (%v, %v): %w", lat, lng, ErrValidation)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	box := geo.Bounds(lat, lng, radiusKm)
	where, args := buildFilter(filter)
	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	where += "i.lat BETWEEN ? AND ? AND i.lng BETWEEN ? AND ?"
	args = append(args, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)

	rows, err := s.db.Query(
		"SELECT "+itemColumns+" FROM items i JOIN users u ON u.id = i.owner_id"+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		d := geo.DistanceKm(lat, lng, item.Location.Lat, item.Location.Lng)
		if d > radiusKm {
			// Inside the box but outside the circle.
			continue
		}
		item.DistanceKm = &d
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(items, func(a, b int) bool {
		return *items[a].DistanceKm < *items[b].DistanceKm
	})
	if len(items) > NearbyResultCap {
		items = items[:NearbyResultCap]
	}
	return items, nil
}

// validateItem checks the fields a caller controls on creation.
func validateItem(item models.Item) error {
	switch {
	case strings.TrimSpace(item.Title) == "":
		return fmt.Errorf("title is required: %w", ErrValidation)
	case strings.TrimSpace(item.Description) == "":
		return fmt.Errorf("description is required: %w", ErrValidation)
	case strings.TrimSpace(item.Address) == "":
		return fmt.Errorf("address is required: %w", ErrValidation)
	case !item.Category.IsValid():
		return fmt.Errorf("unknown category %q: %w", item.Category, ErrValidation)
	case !item.Condition.IsValid():
		return fmt.Errorf("unknown condition %q: %w", item.Condition, ErrValidation)
	case !geo.Valid(item.Location.Lat, item.Location.Lng):
		return fmt.Errorf("invalid location: %w", ErrValidation)
	case item.Price < 0:
		return fmt.Errorf("price must be non-negative: %w", ErrValidation)
	}
	return nil
}

// CreateItem persists a new item owned by item.OwnerID and increments the
// owner's shared-items counter in the same transaction.
func (s *ItemService) CreateItem(item models.Item) (models.Item, error) {
	if err := validateItem(item); err != nil {
		return models.Item{}, err
	}

	item.ID = uuid.New().String()
	if item.Status == "" {
		item.Status = models.StatusAvailable
	}
	if !item.Status.IsValid() {
		return models.Item{}, fmt.Errorf("unknown status %q: %w", item.Status, ErrValidation)
	}
	if item.IsFree {
		item.Price = 0
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	imagesJSON, err := json.Marshal(item.Images)
	if err != nil {
		return models.Item{}, err
	}
	tagsJSON, err := json.Marshal(item.Tags)
	if err != nil {
		return models.Item{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Item{}, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO items (id, title, description, category, address, lat, lng, owner_id,
			status, condition, is_free, price, images_json, tags_json, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Description, item.Category, item.Address,
		item.Location.Lat, item.Location.Lng, item.OwnerID, item.Status, item.Condition,
		item.IsFree, item.Price, string(imagesJSON), string(tagsJSON), item.ExpiresAt,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return models.Item{}, err
	}

	res, err := tx.Exec("UPDATE users SET items_shared = items_shared + 1, updated_at = ? WHERE id = ?", now, item.OwnerID)
	if err != nil {
		return models.Item{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Item{}, fmt.Errorf("owner %s: %w", item.OwnerID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return models.Item{}, err
	}
	return s.GetItemByID(item.ID)
}

// UpdateItemStatus applies a status-only update. Only the owner may call it.
// When the item first transitions to claimed with a named recipient, the
// recipient's received-items counter increments in the same transaction.
func (s *ItemService) UpdateItemStatus(id, callerID string, status models.ItemStatus, claimedBy *string) (models.Item, error) {
	if !status.IsValid() {
		return models.Item{}, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Item{}, err
	}
	defer tx.Rollback()

	var ownerID string
	var current models.ItemStatus
	err = tx.QueryRow("SELECT owner_id, status FROM items WHERE id = ?", id).Scan(&ownerID, &current)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return models.Item{}, err
	}
	if ownerID != callerID {
		return models.Item{}, fmt.Errorf("item %s: %w", id, ErrNotOwner)
	}

	now := time.Now().UTC()
	switch {
	case status == models.StatusClaimed && claimedBy != nil:
		_, err = tx.Exec("UPDATE items SET status = ?, claimed_by = ?, updated_at = ? WHERE id = ?",
			status, *claimedBy, now, id)
		if err != nil {
			return models.Item{}, err
		}
		if current != models.StatusClaimed {
			res, err := tx.Exec("UPDATE users SET items_received = items_received + 1, updated_at = ? WHERE id = ?", now, *claimedBy)
			if err != nil {
				return models.Item{}, err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return models.Item{}, fmt.Errorf("recipient %s: %w", *claimedBy, ErrNotFound)
			}
		}
	case status == models.StatusAvailable:
		// Re-listing clears any recorded recipient.
		_, err = tx.Exec("UPDATE items SET status = ?, claimed_by = NULL, updated_at = ? WHERE id = ?", status, now, id)
		if err != nil {
			return models.Item{}, err
		}
	default:
		_, err = tx.Exec("UPDATE items SET status = ?, updated_at = ? WHERE id = ?", status, now, id)
		if err != nil {
			return models.Item{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Item{}, err
	}
	return s.GetItemByID(id)
}

// DeleteItem removes an item. Only the owner may call it.
func (s *ItemService) DeleteItem(id, callerID string) error {
	var ownerID string
	err := s.db.QueryRow("SELECT owner_id FROM items WHERE id = ?", id).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("item %s: %w", id, ErrNotFound)
		}
		return err
	}
	if ownerID != callerID {
		return fmt.Errorf("item %s: %w", id, ErrNotOwner)
	}

	_, err = s.db.Exec("DELETE FROM items WHERE id = ?", id)
	return err
}

// MarkExpired moves items whose expiry has passed out of circulation and
// returns the affected items. Claimed items are left alone.
func (s *ItemService) MarkExpired(now time.Time) ([]models.Item, error) {
	rows, err := s.db.Query(`
		SELECT id FROM items
		WHERE expires_at IS NOT NULL AND expires_at <= ? AND status IN (?, ?)`,
		now, models.StatusAvailable, models.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var expired []models.Item
	for _, id := range ids {
		_, err := s.db.Exec("UPDATE items SET status = ?, updated_at = ? WHERE id = ?",
			models.StatusExpired, now, id)
		if err != nil {
			return expired, err
		}
		item, err := s.GetItemByID(id)
		if err != nil {
			return expired, err
		}
		expired = append(expired, item)
	}
	return expired, nil
}

// CountByStatus returns the number of items in each status.
func (s *ItemService) CountByStatus() (map[models.ItemStatus]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM items GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ItemStatus]int)
	for rows.Next() {
		var status models.ItemStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
