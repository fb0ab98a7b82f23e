package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/sharehub-be/internal/auth"
	"github.com/isdelr/sharehub-be/internal/models"
	"github.com/isdelr/sharehub-be/internal/services"
	ws "github.com/isdelr/sharehub-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// ItemHandler handles HTTP requests related to items.
type ItemHandler struct {
	service services.ItemServiceProvider
	events  services.EventServiceProvider
	hub     *ws.Hub
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(service services.ItemServiceProvider, events services.EventServiceProvider, hub *ws.Hub) *ItemHandler {
	return &ItemHandler{service: service, events: events, hub: hub}
}

func filterFromQuery(r *http.Request) models.ItemFilter {
	q := r.URL.Query()
	return models.ItemFilter{
		Category: models.ItemCategory(q.Get("category")),
		Status:   models.ItemStatus(q.Get("status")),
	}
}

// List handles GET /api/items: filter, paginate, newest first.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.service.ListItems(filterFromQuery(r), page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list items")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Nearby handles GET /api/items/nearby: proximity search around a point.
// Latitude and longitude must both be present and numeric; zero is a
// legitimate coordinate.
func (h *ItemHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	latStr, lngStr := q.Get("lat"), q.Get("lng")
	if latStr == "" || lngStr == "" {
		writeError(w, http.StatusBadRequest, "Latitude and longitude are required")
		return
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "Latitude and longitude must be numbers")
		return
	}

	radiusKm := services.DefaultRadiusKm
	if distStr := q.Get("distance"); distStr != "" {
		d, err := strconv.ParseFloat(distStr, 64)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "Distance must be a positive number of kilometers")
			return
		}
		radiusKm = d
	}

	items, err := h.service.FindNearby(lat, lng, radiusKm, filterFromQuery(r))
	if err != nil {
		writeServiceError(w, err, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Get handles GET /api/items/{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.service.GetItemByID(id)
	if err != nil {
		writeServiceError(w, err, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

// MyItems handles GET /api/items/my-items for the authenticated caller.
func (h *ItemHandler) MyItems(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.GetItemsByOwner(claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to list own items")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Create handles POST /api/items. The owner is always the authenticated
// caller; any owner supplied in the payload is discarded.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item.OwnerID = claims.UserID

	created, err := h.service.CreateItem(item)
	if err != nil {
		writeServiceError(w, err, "Owner not found")
		return
	}

	msg := fmt.Sprintf("'%s' was posted in %s", created.Title, created.Category)
	if err := h.events.CreateEvent("item.created", "info", msg, &created.ID); err != nil {
		log.Warn().Err(err).Str("item_id", created.ID).Msg("Failed to record item.created event")
	}
	h.hub.Broadcast <- ws.NewItemMessage("item.created", created)
	h.hub.BroadcastTo(string(created.Category), ws.NewItemMessage("item.created", created))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Item created successfully",
		"item":    created,
	})
}

// UpdateStatus handles PATCH /api/items/{id}. Only the status (and an
// optional recipient on claim) can change, and only the owner may do it.
func (h *ItemHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	var payload struct {
		Status    models.ItemStatus `json:"status"`
		ClaimedBy *string           `json:"claimedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.service.UpdateItemStatus(id, claims.UserID, payload.Status, payload.ClaimedBy)
	if err != nil {
		writeServiceError(w, err, "Item not found")
		return
	}

	if item.Status == models.StatusClaimed {
		msg := fmt.Sprintf("'%s' was claimed", item.Title)
		if err := h.events.CreateEvent("item.claimed", "info", msg, &item.ID); err != nil {
			log.Warn().Err(err).Str("item_id", item.ID).Msg("Failed to record item.claimed event")
		}
	}
	h.hub.Broadcast <- ws.NewItemMessage("item.updated", item)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Item updated successfully",
		"item":    item,
	})
}

// Delete handles DELETE /api/items/{id}. Owner only.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteItem(id, claims.UserID); err != nil {
		writeServiceError(w, err, "Item not found")
		return
	}

	if err := h.events.CreateEvent("item.deleted", "info", "An item was removed by its owner", &id); err != nil {
		log.Warn().Err(err).Str("item_id", id).Msg("Failed to record item.deleted event")
	}
	h.hub.Broadcast <- ws.NewItemMessage("item.deleted", map[string]string{"id": id})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}
