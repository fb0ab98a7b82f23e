package models

import "time"

// ItemCategory classifies what kind of thing is being shared.
type ItemCategory string

const (
	CategoryFood        ItemCategory = "food"
	CategoryEquipment   ItemCategory = "equipment"
	CategoryClothing    ItemCategory = "clothing"
	CategoryElectronics ItemCategory = "electronics"
	CategoryFurniture   ItemCategory = "furniture"
	CategoryBooks       ItemCategory = "books"
	CategoryOther       ItemCategory = "other"
)

// IsValid reports whether c is one of the known categories.
func (c ItemCategory) IsValid() bool {
	switch c {
	case CategoryFood, CategoryEquipment, CategoryClothing, CategoryElectronics,
		CategoryFurniture, CategoryBooks, CategoryOther:
		return true
	}
	return false
}

// ItemStatus is the lifecycle label on an item.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusPending   ItemStatus = "pending"
	StatusClaimed   ItemStatus = "claimed"
	// StatusExpired is set by the background sweeper once expiresAt passes.
	StatusExpired ItemStatus = "expired"
)

// IsValid reports whether s is one of the known statuses.
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusClaimed, StatusExpired:
		return true
	}
	return false
}

// ItemCondition describes the physical state of an item.
type ItemCondition string

const (
	ConditionNew     ItemCondition = "new"
	ConditionLikeNew ItemCondition = "like-new"
	ConditionGood    ItemCondition = "good"
	ConditionFair    ItemCondition = "fair"
	ConditionPoor    ItemCondition = "poor"
)

// IsValid reports whether c is one of the known conditions.
func (c ItemCondition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Item represents a shareable community listing.
type Item struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    ItemCategory  `json:"category"`
	Images      []string      `json:"images"`
	Location    Location      `json:"location"`
	Address     string        `json:"address"`
	OwnerID     string        `json:"ownerId"`
	OwnerName   string        `json:"ownerName,omitempty"` // populated on reads
	Status      ItemStatus    `json:"status"`
	Condition   ItemCondition `json:"condition"`
	IsFree      bool          `json:"isFree"`
	Price       float64       `json:"price"`
	Tags        []string      `json:"tags"`
	ClaimedBy   *string       `json:"claimedBy,omitempty"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	DistanceKm  *float64      `json:"distanceKm,omitempty"` // set by nearby queries
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ItemPage is one page of a filtered item listing.
type ItemPage struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
}

// ItemFilter narrows item listings. Zero values (or "all" for category)
// leave the corresponding dimension unfiltered.
type ItemFilter struct {
	Category ItemCategory
	Status   ItemStatus
	OwnerID  string
}
