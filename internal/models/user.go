package models

import "time"

// User represents a member account in the system.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Never expose this to the client
	Avatar        string    `json:"avatar,omitempty"`
	Address       string    `json:"address,omitempty"`
	Location      Location  `json:"location"`
	Rating        float64   `json:"rating"`
	TotalRatings  int       `json:"totalRatings"`
	ItemsShared   int       `json:"itemsShared"`
	ItemsReceived int       `json:"itemsReceived"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
