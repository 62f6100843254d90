package domain

import "time"

// Event is a scheduled announcement broadcast to all customers at or
// after FireAt.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FireAt      time.Time `json:"fire_at"`
	CreatedAt   time.Time `json:"created_at"`
	Delivered   bool      `json:"delivered"`
}
