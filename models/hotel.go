package models

import "time"

// Hotel is a manually curated catalog entry, independent of scraped deals.
type Hotel struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Destination string    `json:"destination" db:"destination"`
	Country     *string   `json:"country" db:"country"`
	Resort      *string   `json:"resort" db:"resort"`
	Rating      *float64  `json:"rating" db:"rating"`
	Description *string   `json:"description" db:"description"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Amenities   []string  `json:"amenities" db:"amenities"`
	Address     *string   `json:"address" db:"address"`
	Latitude    *float64  `json:"latitude" db:"latitude"`
	Longitude   *float64  `json:"longitude" db:"longitude"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
