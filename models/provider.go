package models

import "time"

// Provider is a travel site deals are scraped from.
type Provider struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Slug             string     `json:"slug" db:"slug"`
	BaseURL          string     `json:"base_url" db:"base_url"`
	LogoURL          *string    `json:"logo_url" db:"logo_url"`
	DepartureAirport *string    `json:"departure_airport" db:"departure_airport"`
	Active           bool       `json:"active" db:"active"`
	LastScrapedAt    *time.Time `json:"last_scraped_at" db:"last_scraped_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
