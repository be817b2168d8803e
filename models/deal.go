package models

import (
	"encoding/json"
	"time"
)

const (
	MaxGalleryImages  = 10
	MaxAmenities      = 20
	MaxReviewSnippets = 5
)

// DealCandidate is the transient record produced by one scrape attempt,
// before it is persisted. URL is the canonical dedup key.
type DealCandidate struct {
	URL              string          `json:"url"`
	Title            string          `json:"title"`
	Destination      string          `json:"destination"`
	Country          *string         `json:"country"`
	Resort           *string         `json:"resort"`
	Price            *float64        `json:"price"`
	PricePerPerson   *float64        `json:"price_per_person"`
	OriginalPrice    *float64        `json:"original_price"`
	Currency         string          `json:"currency"`
	DepartureAirport *string         `json:"departure_airport"`
	DepartureDate    *string         `json:"departure_date"` // ISO yyyy-mm-dd
	ReturnDate       *string         `json:"return_date"`
	Duration         *int            `json:"duration"` // nights
	HotelName        *string         `json:"hotel_name"`
	HotelRating      *float64        `json:"hotel_rating"`
	BoardBasis       *string         `json:"board_basis"`
	ImageURL         *string         `json:"image_url"`
	Images           []string        `json:"images"`
	Description      *string         `json:"description"`
	Amenities        []string        `json:"amenities"`
	ReviewScore      *float64        `json:"review_score"`
	ReviewCount      *int            `json:"review_count"`
	Reviews          []ReviewSnippet `json:"reviews"`
	RawData          json.RawMessage `json:"raw_data"`
}

// Savings returns the discount against the original price, or nil when
// no meaningful original price is present.
func (c *DealCandidate) Savings() *float64 {
	if c.Price == nil || c.OriginalPrice == nil {
		return nil
	}
	if *c.OriginalPrice <= *c.Price {
		return nil
	}
	s := *c.OriginalPrice - *c.Price
	return &s
}

// Normalize enforces the storage invariants on list-valued fields:
// order-preserving, duplicate-free, capped. Candidates built by the
// pipeline already satisfy this; manually submitted ones may not.
func (c *DealCandidate) Normalize() {
	c.Images = dedupeCapped(c.Images, MaxGalleryImages)
	c.Amenities = dedupeCapped(c.Amenities, MaxAmenities)
	if len(c.Reviews) > MaxReviewSnippets {
		c.Reviews = c.Reviews[:MaxReviewSnippets]
	}
	if c.Currency == "" {
		c.Currency = "GBP"
	}
}

func dedupeCapped(in []string, limit int) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

// ReviewSnippet is a single guest review pulled from a deal page.
type ReviewSnippet struct {
	Rating *float64 `json:"rating,omitempty"`
	Text   string   `json:"text"`
}

// Deal is a stored holiday package. One row per canonical URL; re-scrapes
// update in place.
type Deal struct {
	ID               int64           `json:"id" db:"id"`
	ProviderID       int64           `json:"provider_id" db:"provider_id"`
	Title            string          `json:"title" db:"title"`
	Destination      string          `json:"destination" db:"destination"`
	Country          *string         `json:"country" db:"country"`
	Resort           *string         `json:"resort" db:"resort"`
	Price            float64         `json:"price" db:"price"`
	PricePerPerson   *float64        `json:"price_per_person" db:"price_per_person"`
	OriginalPrice    *float64        `json:"original_price" db:"original_price"`
	Currency         string          `json:"currency" db:"currency"`
	DepartureAirport *string         `json:"departure_airport" db:"departure_airport"`
	DepartureDate    *string         `json:"departure_date" db:"departure_date"`
	ReturnDate       *string         `json:"return_date" db:"return_date"`
	Duration         *int            `json:"duration" db:"duration"`
	HotelID          *int64          `json:"hotel_id" db:"hotel_id"`
	HotelName        *string         `json:"hotel_name" db:"hotel_name"`
	HotelRating      *float64        `json:"hotel_rating" db:"hotel_rating"`
	BoardBasis       *string         `json:"board_basis" db:"board_basis"`
	ImageURL         *string         `json:"image_url" db:"image_url"`
	Images           []string        `json:"images" db:"images"`
	URL              string          `json:"url" db:"url"`
	Description      *string         `json:"description" db:"description"`
	Amenities        []string        `json:"amenities" db:"amenities"`
	ReviewScore      *float64        `json:"review_score" db:"review_score"`
	ReviewCount      *int            `json:"review_count" db:"review_count"`
	Reviews          []ReviewSnippet `json:"reviews" db:"reviews"`
	RawData          json.RawMessage `json:"raw_data" db:"raw_data"`
	ScrapeRunID      *int64          `json:"scrape_run_id" db:"scrape_run_id"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// DealFilter narrows deal browse queries.
type DealFilter struct {
	Destination      string
	Country          string
	BoardBasis       string
	DepartureAirport string
	MaxPrice         *float64
	MinRating        *float64
	Sort             string // price_asc, price_desc, newest
	Limit            int
	Offset           int
}
