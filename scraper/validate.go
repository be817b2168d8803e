package scraper

import (
	"errors"
	"strings"

	"holidaydeals/models"
)

// ErrMissingData marks a candidate without the minimum viable fields.
// It is a pipeline outcome, not an exception: the batch carries on.
var ErrMissingData = errors.New("missing required data")

// Validate rejects candidates lacking a title or a positive total
// price. Every other field is allowed to degrade to nil.
func Validate(c *models.DealCandidate) error {
	if c == nil {
		return ErrMissingData
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrMissingData
	}
	if c.Price == nil || *c.Price <= 0 {
		return ErrMissingData
	}
	return nil
}
