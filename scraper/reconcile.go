package scraper

import (
	"net/url"
	"strings"
	"time"

	"holidaydeals/models"
)

const defaultCurrency = "GBP"

// Reconcile merges URL-derived parameters with page-derived signals
// into one candidate. Precedence: the live page wins for board basis
// (the URL code table is a fallback), while airport, dates and duration
// come only from the URL because the rendered page does not expose them
// reliably.
func Reconcile(sourceURL, baseURL string, params URLParams, sig *PageSignals) *models.DealCandidate {
	c := &models.DealCandidate{
		URL:              sourceURL,
		Destination:      destinationLabel(params),
		Country:          params.Country,
		Resort:           params.Resort,
		Price:            sig.TotalPrice,
		PricePerPerson:   sig.PricePerPerson,
		OriginalPrice:    sig.OriginalPrice,
		Currency:         defaultCurrency,
		DepartureAirport: params.DepartureAirport,
		DepartureDate:    params.DepartureDate,
		Duration:         params.Duration,
		HotelName:        sig.HotelName,
		HotelRating:      sig.StarRating,
		Description:      sig.Description,
		Amenities:        sig.Amenities,
		ReviewScore:      sig.ReviewScore,
		ReviewCount:      sig.ReviewCount,
		Reviews:          sig.Reviews,
	}

	if sig.HotelName != nil {
		c.Title = *sig.HotelName
	}

	if sig.BoardBasis != nil {
		c.BoardBasis = sig.BoardBasis
	} else {
		c.BoardBasis = params.BoardBasis
	}

	if sig.ImageURL != nil {
		abs := AbsoluteURL(*sig.ImageURL, baseURL)
		c.ImageURL = &abs
	}
	for _, img := range sig.GalleryImages {
		c.Images = append(c.Images, AbsoluteURL(img, baseURL))
	}

	c.ReturnDate = computeReturnDate(params.DepartureDate, params.Duration)

	return c
}

// computeReturnDate adds the stay length to the departure date. Either
// side missing means no return date.
func computeReturnDate(departureISO *string, nights *int) *string {
	if departureISO == nil || nights == nil {
		return nil
	}
	dep, err := time.Parse("2006-01-02", *departureISO)
	if err != nil {
		return nil
	}
	ret := dep.AddDate(0, 0, *nights).Format("2006-01-02")
	return &ret
}

// destinationLabel joins the non-null ordered location triple, falling
// back to country alone, then "Unknown".
func destinationLabel(params URLParams) string {
	var parts []string
	for _, p := range []*string{params.Resort, params.Destination, params.Country} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return "Unknown"
}

// AbsoluteURL resolves a possibly relative URL against the provider's
// base origin.
func AbsoluteURL(raw, baseURL string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}
