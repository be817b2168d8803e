package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"holidaydeals/models"
)

const Jet2BaseURL = "https://www.jet2holidays.com"

// Jet2Handler turns one listing URL into a deal candidate:
// decode URL → render page → extract signals → reconcile.
type Jet2Handler struct {
	renderer Renderer
	baseURL  string
}

func NewJet2Handler(renderer Renderer) *Jet2Handler {
	return &Jet2Handler{
		renderer: renderer,
		baseURL:  Jet2BaseURL,
	}
}

// ScrapeURL produces an unvalidated candidate for a single listing URL.
// Render failures come back as *RenderError.
func (h *Jet2Handler) ScrapeURL(ctx context.Context, url string) (*models.DealCandidate, error) {
	params := DecodeURL(url)

	html, err := h.renderer.Render(ctx, url)
	if err != nil {
		return nil, err
	}

	sig, err := ExtractSignals(html)
	if err != nil {
		return nil, fmt.Errorf("extract signals: %w", err)
	}

	log.Printf("Extracted %s: title=%v price=%v board=%v images=%d amenities=%d",
		url, deref(sig.HotelName), derefFloat(sig.TotalPrice), deref(sig.BoardBasis),
		len(sig.GalleryImages), len(sig.Amenities))

	candidate := Reconcile(url, h.baseURL, params, sig)

	// Keep every raw signal for debugging failed parses. Downstream
	// logic never reads this blob.
	raw, err := json.Marshal(map[string]any{
		"params":    params,
		"extracted": sig,
	})
	if err == nil {
		candidate.RawData = raw
	}

	return candidate, nil
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func derefFloat(f *float64) string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%.2f", *f)
}
