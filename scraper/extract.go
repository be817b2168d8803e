package scraper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"holidaydeals/models"
)

const (
	maxAmenityLen = 100
	maxReviewLen  = 500
)

// PageSignals is the raw-signal bundle pulled from one rendered page.
// Nothing here is validated; the reconciler and validator decide what
// is usable.
type PageSignals struct {
	HotelName      *string                `json:"hotelName"`
	ImageURL       *string                `json:"imageUrl"`
	StarRating     *float64               `json:"starRating"`
	Description    *string                `json:"description"`
	TotalPrice     *float64               `json:"totalPrice"`
	PricePerPerson *float64               `json:"pricePerPerson"`
	OriginalPrice  *float64               `json:"originalPrice"`
	BoardBasis     *string                `json:"boardBasis"`
	GalleryImages  []string               `json:"galleryImages"`
	Amenities      []string               `json:"amenities"`
	ReviewScore    *float64               `json:"reviewScore"`
	ReviewCount    *int                   `json:"reviewCount"`
	Reviews        []models.ReviewSnippet `json:"reviews"`
	PageTitle      string                 `json:"pageTitle"`
	JSONLDFound    bool                   `json:"jsonLdFound"`
}

// jsonLDHotel is the subset of a schema.org Hotel block we read.
// Numeric fields arrive as strings or numbers depending on the page
// build, so they stay raw until parsed.
type jsonLDHotel struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	Image       json.RawMessage `json:"image"`
	Description string          `json:"description"`
	StarRating  struct {
		RatingValue json.RawMessage `json:"ratingValue"`
	} `json:"starRating"`
	AggregateRating struct {
		RatingValue json.RawMessage `json:"ratingValue"`
		ReviewCount json.RawMessage `json:"reviewCount"`
	} `json:"aggregateRating"`
	AmenityFeature []struct {
		Name string `json:"name"`
	} `json:"amenityFeature"`
}

// pageDoc bundles the parsed document with signals that several
// strategies share.
type pageDoc struct {
	doc      *goquery.Document
	hotel    *jsonLDHotel
	bodyText string
}

// Fixed label phrases for the three price figures. The amount group
// deliberately matches digits and commas only, same as the site shows.
var (
	totalPriceRe = regexp.MustCompile(`(?i)Payable to Jet2holidays[^£]*£([\d,]+)`)
	perPersonRe  = regexp.MustCompile(`(?i)Price per person[^£]*£([\d,]+)`)
	basePriceRe  = regexp.MustCompile(`(?i)Base price[^£]*£([\d,]+)`)

	reviewScoreRe = regexp.MustCompile(`(\d(?:\.\d)?)\s*(?:/\s*5|out of 5)`)
	reviewCountRe = regexp.MustCompile(`([\d,]+)\s+reviews`)
)

// Board basis phrases tested against full page text, first match wins.
var boardBasisPriority = []string{
	"All Inclusive",
	"Half Board",
	"Full Board",
	"Bed and Breakfast",
	"Room Only",
	"Self Catering",
}

// ExtractSignals runs the full strategy cascade against rendered HTML.
func ExtractSignals(html string) (*PageSignals, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	pd := &pageDoc{
		doc:      doc,
		hotel:    findJSONLDHotel(doc),
		bodyText: doc.Find("body").Text(),
	}

	sig := &PageSignals{
		HotelName:      firstNonNil(pd, jsonLDName, headingName),
		ImageURL:       firstNonNil(pd, jsonLDImage, ogImage),
		StarRating:     firstFloat(pd, jsonLDStarRating),
		Description:    firstNonNil(pd, jsonLDDescription, metaDescription),
		TotalPrice:     matchPrice(pd.bodyText, totalPriceRe),
		PricePerPerson: matchPrice(pd.bodyText, perPersonRe),
		OriginalPrice:  matchPrice(pd.bodyText, basePriceRe),
		BoardBasis:     matchBoardBasis(pd.bodyText),
		GalleryImages:  extractGalleryImages(doc),
		PageTitle:      strings.TrimSpace(doc.Find("title").First().Text()),
		JSONLDFound:    pd.hotel != nil,
	}

	sig.Amenities = extractAmenities(pd)
	sig.ReviewScore, sig.ReviewCount = extractReviewStats(pd)
	sig.Reviews = extractReviewSnippets(doc)

	return sig, nil
}

// firstNonNil applies string strategies in order and keeps the first hit.
func firstNonNil(pd *pageDoc, strategies ...func(*pageDoc) *string) *string {
	for _, s := range strategies {
		if v := s(pd); v != nil {
			return v
		}
	}
	return nil
}

func firstFloat(pd *pageDoc, strategies ...func(*pageDoc) *float64) *float64 {
	for _, s := range strategies {
		if v := s(pd); v != nil {
			return v
		}
	}
	return nil
}

// findJSONLDHotel scans every structured-data block for one typed
// "Hotel". Broken blocks are skipped, not fatal.
func findJSONLDHotel(doc *goquery.Document) *jsonLDHotel {
	var hotel *jsonLDHotel
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var h jsonLDHotel
		if err := json.Unmarshal([]byte(s.Text()), &h); err != nil {
			return true
		}
		if h.Type != "Hotel" {
			return true
		}
		hotel = &h
		return false
	})
	return hotel
}

func jsonLDName(pd *pageDoc) *string {
	if pd.hotel == nil || pd.hotel.Name == "" {
		return nil
	}
	name := strings.TrimSpace(pd.hotel.Name)
	if name == "" {
		return nil
	}
	return &name
}

func headingName(pd *pageDoc) *string {
	text := cleanText(pd.doc.Find("h1").First().Text())
	if text == "" {
		return nil
	}
	return &text
}

func jsonLDImage(pd *pageDoc) *string {
	if pd.hotel == nil || len(pd.hotel.Image) == 0 {
		return nil
	}
	// image can be a plain URL or an array of them
	var single string
	if err := json.Unmarshal(pd.hotel.Image, &single); err == nil && single != "" {
		return &single
	}
	var many []string
	if err := json.Unmarshal(pd.hotel.Image, &many); err == nil && len(many) > 0 && many[0] != "" {
		return &many[0]
	}
	return nil
}

func ogImage(pd *pageDoc) *string {
	content, ok := pd.doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if !ok || content == "" {
		return nil
	}
	return &content
}

func jsonLDStarRating(pd *pageDoc) *float64 {
	if pd.hotel == nil {
		return nil
	}
	return clampRating(parseRawFloat(pd.hotel.StarRating.RatingValue))
}

func jsonLDDescription(pd *pageDoc) *string {
	if pd.hotel == nil || pd.hotel.Description == "" {
		return nil
	}
	desc := strings.TrimSpace(pd.hotel.Description)
	if desc == "" {
		return nil
	}
	return &desc
}

func metaDescription(pd *pageDoc) *string {
	content, ok := pd.doc.Find(`meta[name="description"]`).First().Attr("content")
	if !ok {
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	return &content
}

// matchPrice recovers a price following a fixed label phrase. Commas
// are stripped before parsing; anything unparseable yields nil.
func matchPrice(bodyText string, re *regexp.Regexp) *float64 {
	m := re.FindStringSubmatch(bodyText)
	if m == nil {
		return nil
	}
	return ParsePrice(m[1])
}

// ParsePrice converts price text like "1,234" or "£1,234" to a number.
// Returns nil rather than erroring on malformed input.
func ParsePrice(text string) *float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

func matchBoardBasis(bodyText string) *string {
	for _, phrase := range boardBasisPriority {
		if strings.Contains(bodyText, phrase) {
			p := phrase
			return &p
		}
	}
	return nil
}

// extractGalleryImages harvests image URLs from gallery-style
// containers plus any image hosted on the provider's own domain.
// First-seen order, deduplicated, capped.
func extractGalleryImages(doc *goquery.Document) []string {
	selectors := []string{
		`[class*="gallery"] img`,
		`[class*="carousel"] img`,
		`[class*="slider"] img`,
		`img[src*="jet2"]`,
		`img[data-src*="jet2"]`,
	}

	seen := make(map[string]bool)
	var urls []string

	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		if len(urls) < models.MaxGalleryImages {
			urls = append(urls, src)
		}
	}

	for _, sel := range selectors {
		if len(urls) >= models.MaxGalleryImages {
			break
		}
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if src, ok := s.Attr("src"); ok {
				add(src)
			} else if src, ok := s.Attr("data-src"); ok {
				add(src)
			}
		})
	}

	return urls
}

// extractAmenities prefers the JSON-LD amenity list, then list items
// under facilities-style containers, then icon-adjacent text spans.
func extractAmenities(pd *pageDoc) []string {
	seen := make(map[string]bool)
	var amenities []string

	add := func(text string) {
		text = cleanText(text)
		if text == "" || len(text) > maxAmenityLen || seen[text] {
			return
		}
		seen[text] = true
		if len(amenities) < models.MaxAmenities {
			amenities = append(amenities, text)
		}
	}

	if pd.hotel != nil {
		for _, a := range pd.hotel.AmenityFeature {
			add(a.Name)
		}
	}

	if len(amenities) == 0 {
		selectors := []string{
			`[class*="facilit"] li`,
			`[class*="amenit"] li`,
			`[class*="feature"] li`,
		}
		for _, sel := range selectors {
			pd.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				add(s.Text())
			})
		}
	}

	// Last resort: short labels sitting next to icons.
	if len(amenities) == 0 {
		pd.doc.Find(`i + span, svg + span`).Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if len(text) > 0 && len(text) <= 40 {
				add(text)
			}
		})
	}

	return amenities
}

// extractReviewStats pulls aggregate score and count, preferring the
// structured block over full-text patterns like "4.2/5" and "123 reviews".
func extractReviewStats(pd *pageDoc) (*float64, *int) {
	var score *float64
	var count *int

	if pd.hotel != nil {
		score = clampRating(parseRawFloat(pd.hotel.AggregateRating.RatingValue))
		if c := parseRawFloat(pd.hotel.AggregateRating.ReviewCount); c != nil && *c >= 0 {
			n := int(*c)
			count = &n
		}
	}

	if score == nil {
		if m := reviewScoreRe.FindStringSubmatch(pd.bodyText); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 5 {
				score = &v
			}
		}
	}

	if count == nil {
		if m := reviewCountRe.FindStringSubmatch(pd.bodyText); m != nil {
			cleaned := strings.ReplaceAll(m[1], ",", "")
			if n, err := strconv.Atoi(cleaned); err == nil && n >= 0 {
				count = &n
			}
		}
	}

	return score, count
}

// extractReviewSnippets harvests individual guest reviews from
// review/testimonial-style containers, stopping once the cap is hit.
func extractReviewSnippets(doc *goquery.Document) []models.ReviewSnippet {
	var reviews []models.ReviewSnippet
	seen := make(map[string]bool)

	doc.Find(`[class*="review"], [class*="testimonial"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if len(text) < 20 {
			return true
		}
		text = truncateRunes(text, maxReviewLen)
		if seen[text] {
			return true
		}
		seen[text] = true

		snippet := models.ReviewSnippet{Text: text}
		ratingText := s.Find(`[class*="rating"], [class*="score"]`).First().Text()
		if m := reviewScoreRe.FindStringSubmatch(ratingText); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 5 {
				snippet.Rating = &v
			}
		}

		reviews = append(reviews, snippet)
		return len(reviews) < models.MaxReviewSnippets
	})

	return reviews
}

// clampRating discards ratings outside the site's 0-5 scale, same
// bound the full-text patterns enforce.
func clampRating(v *float64) *float64 {
	if v == nil || *v < 0 || *v > 5 {
		return nil
	}
	return v
}

func parseRawFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &num
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return &v
		}
	}
	return nil
}

// truncateRunes cuts text to at most limit bytes without splitting a
// multi-byte rune.
func truncateRunes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// cleanText collapses runs of whitespace, matching how browsers render
// nested element text.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
