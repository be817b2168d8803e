package scraper

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Jet2 encodes airports and board basis as numeric IDs in the query
// string. Both tables must stay in sync with the IDs the site itself
// uses or previously captured URLs stop decoding.
var jet2Airports = map[int]string{
	1: "BHX", // Birmingham
	2: "EMA", // East Midlands
	3: "EDI", // Edinburgh
	4: "BFS", // Belfast International
	5: "GLA", // Glasgow
	6: "LBA", // Leeds Bradford
	7: "MAN", // Manchester
	8: "NCL", // Newcastle
	9: "STN", // London Stansted
}

var jet2BoardBasis = map[int]string{
	1: "Bed and Breakfast",
	2: "Half Board",
	3: "Full Board",
	4: "All Inclusive",
	5: "Room Only",
	6: "Self Catering",
}

// URLParams carries everything decodable from a listing URL alone.
// Missing or malformed values come through as nil; this stage never
// fails the pipeline.
type URLParams struct {
	Country          *string `json:"country"`
	Destination      *string `json:"destination"`
	Resort           *string `json:"resort"`
	DepartureAirport *string `json:"departureAirport"`
	DepartureDate    *string `json:"departureDate"` // ISO yyyy-mm-dd
	Duration         *int    `json:"duration"`      // nights
	BoardBasis       *string `json:"boardBasis"`
}

// DecodeURL extracts location and booking parameters from a Jet2
// listing URL. Path convention: /beach/<country>/<destination>/<resort>/<hotel>.
func DecodeURL(rawURL string) URLParams {
	var p URLParams

	u, err := url.Parse(rawURL)
	if err != nil {
		return p
	}

	parts := splitPath(u.Path)
	if len(parts) >= 3 {
		p.Country = titleCasePtr(parts[1])
		p.Destination = titleCasePtr(parts[2])
		if len(parts) >= 4 {
			p.Resort = titleCasePtr(parts[3])
		}
	}

	q := u.Query()

	if id, err := strconv.Atoi(q.Get("airport")); err == nil {
		if code, ok := jet2Airports[id]; ok {
			p.DepartureAirport = &code
		}
	}

	if iso := parseJet2Date(q.Get("date")); iso != "" {
		p.DepartureDate = &iso
	}

	if nights, err := strconv.Atoi(q.Get("duration")); err == nil && nights > 0 {
		p.Duration = &nights
	}

	if id, err := strconv.Atoi(q.Get("board")); err == nil {
		if label, ok := jet2BoardBasis[id]; ok {
			p.BoardBasis = &label
		}
	}

	return p
}

// BoardBasisLabel maps a numeric Jet2 board code to its catering label,
// or "" for unknown codes.
func BoardBasisLabel(code int) string {
	return jet2BoardBasis[code]
}

// AirportCode maps a numeric Jet2 airport ID to its IATA code, or ""
// for unknown IDs.
func AirportCode(id int) string {
	return jet2Airports[id]
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// titleCasePtr converts a URL slug like "costa-adeje" to "Costa Adeje".
func titleCasePtr(slug string) *string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	s := strings.Join(words, " ")
	if s == "" {
		return nil
	}
	return &s
}

// parseJet2Date converts the site's dd-mm-yyyy format to ISO
// yyyy-mm-dd. Returns "" when the input doesn't fit the format.
func parseJet2Date(dateStr string) string {
	if dateStr == "" {
		return ""
	}
	parts := strings.Split(dateStr, "-")
	if len(parts) != 3 {
		return ""
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return ""
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return ""
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1000 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
