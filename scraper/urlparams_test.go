package scraper

import "testing"

func TestDecodeURLFullListing(t *testing.T) {
	raw := "https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel-best-jacaranda?airport=7&date=10-06-2025&duration=7&board=4"
	p := DecodeURL(raw)

	if p.Country == nil || *p.Country != "Spain" {
		t.Fatalf("country = %v, want Spain", p.Country)
	}
	if p.Destination == nil || *p.Destination != "Tenerife" {
		t.Fatalf("destination = %v, want Tenerife", p.Destination)
	}
	if p.Resort == nil || *p.Resort != "Costa Adeje" {
		t.Fatalf("resort = %v, want Costa Adeje", p.Resort)
	}
	if p.DepartureAirport == nil || *p.DepartureAirport != "MAN" {
		t.Fatalf("airport = %v, want MAN", p.DepartureAirport)
	}
	if p.DepartureDate == nil || *p.DepartureDate != "2025-06-10" {
		t.Fatalf("date = %v, want 2025-06-10", p.DepartureDate)
	}
	if p.Duration == nil || *p.Duration != 7 {
		t.Fatalf("duration = %v, want 7", p.Duration)
	}
	if p.BoardBasis == nil || *p.BoardBasis != "All Inclusive" {
		t.Fatalf("board = %v, want All Inclusive", p.BoardBasis)
	}
}

func TestDecodeURLBoardBasisTable(t *testing.T) {
	want := map[int]string{
		1: "Bed and Breakfast",
		2: "Half Board",
		3: "Full Board",
		4: "All Inclusive",
		5: "Room Only",
		6: "Self Catering",
	}
	for code, label := range want {
		if got := BoardBasisLabel(code); got != label {
			t.Errorf("board %d = %q, want %q", code, got, label)
		}
	}
	if got := BoardBasisLabel(7); got != "" {
		t.Errorf("board 7 = %q, want empty", got)
	}
}

func TestDecodeURLAirportTable(t *testing.T) {
	want := map[int]string{
		1: "BHX", 2: "EMA", 3: "EDI", 4: "BFS", 5: "GLA",
		6: "LBA", 7: "MAN", 8: "NCL", 9: "STN",
	}
	for id, code := range want {
		if got := AirportCode(id); got != code {
			t.Errorf("airport %d = %q, want %q", id, got, code)
		}
	}
	if got := AirportCode(42); got != "" {
		t.Errorf("airport 42 = %q, want empty", got)
	}
}

func TestDecodeURLUnknownCodes(t *testing.T) {
	p := DecodeURL("https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel?airport=99&board=0")
	if p.DepartureAirport != nil {
		t.Errorf("unknown airport id should decode to nil, got %q", *p.DepartureAirport)
	}
	if p.BoardBasis != nil {
		t.Errorf("unknown board code should decode to nil, got %q", *p.BoardBasis)
	}
}

func TestDecodeURLMalformedValues(t *testing.T) {
	p := DecodeURL("https://www.jet2holidays.com/beach/greece/crete/elounda/some-hotel?airport=abc&date=2025-06-10&duration=-3&board=x")
	if p.DepartureAirport != nil || p.DepartureDate != nil || p.Duration != nil || p.BoardBasis != nil {
		t.Fatalf("malformed query values must all decode to nil: %+v", p)
	}
	if p.Country == nil || *p.Country != "Greece" {
		t.Fatalf("path decoding should survive bad query params, got country %v", p.Country)
	}
}

func TestDecodeURLShortPath(t *testing.T) {
	p := DecodeURL("https://www.jet2holidays.com/beach/spain")
	if p.Country != nil || p.Destination != nil || p.Resort != nil {
		t.Fatalf("two-segment path should yield no location fields: %+v", p)
	}
}

func TestDecodeURLDateValidation(t *testing.T) {
	cases := map[string]string{
		"10-06-2025": "2025-06-10",
		"01-01-2024": "2024-01-01",
		"31-12-2025": "2025-12-31",
		"32-01-2025": "",
		"10-13-2025": "",
		"10-06-25":   "",
		"":           "",
		"junk":       "",
	}
	for in, want := range cases {
		if got := parseJet2Date(in); got != want {
			t.Errorf("parseJet2Date(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTitleCaseSlug(t *testing.T) {
	cases := map[string]string{
		"costa-adeje":    "Costa Adeje",
		"spain":          "Spain",
		"playa-de-palma": "Playa De Palma",
	}
	for in, want := range cases {
		got := titleCasePtr(in)
		if got == nil || *got != want {
			t.Errorf("titleCasePtr(%q) = %v, want %q", in, got, want)
		}
	}
	if got := titleCasePtr(""); got != nil {
		t.Errorf("empty slug should yield nil, got %q", *got)
	}
}
