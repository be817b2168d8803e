package scraper

import "testing"

func strPtr(s string) *string    { return &s }
func intPtr(i int) *int          { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestComputeReturnDate(t *testing.T) {
	got := computeReturnDate(strPtr("2025-06-10"), intPtr(7))
	if got == nil || *got != "2025-06-17" {
		t.Fatalf("return date = %v, want 2025-06-17", got)
	}

	if got := computeReturnDate(nil, intPtr(7)); got != nil {
		t.Errorf("missing departure should yield nil, got %q", *got)
	}
	if got := computeReturnDate(strPtr("2025-06-10"), nil); got != nil {
		t.Errorf("missing duration should yield nil, got %q", *got)
	}
	if got := computeReturnDate(strPtr("garbage"), intPtr(7)); got != nil {
		t.Errorf("unparseable departure should yield nil, got %q", *got)
	}

	// month rollover
	got = computeReturnDate(strPtr("2025-01-28"), intPtr(7))
	if got == nil || *got != "2025-02-04" {
		t.Fatalf("rollover return date = %v, want 2025-02-04", got)
	}
}

func TestDestinationLabel(t *testing.T) {
	full := URLParams{
		Country:     strPtr("Spain"),
		Destination: strPtr("Tenerife"),
		Resort:      strPtr("Costa Adeje"),
	}
	if got := destinationLabel(full); got != "Costa Adeje, Tenerife, Spain" {
		t.Errorf("full label = %q", got)
	}

	countryOnly := URLParams{Country: strPtr("Spain")}
	if got := destinationLabel(countryOnly); got != "Spain" {
		t.Errorf("country-only label = %q", got)
	}

	if got := destinationLabel(URLParams{}); got != "Unknown" {
		t.Errorf("empty label = %q, want Unknown", got)
	}
}

func TestReconcileBoardBasisPrecedence(t *testing.T) {
	params := URLParams{BoardBasis: strPtr("Half Board")}
	sig := &PageSignals{
		HotelName:  strPtr("Hotel Best Jacaranda"),
		TotalPrice: floatPtr(1398),
		BoardBasis: strPtr("All Inclusive"),
	}

	c := Reconcile("https://example.com/deal", Jet2BaseURL, params, sig)
	if c.BoardBasis == nil || *c.BoardBasis != "All Inclusive" {
		t.Fatalf("page board basis should win, got %v", c.BoardBasis)
	}

	sig.BoardBasis = nil
	c = Reconcile("https://example.com/deal", Jet2BaseURL, params, sig)
	if c.BoardBasis == nil || *c.BoardBasis != "Half Board" {
		t.Fatalf("URL board basis should fall through, got %v", c.BoardBasis)
	}
}

func TestReconcileTravelFieldsComeFromURL(t *testing.T) {
	params := URLParams{
		DepartureAirport: strPtr("MAN"),
		DepartureDate:    strPtr("2025-06-10"),
		Duration:         intPtr(7),
	}
	sig := &PageSignals{HotelName: strPtr("Sol Arona"), TotalPrice: floatPtr(899)}

	c := Reconcile("https://example.com/deal", Jet2BaseURL, params, sig)
	if c.DepartureAirport == nil || *c.DepartureAirport != "MAN" {
		t.Errorf("airport = %v", c.DepartureAirport)
	}
	if c.ReturnDate == nil || *c.ReturnDate != "2025-06-17" {
		t.Errorf("return date = %v, want 2025-06-17", c.ReturnDate)
	}
	if c.Title != "Sol Arona" {
		t.Errorf("title = %q, want hotel name", c.Title)
	}
	if c.Currency != "GBP" {
		t.Errorf("currency = %q, want GBP", c.Currency)
	}
}

func TestReconcileResolvesImageURLs(t *testing.T) {
	sig := &PageSignals{
		ImageURL:      strPtr("/images/hero.jpg"),
		GalleryImages: []string{"//cdn.jet2holidays.com/a.jpg", "https://cdn.jet2holidays.com/b.jpg", "/images/c.jpg"},
	}

	c := Reconcile("https://example.com/deal", Jet2BaseURL, URLParams{}, sig)
	if c.ImageURL == nil || *c.ImageURL != "https://www.jet2holidays.com/images/hero.jpg" {
		t.Errorf("image url = %v", c.ImageURL)
	}
	want := []string{
		"https://cdn.jet2holidays.com/a.jpg",
		"https://cdn.jet2holidays.com/b.jpg",
		"https://www.jet2holidays.com/images/c.jpg",
	}
	if len(c.Images) != len(want) {
		t.Fatalf("got %d images, want %d", len(c.Images), len(want))
	}
	for i := range want {
		if c.Images[i] != want[i] {
			t.Errorf("images[%d] = %q, want %q", i, c.Images[i], want[i])
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	cases := map[string]string{
		"https://x.com/a.jpg": "https://x.com/a.jpg",
		"http://x.com/a.jpg":  "http://x.com/a.jpg",
		"//cdn.x.com/a.jpg":   "https://cdn.x.com/a.jpg",
		"/images/a.jpg":       "https://www.jet2holidays.com/images/a.jpg",
	}
	for in, want := range cases {
		if got := AbsoluteURL(in, Jet2BaseURL); got != want {
			t.Errorf("AbsoluteURL(%q) = %q, want %q", in, got, want)
		}
	}
}
