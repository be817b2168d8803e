package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestJet2HandlerScrapeURL(t *testing.T) {
	url := "https://www.jet2holidays.com/beach/spain/tenerife/costa-adeje/hotel-best-jacaranda?airport=7&date=10-06-2025&duration=7&board=2"
	renderer := &fakeRenderer{
		pages: map[string]string{url: dealPage("Hotel Best Jacaranda", 1398)},
	}

	handler := NewJet2Handler(renderer)
	candidate, err := handler.ScrapeURL(context.Background(), url)
	if err != nil {
		t.Fatalf("ScrapeURL: %v", err)
	}

	if candidate.URL != url {
		t.Errorf("candidate url = %q", candidate.URL)
	}
	if candidate.Title != "Hotel Best Jacaranda" {
		t.Errorf("title = %q", candidate.Title)
	}
	// page says All Inclusive, URL says Half Board; the page wins
	if candidate.BoardBasis == nil || *candidate.BoardBasis != "All Inclusive" {
		t.Errorf("board basis = %v", candidate.BoardBasis)
	}
	if candidate.Destination != "Costa Adeje, Tenerife, Spain" {
		t.Errorf("destination = %q", candidate.Destination)
	}

	if len(candidate.RawData) == 0 {
		t.Fatal("raw provenance blob missing")
	}
	var blob struct {
		Params    URLParams   `json:"params"`
		Extracted PageSignals `json:"extracted"`
	}
	if err := json.Unmarshal(candidate.RawData, &blob); err != nil {
		t.Fatalf("raw blob does not decode: %v", err)
	}
	if blob.Params.BoardBasis == nil || *blob.Params.BoardBasis != "Half Board" {
		t.Errorf("blob should preserve the URL-decoded board basis, got %v", blob.Params.BoardBasis)
	}
	if blob.Extracted.TotalPrice == nil || *blob.Extracted.TotalPrice != 1398 {
		t.Errorf("blob extracted price = %v", blob.Extracted.TotalPrice)
	}
}

func TestJet2HandlerRenderFailure(t *testing.T) {
	url := "https://www.jet2holidays.com/beach/spain/tenerife/r/h"
	renderer := &fakeRenderer{errs: map[string]error{url: fmt.Errorf("net::ERR_NAME_NOT_RESOLVED")}}

	_, err := NewJet2Handler(renderer).ScrapeURL(context.Background(), url)
	var rerr *RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("want *RenderError, got %v", err)
	}
	if rerr.URL != url {
		t.Errorf("render error url = %q", rerr.URL)
	}
}
