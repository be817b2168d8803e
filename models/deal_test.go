package models

import (
	"fmt"
	"testing"
)

func TestNormalizeCapsAndDedupes(t *testing.T) {
	var images []string
	for i := 0; i < 15; i++ {
		images = append(images, fmt.Sprintf("https://cdn.example.com/img%d.jpg", i))
	}
	images = append(images, images[0], "")

	c := &DealCandidate{Images: images}
	c.Normalize()

	if len(c.Images) != MaxGalleryImages {
		t.Fatalf("images = %d, want cap of %d", len(c.Images), MaxGalleryImages)
	}
	for i, img := range c.Images {
		want := fmt.Sprintf("https://cdn.example.com/img%d.jpg", i)
		if img != want {
			t.Errorf("images[%d] = %q, want %q (first-seen order)", i, img, want)
		}
	}
	if c.Currency != "GBP" {
		t.Errorf("currency = %q, want GBP default", c.Currency)
	}
}

func TestNormalizeKeepsNilLists(t *testing.T) {
	c := &DealCandidate{}
	c.Normalize()
	if c.Images != nil || c.Amenities != nil {
		t.Errorf("nil lists should stay nil: %+v", c)
	}
}

func TestNormalizeTruncatesReviews(t *testing.T) {
	var reviews []ReviewSnippet
	for i := 0; i < 8; i++ {
		reviews = append(reviews, ReviewSnippet{Text: fmt.Sprintf("review number %d with enough text", i)})
	}
	c := &DealCandidate{Reviews: reviews}
	c.Normalize()
	if len(c.Reviews) != MaxReviewSnippets {
		t.Fatalf("reviews = %d, want %d", len(c.Reviews), MaxReviewSnippets)
	}
}

func TestSavings(t *testing.T) {
	price := 1250.0
	original := 1550.0
	c := &DealCandidate{Price: &price, OriginalPrice: &original}

	s := c.Savings()
	if s == nil || *s != 300 {
		t.Fatalf("savings = %v, want 300", s)
	}

	same := 1250.0
	c.OriginalPrice = &same
	if c.Savings() != nil {
		t.Error("no savings when original price equals current price")
	}

	c.OriginalPrice = nil
	if c.Savings() != nil {
		t.Error("no savings without an original price")
	}
}
