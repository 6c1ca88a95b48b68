package services

import (
	"testing"
	"time"

	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerAt(utils.LevelError) }

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want float64
	}{
		{"$120 night", 120},
		{"฿3,500 /night", 3500},
		{"", 0},
		{"free", 0},
		{"$1,200.50", 1200.50},
		{"USD 99", 99},
		{"$450 for 3 nights", 150},
	}

	for _, tt := range tests {
		got := c.parsePrice(tt.raw)
		if got != tt.want {
			t.Errorf("parsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerParseBedrooms(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want int
	}{
		{"2 beds", 2},
		{"1 bedroom", 1},
		{"Studio · 3 bedrooms · 2 baths", 3},
		{"4 bed", 4},
		{"", 0},
		{"studio", 0},
	}

	for _, tt := range tests {
		got := c.parseBedrooms(tt.raw)
		if got != tt.want {
			t.Errorf("parseBedrooms(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerParseBathrooms(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want float64
	}{
		{"2 baths", 2},
		{"1.5 bathrooms", 1.5},
		{"1 bath", 1},
		{"", 0},
		{"shared", 0},
	}

	for _, tt := range tests {
		got := c.parseBathrooms(tt.raw)
		if got != tt.want {
			t.Errorf("parseBathrooms(%q) = %.1f; want %.1f", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerDropsUnusableRecords(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawOffer{
		{Name: "No link", RawPrice: "$100", ScrapedAt: time.Now()},
		{Name: "No price", RawPrice: "call us", Link: "https://airbnb.com/rooms/7", ScrapedAt: time.Now()},
		{Name: "Keeper", RawPrice: "$200", Link: "https://airbnb.com/rooms/1", Location: "Bangkok, Thailand", ScrapedAt: time.Now()},
	}

	cleaned := c.Clean(raw, NewRegionIndex())
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 offer after cleaning, got %d", len(cleaned))
	}
	if cleaned[0].ID != "offer-1" {
		t.Errorf("offer id: got %s, want offer-1", cleaned[0].ID)
	}
	if cleaned[0].Properties.Price != 200 {
		t.Errorf("price: got %v", cleaned[0].Properties.Price)
	}
}

func TestCleanerDeduplicatesLink(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawOffer{
		{Name: "A", RawPrice: "$100", Link: "https://airbnb.com/rooms/1", ScrapedAt: time.Now()},
		{Name: "B", RawPrice: "$150", Link: "https://airbnb.com/rooms/1", ScrapedAt: time.Now()},
	}

	cleaned := c.Clean(raw, NewRegionIndex())
	if len(cleaned) != 1 {
		t.Errorf("expected 1 offer after deduplication, got %d", len(cleaned))
	}
}

func TestCleanerTargetsRegions(t *testing.T) {
	c := NewCleaner(newTestLogger())
	regions := NewRegionIndex()
	raw := []*models.RawOffer{
		{Name: "A", RawPrice: "$100", RawBeds: "2 beds", RawBaths: "1 bath",
			Link: "https://airbnb.com/rooms/1", Location: "Sukhumvit, Bangkok, Thailand"},
		{Name: "B", RawPrice: "$150", Link: "https://airbnb.com/rooms/2",
			Location: "Sathorn, Bangkok, Thailand"},
		{Name: "C", RawPrice: "$90", Link: "https://airbnb.com/rooms/3", Location: ""},
	}

	cleaned := c.Clean(raw, regions)
	if len(cleaned) != 3 {
		t.Fatalf("cleaned: %d", len(cleaned))
	}
	if cleaned[0].Target != "sukhumvit" {
		t.Errorf("A target: got %s", cleaned[0].Target)
	}
	if cleaned[1].Target != "sathorn" {
		t.Errorf("B target: got %s", cleaned[1].Target)
	}
	if cleaned[2].Target != UnlocatedID {
		t.Errorf("C target: got %s, want %s", cleaned[2].Target, UnlocatedID)
	}
	if cleaned[0].Properties.Bedrooms != 2 || cleaned[0].Properties.Bathrooms != 1 {
		t.Errorf("A properties: %+v", cleaned[0].Properties)
	}

	// thailand > bangkok > {sukhumvit, sathorn} plus unlocated.
	if regions.Len() != 5 {
		t.Errorf("regions created: got %d, want 5", regions.Len())
	}
}
