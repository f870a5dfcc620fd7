package availability

import (
	"testing"
	"time"

	"ferryline/pkg/model"
)

func TestSearchCache_SeedAndFind(t *testing.T) {
	cache := NewSearchCache()
	params := model.SearchParams{Route: "helsinki-tallinn", DepartureDate: time.Now(), Adults: 2}
	cache.Seed(params, []*model.SailingResult{testSailing("F-1"), testSailing("F-2")})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached sailings, got %d", cache.Len())
	}
	if cache.Find("F-2") == nil {
		t.Errorf("expected to find F-2")
	}
	if cache.Find("F-9") != nil {
		t.Errorf("expected nil for unknown sailing")
	}
	if cache.Params().Route != "helsinki-tallinn" {
		t.Errorf("params not retained")
	}
}

func TestSearchCache_ApplyMutatesInPlace(t *testing.T) {
	cache := NewSearchCache()
	cache.Seed(model.SearchParams{Route: "r"}, []*model.SailingResult{testSailing("F-1")})
	held := cache.Find("F-1")

	cache.Apply("F-1", model.AvailabilityDelta{
		ChangeType:       model.ChangeBookingCreated,
		PassengersBooked: 10,
	})

	if held.AvailableSpaces.Passengers != 90 {
		t.Errorf("expected held reference to see the mutation, got %d", held.AvailableSpaces.Passengers)
	}
}

func TestSearchCache_ReplaceSwapsOnlyMatching(t *testing.T) {
	cache := NewSearchCache()
	cache.Seed(model.SearchParams{Route: "r"}, []*model.SailingResult{testSailing("F-1"), testSailing("F-2")})

	fresh := testSailing("F-1")
	fresh.AvailableSpaces.Passengers = 7
	unknown := testSailing("F-9")
	cache.Replace([]*model.SailingResult{fresh, unknown})

	if got := cache.Find("F-1").AvailableSpaces.Passengers; got != 7 {
		t.Errorf("F-1 should be replaced with authoritative counts, got %d", got)
	}
	if cache.Find("F-9") != nil {
		t.Errorf("Replace must not add sailings that were not cached")
	}
	if cache.Len() != 2 {
		t.Errorf("cache size changed: %d", cache.Len())
	}
}

func TestSearchCache_ClearDiscardsEverything(t *testing.T) {
	cache := NewSearchCache()
	cache.Seed(model.SearchParams{Route: "r"}, []*model.SailingResult{testSailing("F-1")})
	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("expected empty cache after Clear")
	}
	if cache.Params().Route != "" {
		t.Errorf("expected params reset after Clear")
	}
}
