package matcher

import (
	"testing"

	"aptwatch/internal/models"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestMatchCityBothDirections(t *testing.T) {
	cases := []struct {
		listingCity, filterCity string
		want                    bool
	}{
		{"Berlin", "Berlin", true},
		{"Berlin Mitte", "Berlin", true},
		{"Berlin", "Berlin Mitte", true},
		{"Hamburg", "Berlin", false},
		{"", "Berlin", false},
	}
	for _, c := range cases {
		l := models.Listing{City: c.listingCity}
		got := matchCity(l.City, str(c.filterCity))
		if got != c.want {
			t.Errorf("matchCity(%q, %q) = %v, want %v", c.listingCity, c.filterCity, got, c.want)
		}
	}
}

func TestMatchBoundsOnlyIfPositive(t *testing.T) {
	if !matchBounds(0, f64(0), nil) {
		t.Errorf("zero min bound should not reject zero value")
	}
	if matchBounds(100, f64(500), nil) {
		t.Errorf("expected reject: below min")
	}
	if matchBounds(9999, nil, f64(1500)) {
		t.Errorf("expected reject: above max")
	}
	if !matchBounds(1000, f64(500), f64(1500)) {
		t.Errorf("expected accept: within bounds")
	}
	if !matchBounds(1000, nil, nil) {
		t.Errorf("unset bounds should accept anything")
	}
	if !matchBounds(0, f64(2), nil) {
		t.Errorf("unknown/zero listing value must skip the bound entirely, not reject")
	}
}

func TestMatchKeywordsNeverReject(t *testing.T) {
	listing := models.Listing{Title: "Wohnung ohne Balkon", Description: "keine Terrasse"}
	filter := &models.UserFilter{Keywords: []string{"Balkon", "Garten"}}
	if !Match(listing, filter) {
		t.Errorf("keywords must never cause rejection")
	}
	hits := MatchedKeywords(listing, filter)
	if len(hits) != 1 || hits[0] != "Balkon" {
		t.Errorf("expected only Balkon to match, got %v", hits)
	}
}

func TestMatchFullFilter(t *testing.T) {
	listing := models.Listing{City: "Berlin", Price: 1000, Rooms: 3, Area: 70}
	filter := &models.UserFilter{
		City:     str("Berlin"),
		PriceMin: f64(500),
		PriceMax: f64(1500),
		RoomsMin: f64(2),
		AreaMax:  f64(100),
	}
	if !Match(listing, filter) {
		t.Errorf("expected listing to match full filter")
	}

	filter.PriceMax = f64(800)
	if Match(listing, filter) {
		t.Errorf("expected listing to be rejected once price exceeds max")
	}
}

func TestMatchNilFilterAcceptsEverything(t *testing.T) {
	listing := models.Listing{City: "Anywhere"}
	if !Match(listing, nil) {
		t.Errorf("nil filter should accept everything")
	}
}
