package providers

import (
	"strings"
	"testing"

	"aptwatch/internal/models"
)

func TestBuildURLCascadeUsesLocationIDForKnownCity(t *testing.T) {
	a := NewImmoweltAdapter(nil, "actor", true, "")
	urls := a.buildURLCascade(models.Query{City: "Berlin"})
	if len(urls) != 3 {
		t.Fatalf("expected 3-tier cascade, got %d", len(urls))
	}
	if !strings.Contains(urls[0], "locations=AD08DE6681") {
		t.Errorf("expected known location id in full url, got %s", urls[0])
	}
	if strings.Contains(urls[2], "priceMin") || strings.Contains(urls[2], "numberOfRoomsMin") {
		t.Errorf("location-only fallback should drop all price/room params: %s", urls[2])
	}
}

func TestBuildURLCascadeRelaxedDropsMinParamsOnly(t *testing.T) {
	priceMin, priceMax := 500.0, 1500.0
	a := NewImmoweltAdapter(nil, "actor", true, "")
	urls := a.buildURLCascade(models.Query{City: "Berlin", PriceMin: &priceMin, PriceMax: &priceMax})

	if !strings.Contains(urls[0], "priceMin=500") || !strings.Contains(urls[0], "priceMax=1500") {
		t.Errorf("full url missing price params: %s", urls[0])
	}
	if strings.Contains(urls[1], "priceMin=") {
		t.Errorf("relaxed url should drop priceMin: %s", urls[1])
	}
	if !strings.Contains(urls[1], "priceMax=1500") {
		t.Errorf("relaxed url should keep priceMax: %s", urls[1])
	}
}

func TestBuildURLCascadeExplicitURLRewritesBuyToRent(t *testing.T) {
	a := NewImmoweltAdapter(nil, "actor", true, "https://www.immowelt.de/classified-search?distributionTypes=Buy&estateTypes=Apartment")
	urls := a.buildURLCascade(models.Query{})
	if len(urls) != 1 {
		t.Fatalf("explicit url should short-circuit cascade, got %d urls", len(urls))
	}
	if !strings.Contains(urls[0], "distributionTypes=Rent") {
		t.Errorf("expected Buy to be rewritten to Rent: %s", urls[0])
	}
}

func TestImmoweltAdapterDisabledReturnsEmpty(t *testing.T) {
	a := NewImmoweltAdapter(nil, "actor", false, "")
	listings, err := a.Search(nil, models.Query{City: "Berlin"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("expected empty result when disabled, got %d", len(listings))
	}
}
