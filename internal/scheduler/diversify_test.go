package scheduler

import (
	"testing"

	"aptwatch/internal/models"
)

func listing(source, id string) models.Listing {
	return models.Listing{Source: source, SurrogateID: source + "_" + id}
}

func TestBlendBySourceAppliesQuotaThenFiller(t *testing.T) {
	listings := []models.Listing{
		listing("immowelt", "1"), listing("immowelt", "2"), listing("immowelt", "3"),
		listing("immobilienscout24", "1"), listing("immobilienscout24", "2"), listing("immobilienscout24", "3"),
		listing("kleinanzeigen", "1"), listing("kleinanzeigen", "2"), listing("kleinanzeigen", "3"),
	}
	quota := map[string]int{"immowelt": 2, "immobilienscout24": 2}
	blended := blendBySource(listings, quota, 2)

	counts := map[string]int{}
	for _, l := range blended {
		counts[l.Source]++
	}
	if counts["immowelt"] != 2 {
		t.Errorf("immowelt count = %d, want 2", counts["immowelt"])
	}
	if counts["immobilienscout24"] != 2 {
		t.Errorf("immobilienscout24 count = %d, want 2", counts["immobilienscout24"])
	}
	if counts["kleinanzeigen"] != 2 {
		t.Errorf("kleinanzeigen filler count = %d, want 2 (fillerLimit)", counts["kleinanzeigen"])
	}
	if len(blended) != 6 {
		t.Errorf("total blended = %d, want 6", len(blended))
	}
}

func TestBlendBySourceDedups(t *testing.T) {
	l := listing("immowelt", "1")
	blended := blendBySource([]models.Listing{l, l, l}, map[string]int{"immowelt": 2}, 2)
	if len(blended) != 1 {
		t.Errorf("expected duplicate surrogate ids to collapse to 1, got %d", len(blended))
	}
}

func TestBlendBySourceUnknownSourceGoesToFiller(t *testing.T) {
	listings := []models.Listing{listing("craigslist", "1"), listing("craigslist", "2"), listing("craigslist", "3")}
	blended := blendBySource(listings, map[string]int{"immowelt": 2}, 2)
	if len(blended) != 2 {
		t.Errorf("expected filler cap of 2 for unknown source, got %d", len(blended))
	}
}
