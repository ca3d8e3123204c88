package normalize

import "testing"

func TestNormalizeExtractsCoreFields(t *testing.T) {
	item := RawItem{
		"title":       "Helle 2-Zimmer Wohnung in Berlin Mitte",
		"description": "Schöne Wohnung mit Balkon, Kaltmiete 950 EUR, 65 qm, 2 Zimmer.",
		"price":       950.0,
		"rooms":       2.0,
		"area":        65.0,
		"city":        "Berlin",
		"url":         "https://www.immobilienscout24.de/expose/12345",
		"id":          "12345",
	}

	listing, ok := Normalize("immobilienscout24", item, "Berlin")
	if !ok {
		t.Fatalf("expected meaningful content, got discarded")
	}
	if listing.Price != 950 {
		t.Errorf("price = %v, want 950", listing.Price)
	}
	if listing.Rooms != 2 {
		t.Errorf("rooms = %v, want 2", listing.Rooms)
	}
	if listing.Area != 65 {
		t.Errorf("area = %v, want 65", listing.Area)
	}
	if listing.City != "Berlin" {
		t.Errorf("city = %q, want Berlin", listing.City)
	}
	if listing.SurrogateID == "" {
		t.Errorf("expected non-empty surrogate id")
	}
}

func TestNormalizeFallsBackToRegexOnMissingFields(t *testing.T) {
	item := RawItem{
		"title":       "3 Zimmer Altbauwohnung, 85 m², Kaltmiete: 1200 €",
		"description": "Tolle Lage im Herzen von Köln.",
		"url":         "https://www.example.com/listing/1",
		"id":          "1",
	}

	listing, ok := Normalize("immobilienscout24", item, "Köln")
	if !ok {
		t.Fatalf("expected meaningful content")
	}
	if listing.Price != 1200 {
		t.Errorf("price = %v, want 1200 from regex fallback", listing.Price)
	}
	if listing.Rooms != 3 {
		t.Errorf("rooms = %v, want 3 from regex fallback", listing.Rooms)
	}
	if listing.Area != 85 {
		t.Errorf("area = %v, want 85 from regex fallback", listing.Area)
	}
}

func TestNormalizeDiscardsEmptyContent(t *testing.T) {
	item := RawItem{
		"title": "x",
	}
	_, ok := Normalize("immobilienscout24", item, "Berlin")
	if ok {
		t.Errorf("expected listing with no meaningful content to be discarded")
	}
}

func TestNormalizeImmoweltHardFacts(t *testing.T) {
	item := RawItem{
		"title": "Moderne Wohnung mit Einbauküche",
		"hardFacts": map[string]interface{}{
			"facts": []interface{}{
				map[string]interface{}{"type": "numberOfRooms", "splitValue": 3.0},
				map[string]interface{}{"type": "livingSpace", "splitValue": 72.0},
			},
			"price": map[string]interface{}{"value": 1100.0},
		},
		"url": "https://www.immowelt.de/expose/abc123",
		"id":  "abc123",
	}

	listing, ok := Normalize("immowelt", item, "Berlin")
	if !ok {
		t.Fatalf("expected meaningful content")
	}
	if listing.Price != 1100 {
		t.Errorf("price = %v, want 1100", listing.Price)
	}
	if listing.Rooms != 3 {
		t.Errorf("rooms = %v, want 3", listing.Rooms)
	}
	if listing.Area != 72 {
		t.Errorf("area = %v, want 72", listing.Area)
	}
}

func TestSurrogateIDStableAcrossReingestion(t *testing.T) {
	id1 := SurrogateID("immowelt", "https://x/1", "p1")
	id2 := SurrogateID("immowelt", "https://x/1", "p1")
	if id1 != id2 {
		t.Errorf("surrogate id not stable: %q != %q", id1, id2)
	}
	id3 := SurrogateID("immowelt", "https://x/2", "p1")
	if id1 == id3 {
		t.Errorf("surrogate id collided across different urls")
	}
}

func TestNormalizeImageDedupAndCap(t *testing.T) {
	imgs := make([]interface{}, 0, 15)
	for i := 0; i < 15; i++ {
		imgs = append(imgs, "https://img.example.com/a.jpg")
	}
	item := RawItem{
		"title":  "Wohnung mit vielen Bildern und Balkon in ruhiger Lage",
		"images": imgs,
		"url":    "https://www.example.com/listing/2",
		"id":     "2",
	}
	listing, ok := Normalize("immobilienscout24", item, "Berlin")
	if !ok {
		t.Fatalf("expected meaningful content")
	}
	if len(listing.Images) != 1 {
		t.Errorf("expected dedup to collapse to 1 image, got %d", len(listing.Images))
	}
}
