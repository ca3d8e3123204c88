// Package normalize projects heterogeneous provider items — raw,
// loosely-typed JSON payloads from Apify-style scraping actors — into the
// internal Listing schema. It is the single place provider shape diversity
// is absorbed: extraction rules are declarative ordered lists of
// field-probe strategies so adding a provider does not touch the rest of
// the core.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"aptwatch/internal/models"
)

// RawItem is a provider item represented as a dynamic value — the
// tagged-union-over-map/slice/scalar shape every Apify actor emits.
type RawItem map[string]interface{}

var priceFields = []string{
	"price", "rent", "priceValue", "totalPrice", "coldRent", "totalRent",
	"rentPerMonth", "priceMonthly", "baseRent", "netRent", "grossRent",
	"warmRent", "rentPrice", "monthlyRent", "rentalPrice",
	"miete", "kaltmiete", "warmmiete", "gesamtmiete", "price_text",
}

var roomFields = []string{
	"rooms", "numRooms", "numberOfRooms", "roomCount", "bedrooms",
	"livingRooms", "totalRooms", "zimmer", "anzahlZimmer", "roomsNum",
	"anzZimmer",
}

var areaFields = []string{
	"area", "livingSpace", "livingArea", "size", "squareMeters", "floorArea",
	"totalArea", "usableArea", "wohnflaeche", "wohnfläche", "flaeche", "fläche", "qm",
}

var imageFields = []string{
	"images", "imageUrls", "photos", "gallery", "pictures",
	"media", "attachments", "imageList", "photoUrls",
}

var urlFields = []string{"applicationUrl", "adUrl", "detailUrl", "url", "link", "shareLink"}

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{1,3}(?:[.,]\d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?)\s*€`),
	regexp.MustCompile(`(?i)€\s*(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*EUR`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*Euro`),
	regexp.MustCompile(`(?i)Kaltmiete:?\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`(?i)Warmmiete:?\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*€\s*/\s*Monat`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*€\s*mtl\.`),
}

var roomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:Zimmer|Zi\.|Zi|rooms?)`),
	regexp.MustCompile(`(?i)(?:Zimmer|Zi\.|Zi|rooms?)\s*(\d+(?:[.,]\d+)?)`),
}

var areaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m²`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*qm`),
	regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m\^2`),
	regexp.MustCompile(`(?i)Wohnfläche:?\s*(\d+(?:[.,]\d+)?)`),
	regexp.MustCompile(`(?i)Fläche:?\s*(\d+(?:[.,]\d+)?)`),
}

// pickNested performs a depth-first search for the first key in keys
// present (with a non-empty value) anywhere under obj.
func pickNested(obj interface{}, keys []string) interface{} {
	switch v := obj.(type) {
	case map[string]interface{}:
		for _, k := range keys {
			if val, ok := v[k]; ok && !isEmptyValue(val) {
				return val
			}
		}
		for _, val := range v {
			if r := pickNested(val, keys); r != nil {
				return r
			}
		}
	case []interface{}:
		for _, val := range v {
			if r := pickNested(val, keys); r != nil {
				return r
			}
		}
	}
	return nil
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseNumericString(n)
	default:
		return 0, false
	}
}

var leadingNumberRe = regexp.MustCompile(`[0-9][0-9.,\s]*`)

func parseNumericString(s string) (float64, bool) {
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer(".", "", " ", "", ",", ".").Replace(m)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func firstMatchFloat(patterns []*regexp.Regexp, text string) (float64, bool) {
	for _, p := range patterns {
		m := p.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		cleaned := strings.ReplaceAll(m[1], ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		// A decimal comma pattern (e.g. Zimmer/Area) uses "," as the decimal
		// separator directly; price patterns can have thousand-separator
		// dots. Re-derive using the comma-as-decimal convention when there's
		// exactly one comma and no dot in the original match.
		if strings.Count(m[1], ",") == 1 && !strings.Contains(m[1], ".") {
			cleaned = strings.ReplaceAll(m[1], ",", ".")
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err == nil && f > 0 {
			return f, true
		}
	}
	return 0, false
}

func extractPrice(item RawItem, source, title, description string) float64 {
	if source == "immowelt" {
		if hf, ok := item["hardFacts"].(map[string]interface{}); ok {
			if priceData, ok := hf["price"].(map[string]interface{}); ok {
				if f, ok := toFloat(priceData["value"]); ok && f > 0 {
					return f
				}
				if f, ok := toFloat(priceData["formatted"]); ok && f > 0 {
					return f
				}
			}
			if keyfacts, ok := hf["keyfacts"].([]interface{}); ok {
				for _, kf := range keyfacts {
					if s, ok := kf.(string); ok && strings.Contains(s, "€") {
						if f, ok := toFloat(s); ok && f > 0 {
							return f
						}
					}
				}
			}
		}
		if rd, ok := item["rawData"].(map[string]interface{}); ok {
			if f, ok := toFloat(rd["price"]); ok && f > 0 {
				return f
			}
		}
	}

	for _, key := range priceFields {
		if v, ok := item[key]; ok {
			if f, ok := toFloat(v); ok && f > 0 {
				return f
			}
			if nested, ok := v.(map[string]interface{}); ok {
				for _, k := range []string{"value", "amount", "text"} {
					if f, ok := toFloat(nested[k]); ok && f > 0 {
						return f
					}
				}
			}
		}
	}

	if f, ok := toFloat(pickNested(map[string]interface{}(item), append(append([]string{}, priceFields...), "amount", "value"))); ok && f > 0 {
		return f
	}

	if f, ok := firstMatchFloat(pricePatterns, title+" "+description); ok {
		return f
	}
	return 0
}

func extractRooms(item RawItem, source, title, description string) float64 {
	if source == "immowelt" {
		if hf, ok := item["hardFacts"].(map[string]interface{}); ok {
			if facts, ok := hf["facts"].([]interface{}); ok {
				for _, fraw := range facts {
					if f, ok := fraw.(map[string]interface{}); ok && f["type"] == "numberOfRooms" {
						if v, ok := toFloat(f["splitValue"]); ok && v > 0 {
							return v
						}
					}
				}
			}
			if keyfacts, ok := hf["keyfacts"].([]interface{}); ok {
				for _, kf := range keyfacts {
					if s, ok := kf.(string); ok && (strings.Contains(s, "Zimmer") || strings.Contains(s, "Zi.")) {
						if v, ok := toFloat(s); ok && v > 0 {
							return v
						}
					}
				}
			}
		}
		if rd, ok := item["rawData"].(map[string]interface{}); ok {
			if v, ok := toFloat(rd["nbroom"]); ok && v > 0 {
				return v
			}
		}
	}

	for _, key := range roomFields {
		if v, ok := item[key]; ok {
			if f, ok := toFloat(v); ok && f > 0 {
				return f
			}
		}
	}
	if f, ok := toFloat(pickNested(map[string]interface{}(item), roomFields)); ok && f > 0 {
		return f
	}
	if f, ok := firstMatchFloat(roomPatterns, title+" "+description); ok {
		return f
	}
	return 0
}

func extractArea(item RawItem, source, title, description string) float64 {
	if source == "immowelt" {
		if hf, ok := item["hardFacts"].(map[string]interface{}); ok {
			if facts, ok := hf["facts"].([]interface{}); ok {
				for _, fraw := range facts {
					if f, ok := fraw.(map[string]interface{}); ok && f["type"] == "livingSpace" {
						if v, ok := toFloat(f["splitValue"]); ok && v > 0 {
							return v
						}
					}
				}
			}
			if keyfacts, ok := hf["keyfacts"].([]interface{}); ok {
				for _, kf := range keyfacts {
					if s, ok := kf.(string); ok && (strings.Contains(s, "m²") || strings.Contains(s, "qm")) {
						if v, ok := toFloat(s); ok && v > 0 {
							return v
						}
					}
				}
			}
		}
		if rd, ok := item["rawData"].(map[string]interface{}); ok {
			if surface, ok := rd["surface"].(map[string]interface{}); ok {
				if v, ok := toFloat(surface["main"]); ok && v > 0 {
					return v
				}
			}
		}
	}

	for _, key := range areaFields {
		if v, ok := item[key]; ok {
			if f, ok := toFloat(v); ok && f > 0 {
				return f
			}
		}
	}
	if f, ok := toFloat(pickNested(map[string]interface{}(item), areaFields)); ok && f > 0 {
		return f
	}
	if f, ok := firstMatchFloat(areaPatterns, title+" "+description); ok {
		return f
	}
	return 0
}

func stringField(item RawItem, keys ...string) string {
	for _, k := range keys {
		if v, ok := item[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func extractAddress(item RawItem, source string) (city, district, street, postal string) {
	addr, _ := item["address"].(map[string]interface{})
	if addr == nil {
		if s, ok := item["address"].(string); ok {
			addr = map[string]interface{}{"full": s}
		}
	}

	if source == "immowelt" {
		if loc, ok := item["location"].(map[string]interface{}); ok {
			if la, ok := loc["address"].(map[string]interface{}); ok {
				if c, ok := la["city"].(string); ok && c != "" {
					city = c
				}
			}
		}
	}
	if city == "" && addr != nil {
		if c, ok := addr["city"].(string); ok {
			city = c
		}
	}
	if city == "" {
		city = stringField(item, "city")
	}

	if addr != nil {
		if d, ok := addr["district"].(string); ok && d != "" {
			district = d
		} else if d, ok := addr["suburb"].(string); ok && d != "" {
			district = d
		}
		if s, ok := addr["street"].(string); ok {
			street = s
		}
		if p, ok := addr["postalCode"].(string); ok {
			postal = p
		} else if p, ok := addr["zip"].(string); ok {
			postal = p
		}
	}
	if district == "" {
		district = stringField(item, "district", "neighborhood", "quarter")
	}
	return
}

func extractURL(item RawItem, source string) string {
	for _, k := range urlFields {
		if v, ok := item[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if v := pickNested(map[string]interface{}(item), urlFields); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if source == "immobilienscout24" || source == "is24" {
		id := stringField(item, "listingId", "adId", "id")
		if id != "" {
			return "https://www.immobilienscout24.de/expose/" + id
		}
	}
	return ""
}

var protoRelRe = regexp.MustCompile(`^(https?:)//([^/]+)`)

func normalizeImageURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	scheme, host := "https:", ""
	if m := protoRelRe.FindStringSubmatch(base); m != nil {
		scheme, host = m[1], m[2]
	}
	switch {
	case strings.HasPrefix(raw, "//"):
		return scheme + raw
	case strings.HasPrefix(raw, "/") && host != "":
		return scheme + "//" + host + raw
	default:
		return raw
	}
}

func extractImages(item RawItem, source, canonicalURL string) []string {
	var collected []string

	if source == "immowelt" {
		if gallery, ok := item["gallery"].(map[string]interface{}); ok {
			if imgs, ok := gallery["images"].([]interface{}); ok {
				for _, raw := range imgs {
					if m, ok := raw.(map[string]interface{}); ok {
						if u, ok := m["url"].(string); ok && strings.HasPrefix(u, "http") {
							collected = append(collected, u)
						}
					}
				}
			}
		}
	}

	for _, field := range imageFields {
		v, ok := item[field]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case []interface{}:
			for _, raw := range val {
				collected = append(collected, flattenImageValue(raw)...)
			}
		case string:
			collected = append(collected, val)
		case map[string]interface{}:
			collected = append(collected, flattenImageValue(val)...)
		}
	}

	if nested := pickNested(map[string]interface{}(item), imageFields); nested != nil {
		switch v := nested.(type) {
		case []interface{}:
			for _, raw := range v {
				collected = append(collected, flattenImageValue(raw)...)
			}
		case string:
			collected = append(collected, v)
		}
	}

	seen := make(map[string]bool, len(collected))
	var result []string
	for _, raw := range collected {
		u := normalizeImageURL(raw, canonicalURL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		result = append(result, u)
		if len(result) >= 10 {
			break
		}
	}
	return result
}

func flattenImageValue(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case map[string]interface{}:
		for _, key := range []string{"url", "src", "href"} {
			if s, ok := val[key].(string); ok && s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

// SurrogateID computes the stable identifier for a (source, canonicalURL,
// externalID) triple. It must be recomputed identically across
// re-ingestions of the same provider item.
func SurrogateID(source, canonicalURL, externalID string) string {
	base := canonicalURL + "|" + externalID
	sum := sha1.Sum([]byte(source + "|" + base))
	return fmt.Sprintf("apify_%s_%s", source, hex.EncodeToString(sum[:])[:20])
}

// Normalize projects a raw provider item into a Listing. The boolean
// return reports whether the item passed the meaningful-content gate; a
// false result means the listing must be discarded, not persisted.
func Normalize(source string, item RawItem, cityHint string) (models.Listing, bool) {
	title := stringField(item, "title", "name")
	if title == "" {
		title = "Apartment in " + cityHint
	}
	description := stringField(item, "description", "text", "descriptionText", "shortDescription", "summary", "teaser", "teaserText")
	if source == "immowelt" {
		if md, ok := item["mainDescription"].(map[string]interface{}); ok {
			if d := stringField(RawItem(md), "description", "headline"); len(d) > len(description) {
				description = d
			}
		}
	}

	price := extractPrice(item, source, title, description)
	rooms := extractRooms(item, source, title, description)
	area := extractArea(item, source, title, description)

	city, district, street, postal := extractAddress(item, source)
	if city == "" {
		city = cityHint
	}

	canonicalURL := extractURL(item, source)
	images := extractImages(item, source, canonicalURL)

	externalIDSeed := stringField(item, "id", "listingId")
	externalID := "apify_" + source + "_" + shortHash(canonicalURL+"|"+externalIDSeed)

	listing := models.Listing{
		Source:         source,
		ExternalID:     externalID,
		Title:          title,
		Description:    description,
		Price:          price,
		Rooms:          rooms,
		Area:           area,
		City:           city,
		District:       district,
		Street:         street,
		PostalCode:     postal,
		CanonicalURL:   canonicalURL,
		ApplicationURL: canonicalURL,
		Images:         images,
	}
	listing.SurrogateID = SurrogateID(source, canonicalURL, externalIDSeed)

	if !listing.MeaningfulContent() {
		return models.Listing{}, false
	}
	return listing, true
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:20]
}
