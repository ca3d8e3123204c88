// Package matcher decides whether a normalized Listing satisfies a user's
// stored UserFilter. It is the only component allowed to reject a listing
// on city grounds — the normalizer extracts city, it never filters on it.
package matcher

import (
	"strings"

	"aptwatch/internal/models"
)

// Match reports whether listing satisfies filter. Evaluation is strict
// order: city, then price, then rooms, then area, then keywords. Keywords
// are a permanent soft filter — matched for visibility only, they never
// reject a listing.
func Match(listing models.Listing, filter *models.UserFilter) bool {
	if filter == nil {
		return true
	}

	if !matchCity(listing.City, filter.City) {
		return false
	}
	if !matchBounds(listing.Price, filter.PriceMin, filter.PriceMax) {
		return false
	}
	if !matchBounds(listing.Rooms, filter.RoomsMin, filter.RoomsMax) {
		return false
	}
	if !matchBounds(listing.Area, filter.AreaMin, filter.AreaMax) {
		return false
	}
	return true
}

// matchCity performs a case-insensitive substring match in both
// directions: either the listing's city contains the filter's city, or
// the filter's city contains the listing's city. An unset filter city
// matches everything.
func matchCity(listingCity string, filterCity *string) bool {
	if filterCity == nil || *filterCity == "" {
		return true
	}
	if listingCity == "" {
		return false
	}
	a, b := strings.ToLower(listingCity), strings.ToLower(*filterCity)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// matchBounds enforces a numeric bound only when the listing's own value
// is known (> 0) and the bound is set (non-nil) and positive. A listing
// with an unknown/zero value always passes, since there is nothing to
// compare the bound against.
func matchBounds(value float64, min, max *float64) bool {
	if value <= 0 {
		return true
	}
	if min != nil && *min > 0 && value < *min {
		return false
	}
	if max != nil && *max > 0 && value > *max {
		return false
	}
	return true
}

// MatchedKeywords returns the subset of filter.Keywords found (as a
// case-insensitive substring) in the listing's title or description. The
// result never affects Match's outcome — keywords annotate, they don't
// filter.
func MatchedKeywords(listing models.Listing, filter *models.UserFilter) []string {
	if filter == nil || len(filter.Keywords) == 0 {
		return nil
	}
	haystack := strings.ToLower(listing.Title + " " + listing.Description)
	var hits []string
	for _, kw := range filter.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}
