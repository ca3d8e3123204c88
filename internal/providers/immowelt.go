package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"aptwatch/internal/models"
)

// immoweltLocationIDs maps lowercased, alias-normalized city names to
// Immowelt's internal location identifiers, used to narrow
// classified-search URLs beyond a free-text locations= parameter.
var immoweltLocationIDs = map[string]string{
	"berlin": "AD08DE6681", "hamburg": "AD08DE6683",
	"münchen": "AD08DE6679", "muenchen": "AD08DE6679", "munich": "AD08DE6679",
	"köln": "AD08DE6748", "koeln": "AD08DE6748", "cologne": "AD08DE6748",
	"frankfurt am main": "AD08DE6678", "frankfurt": "AD08DE6678",
	"stuttgart": "AD08DE6691",
	"düsseldorf": "AD08DE6698", "duesseldorf": "AD08DE6698", "dusseldorf": "AD08DE6698",
	"leipzig": "AD08DE6707", "dortmund": "AD08DE6696", "essen": "AD08DE6700",
	"bremen": "AD08DE6685", "dresden": "AD08DE6695",
}

var immoweltCityLabels = map[string]string{
	"muenchen": "München", "munich": "München",
	"koeln": "Köln", "cologne": "Köln",
	"duesseldorf": "Düsseldorf", "dusseldorf": "Düsseldorf",
}

// ImmoweltAdapter fetches listings via the Immowelt Apify actor. It is
// feature-flagged off by default because the underlying actor has
// historically been prone to 403s.
type ImmoweltAdapter struct {
	client   *Client
	actorID  string
	enabled  bool
	startURL string
}

func NewImmoweltAdapter(client *Client, actorID string, enabled bool, startURL string) *ImmoweltAdapter {
	return &ImmoweltAdapter{client: client, actorID: actorID, enabled: enabled, startURL: startURL}
}

func (a *ImmoweltAdapter) Source() string { return "immowelt" }

func (a *ImmoweltAdapter) Search(ctx context.Context, query models.Query, bypassCooldown bool) ([]models.Listing, error) {
	if !a.enabled {
		return []models.Listing{}, nil
	}
	const cooldownKey = "immowelt"
	if !a.client.CanRunNow(cooldownKey, bypassCooldown) {
		return []models.Listing{}, nil
	}

	urls := a.buildURLCascade(query)

	var items []map[string]interface{}
	var err error
	for _, u := range urls {
		payload := map[string]interface{}{"startUrl": u, "maxPagesToScrape": 1}
		items, err = runWithRetries(ctx, func(ctx context.Context) ([]map[string]interface{}, error) {
			return a.client.runAndFetch(ctx, a.actorID, payload)
		})
		if len(items) > 0 {
			break
		}
	}
	a.client.MarkRun(cooldownKey)
	if len(items) == 0 && err != nil {
		return nil, fmt.Errorf("providers: immowelt search exhausted url cascade: %w", err)
	}

	return convertItems(a.Source(), items, query.City), nil
}

// buildURLCascade returns the full, relaxed, and location-only
// classified-search URLs, in that order. A caller-supplied explicit
// startURL short-circuits the cascade to a single entry; a URL
// misconfigured for purchase listings is rewritten to rent.
func (a *ImmoweltAdapter) buildURLCascade(query models.Query) []string {
	if a.startURL != "" {
		fixed := strings.ReplaceAll(a.startURL, "distributionTypes=Buy,Buy_Auction", "distributionTypes=Rent")
		fixed = strings.ReplaceAll(fixed, "distributionTypes=Buy", "distributionTypes=Rent")
		return []string{fixed}
	}

	city := query.City
	if city == "" {
		city = "Berlin"
	}
	cityKey := strings.ToLower(strings.TrimSpace(city))

	params := []string{"distributionTypes=Rent", "estateTypes=Apartment"}
	if loc, ok := immoweltLocationIDs[cityKey]; ok {
		params = append(params, "locations="+loc)
	} else {
		label := city
		if l, ok := immoweltCityLabels[cityKey]; ok {
			label = l
		}
		params = append(params, "locations="+url.QueryEscape(label))
	}

	fullParams := append([]string{}, params...)
	if query.PriceMin != nil {
		fullParams = append(fullParams, "priceMin="+strconv.Itoa(int(*query.PriceMin)))
	}
	if query.PriceMax != nil {
		fullParams = append(fullParams, "priceMax="+strconv.Itoa(int(*query.PriceMax)))
	}
	if query.RoomsMin != nil {
		fullParams = append(fullParams, "numberOfRoomsMin="+strconv.Itoa(int(*query.RoomsMin)))
	}
	if query.RoomsMax != nil {
		fullParams = append(fullParams, "numberOfRoomsMax="+strconv.Itoa(int(*query.RoomsMax)))
	}

	const base = "https://www.immowelt.de/classified-search"
	full := base + "?" + strings.Join(fullParams, "&")

	var relaxedParams []string
	for _, p := range fullParams {
		if strings.HasPrefix(p, "priceMin=") || strings.HasPrefix(p, "numberOfRoomsMin=") {
			continue
		}
		relaxedParams = append(relaxedParams, p)
	}
	relaxed := base + "?" + strings.Join(relaxedParams, "&")

	locationOnly := base + "?" + strings.Join(params, "&")

	return []string{full, relaxed, locationOnly}
}
