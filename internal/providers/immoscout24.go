package providers

import (
	"context"
	"fmt"

	"aptwatch/internal/models"
)

// ImmoScout24Adapter fetches listings via the ImmoScout24 Apify actor.
type ImmoScout24Adapter struct {
	client   *Client
	actorID  string
	startURL string // optional explicit override, takes precedence over a built URL
}

func NewImmoScout24Adapter(client *Client, actorID, startURL string) *ImmoScout24Adapter {
	return &ImmoScout24Adapter{client: client, actorID: actorID, startURL: startURL}
}

func (a *ImmoScout24Adapter) Source() string { return "immobilienscout24" }

func (a *ImmoScout24Adapter) Search(ctx context.Context, query models.Query, bypassCooldown bool) ([]models.Listing, error) {
	const cooldownKey = "immoscout24"
	if !a.client.CanRunNow(cooldownKey, bypassCooldown) {
		return []models.Listing{}, nil
	}

	city := query.City
	if city == "" {
		city = "Berlin"
	}

	url := a.startURL
	if url == "" {
		url = fmt.Sprintf("https://www.immobilienscout24.de/Suche/radius/wohnung-mieten?centerofsearchaddress=%s&enteredFrom=result_list", city)
	}
	payload := map[string]interface{}{"startUrl": url, "maxPagesToScrape": 1}

	items, err := runWithRetries(ctx, func(ctx context.Context) ([]map[string]interface{}, error) {
		return a.client.runAndFetch(ctx, a.actorID, payload)
	})
	a.client.MarkRun(cooldownKey)
	if err != nil {
		return nil, fmt.Errorf("providers: immoscout24 search: %w", err)
	}

	return convertItems(a.Source(), items, city), nil
}
