package providers

import (
	"context"
	"fmt"

	"aptwatch/internal/models"
)

// KleinanzeigenAdapter fetches listings via the Kleinanzeigen Apify actor.
// Unlike ImmoScout24 and Immowelt it has no URL cascade: the actor takes
// structured search terms directly.
type KleinanzeigenAdapter struct {
	client  *Client
	actorID string
}

func NewKleinanzeigenAdapter(client *Client, actorID string) *KleinanzeigenAdapter {
	return &KleinanzeigenAdapter{client: client, actorID: actorID}
}

func (a *KleinanzeigenAdapter) Source() string { return "kleinanzeigen" }

func (a *KleinanzeigenAdapter) Search(ctx context.Context, query models.Query, bypassCooldown bool) ([]models.Listing, error) {
	const cooldownKey = "kleinanzeigen"
	if !a.client.CanRunNow(cooldownKey, bypassCooldown) {
		return []models.Listing{}, nil
	}

	city := query.City
	if city == "" {
		city = "Berlin"
	}
	payload := map[string]interface{}{
		"locationName": city,
		"category":     "wohnungen-mieten",
	}

	items, err := runWithRetries(ctx, func(ctx context.Context) ([]map[string]interface{}, error) {
		return a.client.runAndFetch(ctx, a.actorID, payload)
	})
	a.client.MarkRun(cooldownKey)
	if err != nil {
		return nil, fmt.Errorf("providers: kleinanzeigen search: %w", err)
	}

	return convertItems(a.Source(), items, city), nil
}
