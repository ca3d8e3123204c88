package providers

import (
	"context"
	"time"

	"aptwatch/internal/models"
	"aptwatch/internal/normalize"
)

// Adapter fetches and normalizes listings for one source.
type Adapter interface {
	// Source is the stable source tag written onto every Listing this
	// adapter produces (e.g. "immobilienscout24").
	Source() string
	// Search runs the shared six-step algorithm: cooldown gate, URL
	// cascade, run-and-fetch with retries, conversion, filtering out
	// discarded items. It returns an empty, non-nil slice when cooled
	// down or when every URL in the cascade comes back empty. When
	// bypassCooldown is true the cooldown gate is skipped for this one
	// call, used by the operational API's force-check trigger.
	Search(ctx context.Context, query models.Query, bypassCooldown bool) ([]models.Listing, error)
}

// retryBackoffs mirrors the fixed 3-attempt backoff schedule used for the
// flakier actors (decreasing tolerance for failure as attempts mount).
var retryBackoffs = []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond, 3000 * time.Millisecond}

// runWithRetries runs fn up to len(retryBackoffs) times, sleeping
// retryBackoffs[attempt] after a failed attempt before the next one,
// stopping at the first attempt that returns a non-empty item slice.
func runWithRetries(ctx context.Context, fn func(ctx context.Context) ([]map[string]interface{}, error)) ([]map[string]interface{}, error) {
	var lastErr error
	for attempt := 0; attempt < len(retryBackoffs); attempt++ {
		items, err := fn(ctx)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err != nil {
			lastErr = err
		}
		if attempt == len(retryBackoffs)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoffs[attempt]):
		}
	}
	return nil, lastErr
}

// convertItems normalizes raw provider items into Listings, dropping any
// that fail the meaningful-content gate.
func convertItems(source string, items []map[string]interface{}, cityHint string) []models.Listing {
	out := make([]models.Listing, 0, len(items))
	for _, item := range items {
		listing, ok := normalize.Normalize(source, normalize.RawItem(item), cityHint)
		if !ok {
			continue
		}
		out = append(out, listing)
	}
	return out
}

// runAndFetch performs one actor invocation: synchronous run-sync-get-items
// when syncRun is enabled, else an async start-then-poll.
func (c *Client) runAndFetch(ctx context.Context, actorID string, payload interface{}) ([]map[string]interface{}, error) {
	if c.SyncRun {
		return c.RunSyncGetItems(ctx, actorID, payload)
	}
	runInfo, err := c.StartRun(ctx, actorID, payload)
	if err != nil {
		return nil, err
	}
	if runInfo == nil {
		return nil, nil
	}
	return c.FetchRunItems(ctx, runInfo)
}
