package scheduler

import (
	"context"
	"log"
	"sync"

	"aptwatch/internal/models"
	"aptwatch/internal/providers"
)

// sourceQuota caps how many listings from each named source are admitted
// into a blended result; the filler round then tops the result up from
// sources that have no quota entry.
var sourceQuota = map[string]int{
	"immowelt":           2,
	"immobilienscout24":  2,
}

const fillerLimit = 2

// FetchAll runs every adapter concurrently against query and returns the
// plain concatenation of their results, in the order adapters were
// given. An adapter error is logged and treated as an empty result for
// that source — one failing provider never blocks the others.
// bypassCooldown is forwarded to every adapter's Search call, used for a
// single force-checked pass.
func FetchAll(ctx context.Context, adapters []providers.Adapter, query models.Query, bypassCooldown bool) []models.Listing {
	results := make([][]models.Listing, len(adapters))
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter providers.Adapter) {
			defer wg.Done()
			listings, err := adapter.Search(ctx, query, bypassCooldown)
			if err != nil {
				log.Printf("[scheduler] adapter %s failed: %v", adapter.Source(), err)
				return
			}
			results[i] = listings
		}(i, adapter)
	}
	wg.Wait()

	var all []models.Listing
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// blendBySource implements the round-robin result diversification used
// by the on-demand combined feed (persisted listings plus a live fetch):
// it walks listings once, admitting each into the quota round if its
// source's quota is not yet exhausted, then does a second pass admitting
// leftovers from sources without a quota up to fillerLimit, deduplicating
// throughout by surrogate ID.
// It is not used by the core ingestion worker, which persists everything
// it fetches rather than diversifying it away.
func blendBySource(listings []models.Listing, quota map[string]int, fillerLimit int) []models.Listing {
	seen := make(map[string]bool)
	taken := make(map[string]int)
	var blended []models.Listing
	var leftover []models.Listing

	for _, l := range listings {
		if seen[l.SurrogateID] {
			continue
		}
		if q, ok := quota[l.Source]; ok && taken[l.Source] < q {
			seen[l.SurrogateID] = true
			taken[l.Source]++
			blended = append(blended, l)
		} else {
			leftover = append(leftover, l)
		}
	}

	filled := 0
	for _, l := range leftover {
		if filled >= fillerLimit {
			break
		}
		if seen[l.SurrogateID] {
			continue
		}
		if _, ok := quota[l.Source]; ok {
			continue
		}
		seen[l.SurrogateID] = true
		blended = append(blended, l)
		filled++
	}

	return blended
}
