// Command purge_stale_listings deletes listings not seen in over
// maxAge, the operational counterpart to the Persistence Gateway's
// purge_listings_older_than operation. Run periodically (e.g. via cron)
// to keep the listings table from growing unbounded with delisted
// apartments.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"aptwatch/internal/repository"
)

func main() {
	maxAge := flag.Duration("max-age", 30*24*time.Hour, "purge listings last seen before this long ago")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("purge_stale_listings: DATABASE_URL is required")
	}

	ctx := context.Background()
	repo, err := repository.NewRepository(ctx, dbURL)
	if err != nil {
		log.Fatalf("purge_stale_listings: connect to database: %v", err)
	}
	defer repo.Close()

	cutoff := time.Now().Add(-*maxAge)
	removed, err := repo.PurgeListingsOlderThan(ctx, cutoff)
	if err != nil {
		log.Fatalf("purge_stale_listings: purge: %v", err)
	}

	log.Printf("purge_stale_listings: removed %d listings last seen before %s", removed, cutoff.Format(time.RFC3339))
}
