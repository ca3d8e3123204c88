// Command reset_cooldown deletes a provider adapter's stored cooldown row
// from the adapter_cooldowns table. The running scheduler keeps its
// cooldown gate in memory and does not read that table, so this does not
// shorten an active cooldown.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"aptwatch/internal/repository"
)

func main() {
	source := flag.String("source", "", "adapter source to reset (immobilienscout24, immowelt, kleinanzeigen)")
	flag.Parse()

	if *source == "" {
		log.Fatal("reset_cooldown: -source is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("reset_cooldown: DATABASE_URL is required")
	}

	ctx := context.Background()
	repo, err := repository.NewRepository(ctx, dbURL)
	if err != nil {
		log.Fatalf("reset_cooldown: connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.ResetAdapterCooldown(ctx, *source); err != nil {
		log.Fatalf("reset_cooldown: reset %s: %v", *source, err)
	}

	log.Printf("reset_cooldown: cleared cooldown for %s", *source)
}
