package repository

import (
	"context"
	"fmt"
	"time"
)

// SaveAdapterCooldown upserts the last-run timestamp row for a provider
// adapter. The live cooldown state is held in memory by the
// providers.Client cooldown gate; nothing in this module calls
// SaveAdapterCooldown or reads the table back, so cooldown state does not
// survive a process restart.
func (r *Repository) SaveAdapterCooldown(ctx context.Context, source string, lastRunAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO adapter_cooldowns (source, last_run_at) VALUES ($1, $2)
		ON CONFLICT (source) DO UPDATE SET last_run_at = EXCLUDED.last_run_at
	`, source, lastRunAt)
	if err != nil {
		return fmt.Errorf("repository: save adapter cooldown: %w", err)
	}
	return nil
}

// ResetAdapterCooldown deletes the stored cooldown row for source. A
// running scheduler does not read this table, so deleting the row does
// not shorten an adapter's in-memory cooldown.
func (r *Repository) ResetAdapterCooldown(ctx context.Context, source string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM adapter_cooldowns WHERE source = $1`, source)
	if err != nil {
		return fmt.Errorf("repository: reset adapter cooldown: %w", err)
	}
	return nil
}
