package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aptwatch/internal/models"
)

// SaveNotification records that userID was notified about listingSurrogateID
// at sentAt. The unique primary key on (user_id, listing_surrogate_id)
// backs the dispatcher's at-most-once guarantee.
func (r *Repository) SaveNotification(ctx context.Context, rec models.NotificationRecord) error {
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (user_id, listing_surrogate_id, sent_at)
		VALUES ($1, $2, $3)
	`, rec.UserID, rec.ListingSurrogateID, rec.SentAt)
	if err != nil {
		return fmt.Errorf("repository: save notification: %w", err)
	}
	return nil
}

// CheckAndRecord implements notify.Recorder: it attempts to insert the
// notification row and reports alreadySent=true if a unique-constraint
// violation shows the pair was already recorded, making the guard
// atomic under concurrent dispatch attempts.
func (r *Repository) CheckAndRecord(ctx context.Context, userID, listingSurrogateID string) (bool, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (user_id, listing_surrogate_id, sent_at)
		VALUES ($1, $2, $3)
	`, userID, listingSurrogateID, time.Now())
	if err == nil {
		return false, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true, nil
	}
	return false, fmt.Errorf("repository: check and record notification: %w", err)
}

// HasBeenNotified reports whether userID was already notified about
// listingSurrogateID, without recording a new attempt.
func (r *Repository) HasBeenNotified(ctx context.Context, userID, listingSurrogateID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM notifications WHERE user_id = $1 AND listing_surrogate_id = $2)
	`, userID, listingSurrogateID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repository: has been notified: %w", err)
	}
	return exists, nil
}
