package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aptwatch/internal/models"
)

func (r *Repository) GetUserFilter(ctx context.Context, userID string) (*models.UserFilter, error) {
	var f models.UserFilter
	err := r.db.QueryRow(ctx, `
		SELECT user_id, city, price_min, price_max, rooms_min, rooms_max, area_min, area_max, keywords, updated_at
		FROM user_filters WHERE user_id = $1
	`, userID).Scan(&f.UserID, &f.City, &f.PriceMin, &f.PriceMax, &f.RoomsMin, &f.RoomsMax, &f.AreaMin, &f.AreaMax, &f.Keywords, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get user filter: %w", err)
	}
	return &f, nil
}

// SaveUserFilter upserts filter, enforcing the at-most-one-active-filter-
// per-user invariant via a primary key on user_id.
func (r *Repository) SaveUserFilter(ctx context.Context, filter models.UserFilter) error {
	filter.UpdatedAt = time.Now()
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_filters (user_id, city, price_min, price_max, rooms_min, rooms_max, area_min, area_max, keywords, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			city = EXCLUDED.city,
			price_min = EXCLUDED.price_min,
			price_max = EXCLUDED.price_max,
			rooms_min = EXCLUDED.rooms_min,
			rooms_max = EXCLUDED.rooms_max,
			area_min = EXCLUDED.area_min,
			area_max = EXCLUDED.area_max,
			keywords = EXCLUDED.keywords,
			updated_at = EXCLUDED.updated_at
	`, filter.UserID, filter.City, filter.PriceMin, filter.PriceMax, filter.RoomsMin, filter.RoomsMax, filter.AreaMin, filter.AreaMax, filter.Keywords, filter.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: save user filter: %w", err)
	}
	return nil
}

// ListActiveFilters returns every user filter belonging to a user with an
// active subscription, the scheduler's enqueuer input.
func (r *Repository) ListActiveFilters(ctx context.Context) ([]models.UserFilter, error) {
	rows, err := r.db.Query(ctx, `
		SELECT f.user_id, f.city, f.price_min, f.price_max, f.rooms_min, f.rooms_max, f.area_min, f.area_max, f.keywords, f.updated_at
		FROM user_filters f
		JOIN LATERAL (
			SELECT 1 FROM subscriptions s
			WHERE s.user_id = f.user_id AND s.status = 'active' AND s.expires_at > now()
			ORDER BY s.created_at DESC LIMIT 1
		) active ON true
	`)
	if err != nil {
		return nil, fmt.Errorf("repository: list active filters: %w", err)
	}
	defer rows.Close()

	var out []models.UserFilter
	for rows.Next() {
		var f models.UserFilter
		if err := rows.Scan(&f.UserID, &f.City, &f.PriceMin, &f.PriceMax, &f.RoomsMin, &f.RoomsMax, &f.AreaMin, &f.AreaMax, &f.Keywords, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: scan active filter: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
