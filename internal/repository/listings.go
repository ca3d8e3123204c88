package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aptwatch/internal/models"
)

// SaveListing upserts a listing keyed by (source, external_id), bumping
// last_seen on every re-ingestion while first_seen stays fixed at the
// original insert.
func (r *Repository) SaveListing(ctx context.Context, l models.Listing) error {
	now := time.Now()
	if l.FirstSeen.IsZero() {
		l.FirstSeen = now
	}
	l.LastSeen = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO listings (
			surrogate_id, source, external_id, title, description, price, rooms, area,
			city, district, street, postal_code, canonical_url, application_url,
			images, features, raw_payload, first_seen, last_seen
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			rooms = EXCLUDED.rooms,
			area = EXCLUDED.area,
			city = EXCLUDED.city,
			district = EXCLUDED.district,
			street = EXCLUDED.street,
			postal_code = EXCLUDED.postal_code,
			canonical_url = EXCLUDED.canonical_url,
			application_url = EXCLUDED.application_url,
			images = EXCLUDED.images,
			features = EXCLUDED.features,
			raw_payload = EXCLUDED.raw_payload,
			last_seen = EXCLUDED.last_seen
	`, l.SurrogateID, l.Source, l.ExternalID, l.Title, l.Description, l.Price, l.Rooms, l.Area,
		l.City, l.District, l.Street, l.PostalCode, l.CanonicalURL, l.ApplicationURL,
		l.Images, l.Features, nullableJSON(l.RawPayload), l.FirstSeen, l.LastSeen)
	if err != nil {
		return fmt.Errorf("repository: save listing: %w", err)
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// FindListings returns listings matching the given city (substring,
// case-insensitive) ordered by most recently seen first, capped at
// limit.
func (r *Repository) FindListings(ctx context.Context, city string, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT surrogate_id, source, external_id, title, description, price, rooms, area,
		       city, district, street, postal_code, canonical_url, application_url,
		       images, features, first_seen, last_seen
		FROM listings
		WHERE $1 = '' OR city ILIKE '%' || $1 || '%'
		ORDER BY last_seen DESC
		LIMIT $2
	`, city, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: find listings: %w", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.SurrogateID, &l.Source, &l.ExternalID, &l.Title, &l.Description,
			&l.Price, &l.Rooms, &l.Area, &l.City, &l.District, &l.Street, &l.PostalCode,
			&l.CanonicalURL, &l.ApplicationURL, &l.Images, &l.Features, &l.FirstSeen, &l.LastSeen); err != nil {
			return nil, fmt.Errorf("repository: scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetListingBySurrogateID fetches a single listing by its surrogate ID.
func (r *Repository) GetListingBySurrogateID(ctx context.Context, surrogateID string) (*models.Listing, error) {
	var l models.Listing
	err := r.db.QueryRow(ctx, `
		SELECT surrogate_id, source, external_id, title, description, price, rooms, area,
		       city, district, street, postal_code, canonical_url, application_url,
		       images, features, first_seen, last_seen
		FROM listings WHERE surrogate_id = $1
	`, surrogateID).Scan(&l.SurrogateID, &l.Source, &l.ExternalID, &l.Title, &l.Description,
		&l.Price, &l.Rooms, &l.Area, &l.City, &l.District, &l.Street, &l.PostalCode,
		&l.CanonicalURL, &l.ApplicationURL, &l.Images, &l.Features, &l.FirstSeen, &l.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get listing: %w", err)
	}
	return &l, nil
}

// KnownSurrogateIDs returns every surrogate ID on file, used once at
// startup to rehydrate the in-memory dedup set.
func (r *Repository) KnownSurrogateIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT surrogate_id FROM listings`)
	if err != nil {
		return nil, fmt.Errorf("repository: known surrogate ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository: scan surrogate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeListingsOlderThan deletes listings last seen before the cutoff,
// returning the number of rows removed. The schema's ON DELETE CASCADE on
// notifications.listing_surrogate_id means a purge also removes the
// corresponding audit trail, which is intended retention behavior, not a
// bug — an expired listing's notification history is no longer
// actionable.
func (r *Repository) PurgeListingsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM listings WHERE last_seen < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("repository: purge listings: %w", err)
	}
	return tag.RowsAffected(), nil
}
