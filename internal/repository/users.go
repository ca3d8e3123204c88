package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"aptwatch/internal/models"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("repository: not found")

func (r *Repository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `SELECT id, language, created_at FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Language, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get user: %w", err)
	}
	return &u, nil
}

func (r *Repository) CreateUser(ctx context.Context, userID string, language models.Language) (*models.User, error) {
	u := models.User{ID: userID, Language: language, CreatedAt: time.Now()}
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, language, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, u.ID, u.Language, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: create user: %w", err)
	}
	return r.GetUser(ctx, userID)
}

func (r *Repository) UpdateUserLanguage(ctx context.Context, userID string, language models.Language) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET language = $2 WHERE id = $1`, userID, language)
	if err != nil {
		return fmt.Errorf("repository: update user language: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.QueryRow(ctx, `
		SELECT user_id, status, created_at, expires_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID).Scan(&s.UserID, &s.Status, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get active subscription: %w", err)
	}
	return &s, nil
}

func (r *Repository) SaveSubscription(ctx context.Context, sub models.Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscriptions (user_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, sub.UserID, sub.Status, sub.CreatedAt, sub.ExpiresAt)
	if err != nil {
		return fmt.Errorf("repository: save subscription: %w", err)
	}
	return nil
}
