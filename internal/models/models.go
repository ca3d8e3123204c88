// Package models defines the persisted and in-memory entities of the
// listing monitor: Listing, User, Subscription, UserFilter and
// NotificationRecord.
package models

import "time"

// Listing is a normalized property advertisement.
//
// Identity is (Source, ExternalID); SurrogateID is a stable hash derived
// from (Source, CanonicalURL, provider item id), recomputed identically on
// every re-ingestion of the same item.
type Listing struct {
	SurrogateID string `json:"surrogate_id"`
	Source      string `json:"source"`
	ExternalID  string `json:"external_id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Price float64 `json:"price"`
	Rooms float64 `json:"rooms"`
	Area  float64 `json:"area"`

	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	Street     string `json:"street,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	CanonicalURL   string   `json:"canonical_url,omitempty"`
	ApplicationURL string   `json:"application_url,omitempty"`
	Images         []string `json:"images,omitempty"`
	Features       []string `json:"features,omitempty"`

	// RawPayload is the opaque provider item, preserved for audit/debug.
	// It is not part of any invariant.
	RawPayload []byte `json:"raw_payload,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// MeaningfulContent reports whether the listing carries enough information
// to be worth retaining. A listing failing this rule is discarded by the
// normalizer, never persisted.
func (l Listing) MeaningfulContent() bool {
	if l.Price > 0 || l.Rooms > 0 || l.Area > 0 {
		return true
	}
	if len(l.Title) > 10 {
		return true
	}
	if len(l.Description) > 20 {
		return true
	}
	if l.CanonicalURL != "" {
		return true
	}
	return false
}

// Language is a fixed tag identifying a user's preferred locale. The
// catalog of valid tags is owned by the out-of-scope localization
// collaborator; this system only stores and forwards the tag.
type Language string

// User is an identity plus preferred language.
type User struct {
	ID        string    `json:"id"`
	Language  Language  `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionStatus enumerates the lifecycle states of a Subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription gates whether a user participates in matching/notification.
type Subscription struct {
	UserID    string             `json:"user_id"`
	Status    SubscriptionStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// IsActive reports whether the subscription is currently usable.
func (s Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && now.Before(s.ExpiresAt)
}

// UserFilter is a user's stored search criteria. Numeric bounds are
// pointers so "unset" is distinguishable from "zero" — a PriceMin of zero
// enforces a minimum of zero (accepts everything priced), while a nil
// PriceMin means no lower bound was configured at all.
type UserFilter struct {
	UserID string `json:"user_id"`

	City *string `json:"city,omitempty"`

	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`

	RoomsMin *float64 `json:"rooms_min,omitempty"`
	RoomsMax *float64 `json:"rooms_max,omitempty"`

	AreaMin *float64 `json:"area_min,omitempty"`
	AreaMax *float64 `json:"area_max,omitempty"`

	Keywords []string `json:"keywords,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationRecord is an append-only audit row guaranteeing at-most-once
// delivery per (UserID, ListingSurrogateID).
type NotificationRecord struct {
	UserID             string    `json:"user_id"`
	ListingSurrogateID string    `json:"listing_surrogate_id"`
	SentAt             time.Time `json:"sent_at"`
}

// Query is the normalized search request passed to a Provider Adapter.
type Query struct {
	City     string
	PriceMin *float64
	PriceMax *float64
	RoomsMin *float64
	RoomsMax *float64
}
