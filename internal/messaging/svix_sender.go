package messaging

import (
	"context"
	"fmt"
	"log"
	"net/url"

	svix "github.com/svix/svix-webhooks/go"
	svixmodels "github.com/svix/svix-webhooks/go/models"

	"aptwatch/internal/models"
)

// SvixSender relays listing notifications through Svix, one application
// per user (the application UID is the user ID). Endpoint provisioning
// for a user's application is the out-of-scope chat bot collaborator's
// responsibility; this sender only publishes messages to whatever
// endpoints already exist.
type SvixSender struct {
	client *svix.Svix
}

var _ Sender = (*SvixSender)(nil)

// NewSvixSender creates a SvixSender. If serverURL is empty, the default
// Svix cloud endpoint is used.
func NewSvixSender(authToken, serverURL string) (*SvixSender, error) {
	var opts *svix.SvixOptions
	if serverURL != "" {
		u, err := url.Parse(serverURL)
		if err != nil {
			return nil, fmt.Errorf("messaging: parse svix server url: %w", err)
		}
		opts = &svix.SvixOptions{ServerUrl: u}
	}
	client, err := svix.New(authToken, opts)
	if err != nil {
		return nil, fmt.Errorf("messaging: create svix client: %w", err)
	}
	return &SvixSender{client: client}, nil
}

func (s *SvixSender) SendListing(ctx context.Context, userID string, listing models.Listing, language models.Language) error {
	return s.send(ctx, userID, "listing.matched", listingPayload(listing, language, ""))
}

func (s *SvixSender) SendAINarrative(ctx context.Context, userID string, listing models.Listing, language models.Language, narrative string) error {
	return s.send(ctx, userID, "listing.matched.narrated", listingPayload(listing, language, narrative))
}

func (s *SvixSender) send(ctx context.Context, userID, eventType string, payload map[string]interface{}) error {
	msg, err := s.client.Message.Create(ctx, userID, svixmodels.MessageIn{
		EventType: eventType,
		Payload:   payload,
	}, nil)
	if err != nil {
		return fmt.Errorf("messaging: svix send %s to %s: %w", eventType, userID, err)
	}
	log.Printf("[messaging] svix message sent: id=%s user=%s type=%s", msg.Id, userID, eventType)
	return nil
}

func listingPayload(listing models.Listing, language models.Language, narrative string) map[string]interface{} {
	p := map[string]interface{}{
		"surrogate_id": listing.SurrogateID,
		"source":       listing.Source,
		"title":        listing.Title,
		"price":        listing.Price,
		"rooms":        listing.Rooms,
		"area":         listing.Area,
		"city":         listing.City,
		"url":          listing.CanonicalURL,
		"images":       listing.Images,
		"language":     string(language),
	}
	if narrative != "" {
		p["narrative"] = narrative
	}
	return p
}
