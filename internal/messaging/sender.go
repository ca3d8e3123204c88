// Package messaging implements the outbound boundary to the out-of-scope
// chat bot collaborator: the Sender interface is the dispatcher's only
// view of "deliver this to a user", backed by a Svix-relayed webhook
// with a plain HTTP fallback and a no-op implementation for tests.
package messaging

import (
	"context"

	"aptwatch/internal/models"
)

// Sender delivers listing notifications to users. Implementations do not
// know about throttling, caps, or at-most-once delivery — that is
// internal/notify's job; a Sender only knows how to put a message in
// front of a user.
type Sender interface {
	// SendListing delivers a plain listing notification.
	SendListing(ctx context.Context, userID string, listing models.Listing, language models.Language) error

	// SendAINarrative delivers a listing accompanied by narrative text
	// produced by the out-of-scope AI narrative generator collaborator.
	// This system only forwards the narrative string; it never generates
	// one itself.
	SendAINarrative(ctx context.Context, userID string, listing models.Listing, language models.Language, narrative string) error
}

// NoopSender delivers nothing and logs nothing: it records each call in
// Sent and returns nil. Tests use it for assertions, and cmd/server falls
// back to it when no messaging backend is configured.
type NoopSender struct {
	Sent []SentRecord
}

// SentRecord captures one call made against a NoopSender, for test
// assertions.
type SentRecord struct {
	UserID      string
	SurrogateID string
	Narrative   string
}

func (n *NoopSender) SendListing(ctx context.Context, userID string, listing models.Listing, language models.Language) error {
	n.Sent = append(n.Sent, SentRecord{UserID: userID, SurrogateID: listing.SurrogateID})
	return nil
}

func (n *NoopSender) SendAINarrative(ctx context.Context, userID string, listing models.Listing, language models.Language, narrative string) error {
	n.Sent = append(n.Sent, SentRecord{UserID: userID, SurrogateID: listing.SurrogateID, Narrative: narrative})
	return nil
}
