package messaging

import (
	"context"
	"testing"

	"aptwatch/internal/models"
)

func TestNoopSenderRecordsCalls(t *testing.T) {
	n := &NoopSender{}
	listing := models.Listing{SurrogateID: "s1"}

	if err := n.SendListing(context.Background(), "u1", listing, "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := n.SendAINarrative(context.Background(), "u1", listing, "en", "great place"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(n.Sent) != 2 {
		t.Fatalf("expected 2 recorded sends, got %d", len(n.Sent))
	}
	if n.Sent[1].Narrative != "great place" {
		t.Errorf("expected narrative to be recorded, got %q", n.Sent[1].Narrative)
	}
}

func TestListingPayloadOmitsEmptyNarrative(t *testing.T) {
	listing := models.Listing{SurrogateID: "s1", Title: "Nice flat"}
	p := listingPayload(listing, "de", "")
	if _, ok := p["narrative"]; ok {
		t.Errorf("expected narrative key to be absent when empty")
	}

	p2 := listingPayload(listing, "de", "text")
	if p2["narrative"] != "text" {
		t.Errorf("expected narrative to be set")
	}
}
