package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"aptwatch/internal/models"
)

// HTTPSender posts listing notifications directly to a configured
// webhook URL, bearer-authenticated. It is the default Sender when no
// Svix token is configured — a single static endpoint rather than
// per-user Svix applications.
type HTTPSender struct {
	httpClient *http.Client
	webhookURL string
	authToken  string
}

var _ Sender = (*HTTPSender)(nil)

func NewHTTPSender(webhookURL, authToken string) *HTTPSender {
	return &HTTPSender{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		webhookURL: webhookURL,
		authToken:  authToken,
	}
}

func (s *HTTPSender) SendListing(ctx context.Context, userID string, listing models.Listing, language models.Language) error {
	return s.post(ctx, "listing.matched", userID, listingPayload(listing, language, ""))
}

func (s *HTTPSender) SendAINarrative(ctx context.Context, userID string, listing models.Listing, language models.Language, narrative string) error {
	return s.post(ctx, "listing.matched.narrated", userID, listingPayload(listing, language, narrative))
}

func (s *HTTPSender) post(ctx context.Context, eventType, userID string, payload map[string]interface{}) error {
	body := map[string]interface{}{
		"event_type": eventType,
		"user_id":    userID,
		"payload":    payload,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("messaging: marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("messaging: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("messaging: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
