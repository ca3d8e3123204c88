// Package providers implements the Provider Adapter contract against the
// Apify actor platform: a shared client handles run submission (with a
// three-tier endpoint fallback and a synchronous fast path), dataset
// polling, and per-actor cooldown gating; per-source adapters only supply
// the actor ID, the search URL, and item conversion.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client is a shared Apify HTTP client used by every source-specific
// adapter. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	token      string

	SyncRun bool

	cooldown      time.Duration
	quietScaling  float64
	isQuietHour   func(hour int) bool
	nowHour       func() int

	mu      sync.Mutex
	lastRun map[string]time.Time
}

// NewClient builds an Apify client. isQuietHour and nowHour let callers
// inject the scheduler's quiet-hour window and clock; passing nil uses
// real wall-clock time and treats every hour as non-quiet.
func NewClient(token string, cooldown time.Duration, quietScaling float64, syncRun bool, isQuietHour func(int) bool, nowHour func() int) *Client {
	if isQuietHour == nil {
		isQuietHour = func(int) bool { return false }
	}
	if nowHour == nil {
		nowHour = func() int { return time.Now().Hour() }
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		token:        token,
		SyncRun:      syncRun,
		cooldown:     cooldown,
		quietScaling: quietScaling,
		isQuietHour:  isQuietHour,
		nowHour:      nowHour,
		lastRun:      make(map[string]time.Time),
	}
}

// CanRunNow reports whether the per-actor cooldown for key has elapsed,
// scaling the cooldown up during quiet hours. bypass short-circuits the
// check to true, used for a single force-checked pass.
func (c *Client) CanRunNow(key string, bypass bool) bool {
	if bypass {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastRun[key]
	if !ok {
		return true
	}
	cooldown := c.cooldown
	if c.isQuietHour(c.nowHour()) {
		cooldown = time.Duration(float64(cooldown) * c.quietScaling)
	}
	return time.Since(last) >= cooldown
}

// MarkRun records that key was just run, resetting its cooldown clock.
func (c *Client) MarkRun(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRun[key] = time.Now()
}

const apifyBase = "https://api.apify.com/v2"

func (c *Client) authHeaders(h http.Header) {
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
}

func (c *Client) postJSON(ctx context.Context, url string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("providers: marshal apify payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.authHeaders(req.Header)
	return c.httpClient.Do(req)
}

// StartRun submits an Apify run, trying the /acts endpoint first, then the
// legacy /actors endpoint, then /actor-tasks, stopping at the first
// non-404 response. It returns the decoded run-start response.
func (c *Client) StartRun(ctx context.Context, actorOrTaskID string, payload interface{}) (map[string]interface{}, error) {
	urls := []string{
		fmt.Sprintf("%s/acts/%s/runs?token=%s", apifyBase, actorOrTaskID, c.token),
		fmt.Sprintf("%s/actors/%s/runs?token=%s", apifyBase, actorOrTaskID, c.token),
		fmt.Sprintf("%s/actor-tasks/%s/runs?token=%s", apifyBase, actorOrTaskID, c.token),
	}

	var lastErr error
	for i, url := range urls {
		resp, err := c.postJSON(ctx, url, payload)
		if err != nil {
			lastErr = err
			continue
		}
		result, retry, err := decodeRunStart(resp)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retry && i < len(urls)-1 {
			// non-404 failure on a non-final endpoint still means "don't
			// bother trying the rest", matching the Python client's
			// behavior of logging and moving to the next tier only on 404.
			break
		}
	}
	return nil, fmt.Errorf("providers: apify start run exhausted all endpoints: %w", lastErr)
}

func decodeRunStart(resp *http.Response) (map[string]interface{}, bool, error) {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var out map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, false, fmt.Errorf("decode run start response: %w", err)
		}
		return out, false, nil
	}
	text, _ := io.ReadAll(resp.Body)
	isNotFound := resp.StatusCode == http.StatusNotFound
	return nil, isNotFound, fmt.Errorf("apify run start failed: status %d: %s", resp.StatusCode, truncate(string(text), 400))
}

// RunSyncGetItems runs an actor synchronously via run-sync-get-dataset-items
// and returns the resulting dataset items directly, skipping polling.
func (c *Client) RunSyncGetItems(ctx context.Context, actorID string, payload interface{}) ([]map[string]interface{}, error) {
	url := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s&format=json&clean=true", apifyBase, actorID, c.token)
	resp, err := c.postJSON(ctx, url, payload)
	if err != nil {
		return nil, fmt.Errorf("providers: apify sync run request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		text, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("providers: apify sync run failed: status %d: %s", resp.StatusCode, truncate(string(text), 400))
	}
	return decodeItemsBody(resp.Body)
}

func decodeItemsBody(r io.Reader) ([]map[string]interface{}, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("providers: decode apify items: %w", err)
	}
	switch v := raw.(type) {
	case []interface{}:
		return toMapSlice(v), nil
	case map[string]interface{}:
		if items, ok := v["items"].([]interface{}); ok {
			return toMapSlice(items), nil
		}
		if data, ok := v["data"].([]interface{}); ok {
			return toMapSlice(data), nil
		}
	}
	return nil, nil
}

func toMapSlice(raw []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// FetchRunItems polls an Apify run to completion (up to 60 iterations,
// spaced 2 seconds apart) and returns its dataset items.
func (c *Client) FetchRunItems(ctx context.Context, runInfo map[string]interface{}) ([]map[string]interface{}, error) {
	datasetID := extractDatasetID(runInfo)
	if datasetID == "" {
		runID := extractRunID(runInfo)
		if runID == "" {
			return nil, nil
		}
		var err error
		datasetID, err = c.pollForDatasetID(ctx, runID)
		if err != nil {
			return nil, err
		}
	}
	if datasetID == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/datasets/%s/items?clean=true&token=%s", apifyBase, datasetID, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("providers: fetch dataset items: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("providers: fetch dataset items failed: status %d", resp.StatusCode)
	}
	return decodeItemsBody(resp.Body)
}

func (c *Client) pollForDatasetID(ctx context.Context, runID string) (string, error) {
	statusURL := fmt.Sprintf("%s/actor-runs/%s?token=%s", apifyBase, runID, c.token)
	for i := 0; i < 60; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("providers: poll run status: %w", err)
		}
		var data map[string]interface{}
		decErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if decErr != nil {
			return "", fmt.Errorf("providers: decode run status: %w", decErr)
		}

		status, datasetID := extractStatusAndDataset(data)
		if status == "SUCCEEDED" || status == "FAILED" || status == "TIMED-OUT" || status == "ABORTED" {
			return datasetID, nil
		}
		if datasetID != "" {
			return datasetID, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return "", nil
}

func extractDatasetID(runInfo map[string]interface{}) string {
	if data, ok := runInfo["data"].(map[string]interface{}); ok {
		if id, ok := data["defaultDatasetId"].(string); ok && id != "" {
			return id
		}
		if id, ok := data["datasetId"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := runInfo["defaultDatasetId"].(string); ok {
		return id
	}
	if id, ok := runInfo["datasetId"].(string); ok {
		return id
	}
	return ""
}

func extractRunID(runInfo map[string]interface{}) string {
	if data, ok := runInfo["data"].(map[string]interface{}); ok {
		if id, ok := data["id"].(string); ok && id != "" {
			return id
		}
	}
	if id, ok := runInfo["id"].(string); ok {
		return id
	}
	return ""
}

func extractStatusAndDataset(data map[string]interface{}) (status, datasetID string) {
	if inner, ok := data["data"].(map[string]interface{}); ok {
		if s, ok := inner["status"].(string); ok {
			status = s
		}
		if d, ok := inner["defaultDatasetId"].(string); ok {
			datasetID = d
		}
	}
	if status == "" {
		if s, ok := data["status"].(string); ok {
			status = s
		}
	}
	if datasetID == "" {
		if d, ok := data["defaultDatasetId"].(string); ok {
			datasetID = d
		}
	}
	return
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
