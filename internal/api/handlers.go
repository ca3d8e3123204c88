package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

const defaultFeedLimit = 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusPayload struct {
	Status          string    `json:"status"`
	KnownListings   int       `json:"known_listings"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// handleStatus serves a point-in-time monitoring snapshot, cached for 3
// seconds so a dashboard polling aggressively doesn't hammer the
// database.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload, err := s.buildStatusPayload(r.Context(), true)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (s *Server) buildStatusPayload(ctx context.Context, useCache bool) ([]byte, error) {
	s.statusMu.Lock()
	if useCache && s.statusCache != nil && time.Since(s.statusCachedAt) < 3*time.Second {
		cached := s.statusCache
		s.statusMu.Unlock()
		return cached, nil
	}
	s.statusMu.Unlock()

	ids, err := s.repo.KnownSurrogateIDs(ctx)
	if err != nil {
		return nil, err
	}

	payload := statusPayload{
		Status:        "running",
		KnownListings: len(ids),
		GeneratedAt:   time.Now(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	s.statusMu.Lock()
	s.statusCache = data
	s.statusCachedAt = time.Now()
	s.statusMu.Unlock()

	return data, nil
}

// handleFeed serves the on-demand combined feed for a city: persisted
// listings topped up with a live fetch, diversified by source.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	if city == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "city is required"})
		return
	}
	limit := defaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	listings, err := s.feeder.CombinedFeed(r.Context(), city, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// handleForceCheck triggers an immediate scheduler enqueue wave outside
// the normal interval. It is bearer-protected since it can be used to
// bypass the cooldown-driven cost controls on the provider adapters.
func (s *Server) handleForceCheck(w http.ResponseWriter, r *http.Request) {
	s.forcer.ForceCheck()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}
