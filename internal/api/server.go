// Package api implements the operational HTTP surface: unauthenticated
// health/status endpoints, a bearer-protected force-check trigger, and a
// live listing feed over WebSocket. The richer admin/CRUD surface is
// owned by a separate service; this package only exposes what the
// monitoring loop itself needs to be observable and nudgeable.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"aptwatch/internal/eventbus"
	"aptwatch/internal/models"
	"aptwatch/internal/repository"
)

// Forcer lets the API trigger an out-of-cycle scheduler run.
type Forcer interface {
	ForceCheck()
}

// Feeder serves the on-demand combined feed (persisted listings blended
// with a live fetch) behind GET /feed.
type Feeder interface {
	CombinedFeed(ctx context.Context, city string, limit int) ([]models.Listing, error)
}

// Server wires the operational HTTP handlers to the repository and the
// scheduler's force-check trigger.
type Server struct {
	repo   *repository.Repository
	forcer Forcer
	feeder Feeder
	router *mux.Router

	jwtSigningKey string

	statusMu       sync.Mutex
	statusCache    []byte
	statusCachedAt time.Time
}

// New builds a Server with routes registered. If bus is non-nil, the
// server subscribes to listing events and relays them to every
// connected /ws client for the lifetime of ctx.
func New(ctx context.Context, repo *repository.Repository, forcer Forcer, feeder Feeder, bus *eventbus.Bus, jwtSigningKey string) *Server {
	s := &Server{
		repo:          repo,
		forcer:        forcer,
		feeder:        feeder,
		jwtSigningKey: jwtSigningKey,
	}
	s.router = s.buildRouter()
	if bus != nil {
		s.subscribeListingEvents(ctx, bus)
	}
	return s
}

func (s *Server) subscribeListingEvents(ctx context.Context, bus *eventbus.Bus) {
	ch := make(chan eventbus.Event, 32)
	bus.Subscribe(eventbus.EventListingNew, ch)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-ch:
				listing, ok := evt.Data.(models.Listing)
				if !ok {
					continue
				}
				BroadcastNewListing(listing)
			}
		}
	}()
}

func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe starts the HTTP server on addr and blocks until ctx is
// canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api: listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] write json response: %v", err)
	}
}
