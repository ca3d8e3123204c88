// Package scheduler drives the continuous monitoring loop: it enqueues one
// job per distinct city across active users, runs a fixed worker pool
// against the provider adapters, and routes newly discovered listings
// through matching and notification dispatch.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"aptwatch/internal/dedup"
	"aptwatch/internal/eventbus"
	"aptwatch/internal/matcher"
	"aptwatch/internal/models"
	"aptwatch/internal/notify"
	"aptwatch/internal/providers"
)

// Gateway is the subset of the Persistence Gateway the scheduler needs.
// It is satisfied by *repository.Repository.
type Gateway interface {
	ListActiveFilters(ctx context.Context) ([]models.UserFilter, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SaveListing(ctx context.Context, listing models.Listing) error
	KnownSurrogateIDs(ctx context.Context) ([]string, error)
	FindListings(ctx context.Context, city string, limit int) ([]models.Listing, error)
}

// job is one city's worth of work handed to a worker. bypassCooldown is set
// for every job enqueued by a force-check wave, so the adapters run
// regardless of how recently they last ran.
type job struct {
	query          models.Query
	filters        []models.UserFilter
	bypassCooldown bool
}

// Scheduler owns the job queue, the worker pool, and the enqueue loop.
type Scheduler struct {
	gateway    Gateway
	adapters   []providers.Adapter
	dedupSet   *dedup.KnownListingSet
	dispatcher *notify.Dispatcher
	bus        *eventbus.Bus

	checkIntervalNormal time.Duration
	checkIntervalQuiet  time.Duration
	isQuietHour         func(hour int) bool
	maxApartmentsPerJob int
	workerCount         int
	defaultCity         string

	defaultPriceMin *float64
	defaultPriceMax *float64
	defaultRoomsMin *float64
	defaultRoomsMax *float64

	queue    chan *job
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
	stopCh   chan struct{}
	forceCh  chan struct{}
}

// Config bundles the scheduler's tunables, sourced from internal/config.
type Config struct {
	CheckIntervalNormal time.Duration
	CheckIntervalQuiet  time.Duration
	IsQuietHour         func(hour int) bool
	MaxApartmentsPerJob int
	WorkerCount         int
	DefaultCity         string

	// DefaultPriceMin, DefaultPriceMax, DefaultRoomsMin and DefaultRoomsMax
	// are the filter skeleton every enqueued city job is built from; only
	// City is overridden per job.
	DefaultPriceMin *float64
	DefaultPriceMax *float64
	DefaultRoomsMin *float64
	DefaultRoomsMax *float64
}

// New builds a Scheduler. bus may be nil, in which case listing events
// are simply not published (the operational API's /ws feed then receives
// no new_listing frames).
func New(gateway Gateway, adapters []providers.Adapter, dedupSet *dedup.KnownListingSet, dispatcher *notify.Dispatcher, bus *eventbus.Bus, cfg Config) *Scheduler {
	workerCount := cfg.WorkerCount
	if workerCount < 4 {
		workerCount = 4
	}
	if workerCount > 10 {
		workerCount = 10
	}
	return &Scheduler{
		gateway:             gateway,
		adapters:            adapters,
		dedupSet:            dedupSet,
		dispatcher:          dispatcher,
		bus:                 bus,
		checkIntervalNormal: cfg.CheckIntervalNormal,
		checkIntervalQuiet:  cfg.CheckIntervalQuiet,
		isQuietHour:         cfg.IsQuietHour,
		maxApartmentsPerJob: cfg.MaxApartmentsPerJob,
		workerCount:         workerCount,
		defaultCity:         cfg.DefaultCity,
		defaultPriceMin:     cfg.DefaultPriceMin,
		defaultPriceMax:     cfg.DefaultPriceMax,
		defaultRoomsMin:     cfg.DefaultRoomsMin,
		defaultRoomsMax:     cfg.DefaultRoomsMax,
		queue:               make(chan *job, 64),
		stopCh:              make(chan struct{}),
		forceCh:             make(chan struct{}, 1),
	}
}

// Start seeds the dedup set from persistence, launches the worker pool,
// and begins the enqueue loop. It returns once the workers and loop
// goroutine have been started; call Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true
	s.mu.Unlock()

	ids, err := s.gateway.KnownSurrogateIDs(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: seed dedup set: %w", err)
	}
	s.dedupSet.Seed(ids)
	log.Printf("[scheduler] seeded dedup set with %d known listings", len(ids))

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.workerLoop(ctx, i)
	}

	go s.monitoringLoop(ctx)
	return nil
}

// Stop drains the worker pool with sentinel values and waits for every
// worker to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	for i := 0; i < s.workerCount; i++ {
		s.queue <- nil
	}
	s.wg.Wait()
}

// ForceCheck triggers an immediate enqueue wave outside the normal
// interval, used by the operational API's /force-check endpoint. It is
// non-blocking: a force-check already pending is coalesced.
func (s *Scheduler) ForceCheck() {
	select {
	case s.forceCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) monitoringLoop(ctx context.Context) {
	s.runEnqueueWave(ctx, false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.forceCh:
			s.runEnqueueWave(ctx, true)
			continue
		case <-time.After(s.nextInterval()):
		}
		s.runEnqueueWave(ctx, false)
	}
}

func (s *Scheduler) runEnqueueWave(ctx context.Context, bypassCooldown bool) {
	s.dispatcher.ResetCycle()
	if err := s.enqueueCityJobs(ctx, bypassCooldown); err != nil {
		log.Printf("[scheduler] enqueue error: %v", err)
	}
}

// nextInterval picks the normal or quiet-hour tick, then caps it at 30
// seconds during business hours (09:00-18:00 local time) regardless of
// which interval was picked.
func (s *Scheduler) nextInterval() time.Duration {
	interval := s.checkIntervalNormal
	now := time.Now()
	if s.isQuietHour != nil && s.isQuietHour(now.Hour()) {
		interval = s.checkIntervalQuiet
	}
	hour := now.Hour()
	if hour >= 9 && hour < 18 && interval > 30*time.Second {
		interval = 30 * time.Second
	}
	return interval
}

// enqueueCityJobs groups active users' filters by city (defaulting to
// defaultCity when a user has none) and enqueues one job per city, each
// built from the default filter skeleton with only City overridden.
// bypassCooldown is stamped onto every job, causing a force-checked wave to
// skip every adapter's cooldown gate for this pass only.
func (s *Scheduler) enqueueCityJobs(ctx context.Context, bypassCooldown bool) error {
	filters, err := s.gateway.ListActiveFilters(ctx)
	if err != nil {
		return fmt.Errorf("list active filters: %w", err)
	}
	if len(filters) == 0 {
		return nil
	}

	byCity := make(map[string][]models.UserFilter)
	for _, f := range filters {
		city := s.defaultCity
		if f.City != nil && *f.City != "" {
			city = *f.City
		}
		byCity[city] = append(byCity[city], f)
	}

	for city, cityFilters := range byCity {
		q := models.Query{
			City:     city,
			PriceMin: s.defaultPriceMin,
			PriceMax: s.defaultPriceMax,
			RoomsMin: s.defaultRoomsMin,
			RoomsMax: s.defaultRoomsMax,
		}
		select {
		case s.queue <- &job{query: q, filters: cityFilters, bypassCooldown: bypassCooldown}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scheduler) workerLoop(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		j := <-s.queue
		if j == nil {
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[scheduler] worker %d recovered from panic: %v", id, r)
				}
			}()
			s.processJob(ctx, j)
		}()
	}
}

func (s *Scheduler) processJob(ctx context.Context, j *job) {
	log.Printf("[scheduler] worker fetching city %s", j.query.City)

	listings := FetchAll(ctx, s.adapters, j.query, j.bypassCooldown)
	fresh := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if !s.dedupSet.Contains(l.SurrogateID) {
			fresh = append(fresh, l)
		}
	}
	if len(fresh) == 0 {
		return
	}
	log.Printf("[scheduler] city %s returned %d new listings", j.query.City, len(fresh))

	if len(fresh) > s.maxApartmentsPerJob {
		fresh = fresh[:s.maxApartmentsPerJob]
	}

	for _, listing := range fresh {
		if err := s.gateway.SaveListing(ctx, listing); err != nil {
			log.Printf("[scheduler] save listing %s failed: %v", listing.SurrogateID, err)
			continue
		}
		if !s.dedupSet.Record(listing.SurrogateID) {
			continue
		}
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.EventListingNew, Timestamp: time.Now(), Data: listing})
		}
		s.notifyMatchingUsers(ctx, listing, j.filters)
	}
}

func (s *Scheduler) notifyMatchingUsers(ctx context.Context, listing models.Listing, filters []models.UserFilter) {
	now := time.Now()
	for _, filter := range filters {
		if !matcher.Match(listing, &filter) {
			continue
		}
		user, err := s.gateway.GetUser(ctx, filter.UserID)
		if err != nil {
			log.Printf("[scheduler] get user %s failed: %v", filter.UserID, err)
			continue
		}
		err = s.dispatcher.Dispatch(ctx, filter.UserID, listing, user.Language, now)
		if err == notify.ErrCycleCapReached {
			continue
		}
		if err != nil {
			log.Printf("[scheduler] dispatch to user %s failed: %v", filter.UserID, err)
		}
	}
}

// CombinedFeed serves an on-demand feed for city: it starts from what is
// already persisted, tops it up with a live fetch across every adapter,
// then applies the same source round-robin diversification the core
// ingestion worker deliberately skips, capped at limit results.
func (s *Scheduler) CombinedFeed(ctx context.Context, city string, limit int) ([]models.Listing, error) {
	persisted, err := s.gateway.FindListings(ctx, city, limit)
	if err != nil {
		return nil, fmt.Errorf("scheduler: combined feed persisted listings: %w", err)
	}
	live := FetchAll(ctx, s.adapters, models.Query{City: city}, false)

	combined := make([]models.Listing, 0, len(persisted)+len(live))
	combined = append(combined, persisted...)
	combined = append(combined, live...)

	blended := blendBySource(combined, sourceQuota, fillerLimit)
	if len(blended) > limit {
		blended = blended[:limit]
	}
	return blended, nil
}
