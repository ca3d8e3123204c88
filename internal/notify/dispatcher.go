// Package notify implements the Notification Dispatcher: it guards the
// boundary between "a listing matched a user's filter" and "a message was
// actually sent", enforcing a per-user throttle, a per-cycle delivery
// cap, and at-most-once delivery per (user, listing).
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aptwatch/internal/models"
)

// Recorder is the persistence-backed at-most-once guard. CheckAndRecord
// must atomically report whether (userID, surrogateID) has already been
// notified and, if not, record it — repository.Repository.CheckAndRecord
// backs this with a unique-constraint insert.
type Recorder interface {
	CheckAndRecord(ctx context.Context, userID, listingSurrogateID string) (alreadySent bool, err error)
}

// Sender delivers a single listing notification to a user. Implementations
// live in internal/messaging; the dispatcher is agnostic to transport.
type Sender interface {
	SendListing(ctx context.Context, userID string, listing models.Listing, language models.Language) error
}

// Dispatcher enforces throttling, per-cycle caps and at-most-once
// delivery before invoking a Sender.
type Dispatcher struct {
	recorder Recorder
	sender   Sender

	throttle    time.Duration
	maxPerCycle int

	mu            sync.Mutex
	lastSent      map[string]time.Time
	sentThisCycle map[string]int
}

// New creates a Dispatcher. throttle is the minimum interval between two
// notifications to the same user; maxPerCycle bounds how many
// notifications may be sent to each user in a single scheduler wave
// (reset via ResetCycle).
func New(recorder Recorder, sender Sender, throttle time.Duration, maxPerCycle int) *Dispatcher {
	return &Dispatcher{
		recorder:    recorder,
		sender:      sender,
		throttle:      throttle,
		maxPerCycle:   maxPerCycle,
		lastSent:      make(map[string]time.Time),
		sentThisCycle: make(map[string]int),
	}
}

// ResetCycle resets every user's per-cycle delivery count. The scheduler
// calls this once at the start of every check cycle.
func (d *Dispatcher) ResetCycle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sentThisCycle = make(map[string]int)
}

// ErrCycleCapReached is returned by Dispatch when the given user has
// already hit the per-cycle delivery cap; the caller should stop
// dispatching to that user for the remainder of the cycle, but may keep
// dispatching to other users.
var ErrCycleCapReached = fmt.Errorf("notify: per-cycle delivery cap reached")

// Dispatch attempts to notify userID about listing. It is a no-op
// (returns nil, nil error) if the user was already notified for this
// listing, or if the per-user throttle window hasn't elapsed. It returns
// ErrCycleCapReached once userID has reached the per-cycle delivery cap,
// which is tracked independently per user.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, listing models.Listing, language models.Language, now time.Time) error {
	d.mu.Lock()
	if d.sentThisCycle[userID] >= d.maxPerCycle {
		d.mu.Unlock()
		return ErrCycleCapReached
	}
	if last, ok := d.lastSent[userID]; ok && now.Sub(last) < d.throttle {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	alreadySent, err := d.recorder.CheckAndRecord(ctx, userID, listing.SurrogateID)
	if err != nil {
		return fmt.Errorf("notify: check at-most-once guard: %w", err)
	}
	if alreadySent {
		return nil
	}

	if err := d.sender.SendListing(ctx, userID, listing, language); err != nil {
		return fmt.Errorf("notify: send listing %s to user %s: %w", listing.SurrogateID, userID, err)
	}

	d.mu.Lock()
	d.lastSent[userID] = now
	d.sentThisCycle[userID]++
	d.mu.Unlock()
	return nil
}
