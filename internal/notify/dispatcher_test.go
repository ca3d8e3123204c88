package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"aptwatch/internal/models"
)

type fakeRecorder struct {
	mu   sync.Mutex
	sent map[string]bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{sent: make(map[string]bool)}
}

func (f *fakeRecorder) CheckAndRecord(ctx context.Context, userID, surrogateID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := userID + "|" + surrogateID
	if f.sent[key] {
		return true, nil
	}
	f.sent[key] = true
	return false, nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSender) SendListing(ctx context.Context, userID string, listing models.Listing, language models.Language) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func TestDispatchSendsOnce(t *testing.T) {
	rec := newFakeRecorder()
	sender := &fakeSender{}
	d := New(rec, sender, time.Second, 10)

	listing := models.Listing{SurrogateID: "s1"}
	now := time.Now()

	if err := d.Dispatch(context.Background(), "u1", listing, "en", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Dispatch(context.Background(), "u1", listing, "en", now.Add(2*time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 1 {
		t.Errorf("expected exactly one send (at-most-once), got %d", sender.calls)
	}
}

func TestDispatchThrottlesPerUser(t *testing.T) {
	rec := newFakeRecorder()
	sender := &fakeSender{}
	d := New(rec, sender, 10*time.Second, 10)

	now := time.Now()
	d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "a"}, "en", now)
	d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "b"}, "en", now.Add(time.Second))

	if sender.calls != 1 {
		t.Errorf("expected throttle to suppress second send within window, got %d calls", sender.calls)
	}

	d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "c"}, "en", now.Add(20*time.Second))
	if sender.calls != 2 {
		t.Errorf("expected send to succeed after throttle window elapsed, got %d calls", sender.calls)
	}
}

func TestDispatchRespectsCycleCap(t *testing.T) {
	rec := newFakeRecorder()
	sender := &fakeSender{}
	d := New(rec, sender, 0, 2)

	now := time.Now()
	// u1 sends up to its own cap of 2; a third send for u1 is capped.
	d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "a"}, "en", now)
	d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "b"}, "en", now)
	err := d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "c"}, "en", now)
	if err != ErrCycleCapReached {
		t.Errorf("expected ErrCycleCapReached for u1's third send, got %v", err)
	}

	// u2 has its own independent cap and is unaffected by u1's count.
	if err := d.Dispatch(context.Background(), "u2", models.Listing{SurrogateID: "d"}, "en", now); err != nil {
		t.Errorf("expected u2's send to succeed independent of u1's cap, got %v", err)
	}
	if sender.calls != 3 {
		t.Errorf("expected 3 sends (u1 x2, u2 x1), got %d", sender.calls)
	}

	d.ResetCycle()
	if err := d.Dispatch(context.Background(), "u1", models.Listing{SurrogateID: "c"}, "en", now); err != nil {
		t.Errorf("unexpected error after cycle reset: %v", err)
	}
}
