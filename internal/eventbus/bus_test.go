package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 10)
	bus.Subscribe(EventListingNew, received)

	bus.Publish(Event{
		Type:      EventListingNew,
		Timestamp: time.Now(),
		Data:      map[string]string{"surrogate_id": "apify_immowelt_abc123"},
	})

	select {
	case evt := <-received:
		if evt.Type != EventListingNew {
			t.Errorf("expected %s, got %s", EventListingNew, evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan Event, 10)
	ch2 := make(chan Event, 10)
	bus.Subscribe(EventListingNew, ch1)
	bus.Subscribe(EventListingNew, ch2)

	bus.Publish(Event{Type: EventListingNew})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := New()
	defer bus.Close()

	listingCh := make(chan Event, 10)
	otherCh := make(chan Event, 10)
	bus.Subscribe(EventListingNew, listingCh)
	bus.Subscribe("listing.stale", otherCh)

	bus.Publish(Event{Type: EventListingNew})

	select {
	case <-listingCh:
	case <-time.After(time.Second):
		t.Fatal("listing.new subscriber did not receive event")
	}

	select {
	case <-otherCh:
		t.Fatal("listing.stale subscriber should NOT receive listing.new event")
	case <-time.After(50 * time.Millisecond):
		// good
	}
}

func TestBus_PublishBatch(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 100)
	bus.Subscribe(EventListingNew, received)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(Event{Type: EventListingNew})
		}()
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if len(received) != 50 {
		t.Errorf("expected 50 events, got %d", len(received))
	}
}
