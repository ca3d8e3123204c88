package providers

import (
	"strings"
	"testing"
	"time"
)

func TestCooldownGateBlocksImmediateRerun(t *testing.T) {
	c := NewClient("token", 300*time.Second, 2.0, true, nil, nil)
	if !c.CanRunNow("immoscout24", false) {
		t.Fatalf("expected first run to be allowed")
	}
	c.MarkRun("immoscout24")
	if c.CanRunNow("immoscout24", false) {
		t.Errorf("expected cooldown to block immediate rerun")
	}
	if !c.CanRunNow("immoscout24", true) {
		t.Errorf("expected bypass to ignore an active cooldown")
	}
}

func TestCooldownScalesDuringQuietHours(t *testing.T) {
	quietHour := 2
	c := NewClient("token", time.Second, 10.0, true,
		func(h int) bool { return h == quietHour },
		func() int { return quietHour },
	)
	c.MarkRun("immowelt")
	time.Sleep(1100 * time.Millisecond)
	if c.CanRunNow("immowelt", false) {
		t.Errorf("expected quiet-hour scaling to extend cooldown past base duration")
	}
}

func TestDecodeItemsBodyHandlesListAndWrappedForms(t *testing.T) {
	items, err := decodeItemsBody(strings.NewReader(`[{"a":1},{"b":2}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}

	wrapped, err := decodeItemsBody(strings.NewReader(`{"items":[{"a":1}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wrapped) != 1 {
		t.Errorf("expected 1 wrapped item, got %d", len(wrapped))
	}
}
