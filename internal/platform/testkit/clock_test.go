package testkit

import (
	"context"
	"testing"
	"time"
)

func TestClock_AdvanceAndSleep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Fatalf("Now after Advance = %v", got)
	}

	var hooked time.Duration
	c.OnSleep = func(d time.Duration) { hooked = d }
	if err := c.Sleep(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Sleep returned %v", err)
	}
	if hooked != 5*time.Second {
		t.Fatalf("OnSleep saw %v", hooked)
	}
	if got := c.Sleeps(); len(got) != 1 || got[0] != 5*time.Second {
		t.Fatalf("Sleeps = %v", got)
	}
	if got := c.Now(); !got.Equal(start.Add(time.Minute + 5*time.Second)) {
		t.Fatalf("Sleep did not advance the clock: %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Sleep(ctx, time.Second); err == nil {
		t.Fatalf("Sleep on a cancelled ctx should report the cancellation")
	}
}
