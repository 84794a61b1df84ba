package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewManual(start)
	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now: got %v want %v", got, start)
	}
	next := c.Advance(time.Minute)
	if !next.Equal(start.Add(time.Minute)) || !c.Now().Equal(next) {
		t.Fatalf("Advance: got %v now=%v", next, c.Now())
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Set: got %v", c.Now())
	}
}
