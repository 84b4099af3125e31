package session

import (
	"slices"
	"testing"
	"time"
)

func TestFakeClockOrder(t *testing.T) {
	c := NewFakeClock()
	var got []string
	c.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	c.AfterFunc(time.Second, func() { got = append(got, "a") })
	c.AfterFunc(2*time.Second, func() { got = append(got, "c") })

	c.Advance(time.Second)
	if !slices.Equal(got, []string{"a"}) {
		t.Fatalf("after 1s: %v", got)
	}
	c.Advance(time.Second)
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("after 2s: %v", got)
	}
	if c.Now() != 2*time.Second {
		t.Fatalf("now = %v", c.Now())
	}
}

func TestFakeClockStop(t *testing.T) {
	c := NewFakeClock()
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("Stop on pending timer returned false")
	}
	if tm.Stop() {
		t.Fatal("second Stop returned true")
	}
	c.Advance(time.Minute)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeClockRescheduleWithinAdvance(t *testing.T) {
	c := NewFakeClock()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(5 * time.Second)
	if ticks != 5 {
		t.Fatalf("ticks = %d, want 5", ticks)
	}
	if c.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", c.Pending())
	}
}
