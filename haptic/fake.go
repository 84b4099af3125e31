package haptic

import (
	"sync"
	"time"
)

// Event is one call recorded by Recorder.
type Event struct {
	Pattern []time.Duration // a Pulse is recorded as a single-element pattern
}

// Recorder is a Sink that records calls, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Pulse(d time.Duration) {
	r.mu.Lock()
	r.events = append(r.events, Event{Pattern: []time.Duration{d}})
	r.mu.Unlock()
}

func (r *Recorder) Pattern(p []time.Duration) {
	cp := make([]time.Duration, len(p))
	copy(cp, p)
	r.mu.Lock()
	r.events = append(r.events, Event{Pattern: cp})
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
