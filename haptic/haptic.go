// Package haptic renders haptic feedback. Desktops have no vibration motor,
// so pulses are played as short ticks on the default output device.
package haptic

import "time"

const ShortPulse = 50 * time.Millisecond

// StopPattern alternates pause and pulse durations, starting with a pause.
var StopPattern = []time.Duration{0, 100 * time.Millisecond, 60 * time.Millisecond, 100 * time.Millisecond}

type Sink interface {
	Pulse(d time.Duration)
	Pattern(p []time.Duration)
}

// Nop discards all feedback.
type Nop struct{}

func (Nop) Pulse(time.Duration)     {}
func (Nop) Pattern([]time.Duration) {}

var disabled bool

func Disable() { disabled = true }

// New returns the platform sink, or Nop when feedback is disabled.
func New() Sink {
	if disabled {
		return Nop{}
	}
	return &player{}
}
