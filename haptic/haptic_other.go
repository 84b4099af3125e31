//go:build !linux && !darwin

package haptic

import "time"

// No playback backend here; feedback is dropped.
type player struct{}

func (*player) Pulse(time.Duration)     {}
func (*player) Pattern([]time.Duration) {}
