package haptic

import (
	"math"
	"time"
)

const (
	sampleRate = 44100
	pulseFreq  = 180 // low buzz, closer to a motor than a beep
	pulseVol   = 0.5
	pulseDecay = 25
)

// render synthesizes a mono pattern: even entries are silence, odd entries
// are pulses.
func render(pattern []time.Duration) []int16 {
	var out []int16
	for i, d := range pattern {
		n := int(d.Seconds() * sampleRate)
		if n <= 0 {
			continue
		}
		if i%2 == 0 {
			out = append(out, make([]int16, n)...)
			continue
		}
		out = append(out, pulseSamples(n)...)
	}
	return out
}

func pulseSamples(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * pulseDecay)
		samples[i] = int16(math.Sin(2*math.Pi*pulseFreq*t) * 32767 * pulseVol * envelope)
	}
	return samples
}

// pulsePattern is the pattern equivalent of a single pulse.
func pulsePattern(d time.Duration) []time.Duration {
	return []time.Duration{0, d}
}
