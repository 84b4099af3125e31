//go:build linux

package haptic

import (
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type player struct {
	mu sync.Mutex // one pattern at a time
}

func (p *player) Pulse(d time.Duration) {
	p.Pattern(pulsePattern(d))
}

func (p *player) Pattern(pattern []time.Duration) {
	samples := render(pattern)
	go p.play(samples)
}

func (p *player) play(mono []int16) {
	if len(mono) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := pulse.NewClient(pulse.ClientApplicationName("coverme"))
	if err != nil {
		return
	}
	defer c.Close()

	// Interleave to stereo to match the usual sink format.
	samples := make([]int16, len(mono)*2)
	for i, s := range mono {
		samples[i*2] = s
		samples[i*2+1] = s
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
