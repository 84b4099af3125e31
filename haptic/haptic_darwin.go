//go:build darwin

package haptic

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	initOnce  sync.Once
	playMu    sync.Mutex
	playBytes atomic.Pointer[[]byte]
	playPos   atomic.Uint32
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initPlayback() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func dataCallback(out, _ []byte, frameCount uint32) {
	clear(out)
	samples := playBytes.Load()
	if samples == nil {
		return
	}
	pos := playPos.Load()
	remaining := uint32(len(*samples)) - pos
	if remaining == 0 {
		playBytes.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(out[:n], (*samples)[pos:pos+n])
	playPos.Store(pos + n)
}

type player struct{}

func (p *player) Pulse(d time.Duration) {
	p.Pattern(pulsePattern(d))
}

func (p *player) Pattern(pattern []time.Duration) {
	mono := render(pattern)
	if len(mono) == 0 {
		return
	}
	buf := make([]byte, len(mono)*2)
	for i, s := range mono {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	go play(buf)
}

func play(buf []byte) {
	initOnce.Do(initPlayback)
	if malgoCtx == nil {
		return
	}
	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}

	device.Stop()
	playPos.Store(0)
	playBytes.Store(&buf)
	if err := device.Start(); err != nil {
		// Recreate the device, it goes stale across sleep/wake.
		device.Uninit()
		if err := initDevice(); err != nil {
			playBytes.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playBytes.Store(nil)
		}
	}
}
