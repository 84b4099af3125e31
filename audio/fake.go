package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext serves a fixed PCM buffer as microphone input.
type FakeContext struct {
	pcm      []byte
	realtime bool
	devices  []DeviceInfo
	err      error
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{
		pcm:      pcm,
		realtime: realtime,
		devices:  []DeviceInfo{newDeviceInfo("fake", "fake")},
	}
}

// NewFakeContextFromWAV loads a 16-bit mono WAV file as the input.
func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return NewFakeContext(data, realtime), nil
}

// SetDevices replaces the enumerated devices; err, when set, is returned by Devices.
func (f *FakeContext) SetDevices(devices []DeviceInfo, err error) {
	f.devices = devices
	f.err = err
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.devices, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, realtime: f.realtime, rate: config.SampleRate}, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool
	rate     uint32

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	closed   bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

// Start delivers the whole buffer synchronously unless realtime is set, in
// which case it is paced at the capture sample rate on a goroutine.
func (f *FakeCapture) Start() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return fmt.Errorf("fake capture closed")
	}
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done := f.stopCh, f.feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame

	if !f.realtime {
		if cb := f.callback(); cb != nil {
			for pos := 0; pos < len(f.pcm); {
				pos = f.feedChunk(cb, pos, chunkBytes)
			}
		}
		close(done)
		return nil
	}

	rate := f.rate
	if rate == 0 {
		rate = 16000
	}
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(rate)
	go func() {
		defer close(done)
		pos := 0
		silence := make([]byte, chunkBytes)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
			} else {
				cb(silence, fakeFrameSize)
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.feedDone
	f.stopCh, f.feedDone = nil, nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() {
	f.Stop()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// FakeSubsystem is a scriptable Subsystem for controller tests.
type FakeSubsystem struct {
	mu        sync.Mutex
	granted   bool
	permErr   error
	modeErr   error
	startErr  error
	stopErr   error
	permGate  chan struct{}
	startGate chan struct{}
	stopGate  chan struct{}
	seq       int
	held      map[string]bool
	stops     []string
	modes     []ModeOptions
	permCalls int
}

type fakeRecording struct{ id string }

func (r *fakeRecording) ID() string { return r.id }

func NewFakeSubsystem(granted bool) *FakeSubsystem {
	return &FakeSubsystem{granted: granted, held: make(map[string]bool)}
}

func (f *FakeSubsystem) SetPermission(granted bool, err error) {
	f.mu.Lock()
	f.granted, f.permErr = granted, err
	f.mu.Unlock()
}

func (f *FakeSubsystem) SetModeError(err error) {
	f.mu.Lock()
	f.modeErr = err
	f.mu.Unlock()
}

func (f *FakeSubsystem) SetStartError(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *FakeSubsystem) SetStopError(err error) {
	f.mu.Lock()
	f.stopErr = err
	f.mu.Unlock()
}

// GatePermission makes RequestPermission block, after counting the call,
// until the returned channel is closed or receives a value.
func (f *FakeSubsystem) GatePermission() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permGate = make(chan struct{})
	return f.permGate
}

// GateStart makes StartRecording block until the returned channel is
// closed or receives a value.
func (f *FakeSubsystem) GateStart() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startGate = make(chan struct{})
	return f.startGate
}

// GateStop makes StopRecording block until the returned channel is closed
// or receives a value.
func (f *FakeSubsystem) GateStop() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopGate = make(chan struct{})
	return f.stopGate
}

func (f *FakeSubsystem) RequestPermission(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.permCalls++
	gate := f.permGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.permErr != nil {
		return false, f.permErr
	}
	return f.granted, ctx.Err()
}

func (f *FakeSubsystem) ConfigureMode(opts ModeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.modeErr != nil {
		return f.modeErr
	}
	f.modes = append(f.modes, opts)
	return nil
}

func (f *FakeSubsystem) StartRecording(ctx context.Context, _ Preset) (Recording, error) {
	f.mu.Lock()
	gate := f.startGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.seq++
	rec := &fakeRecording{id: fmt.Sprintf("rec-%d", f.seq)}
	f.held[rec.id] = true
	return rec, nil
}

func (f *FakeSubsystem) StopRecording(ctx context.Context, rec Recording) (string, error) {
	f.mu.Lock()
	gate := f.stopGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, rec.ID())
	f.stops = append(f.stops, rec.ID())
	if f.stopErr != nil {
		return "", f.stopErr
	}
	return "/fake/" + rec.ID() + ".flac", nil
}

// Held returns how many recordings currently hold the capture device.
func (f *FakeSubsystem) Held() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.held)
}

// Stops returns the IDs passed to StopRecording, in call order.
func (f *FakeSubsystem) Stops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.stops))
	copy(out, f.stops)
	return out
}

func (f *FakeSubsystem) Modes() []ModeOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ModeOptions, len(f.modes))
	copy(out, f.modes)
	return out
}

func (f *FakeSubsystem) PermissionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permCalls
}
