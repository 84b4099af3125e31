package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"coverme/encoder"
	"coverme/log"

	"github.com/google/uuid"
)

// CaptureSubsystem implements Subsystem on top of a capture Context,
// encoding each recording to a FLAC file in dir.
type CaptureSubsystem struct {
	ctx    Context
	device *DeviceInfo // nil = system default
	dir    string

	mu         sync.Mutex
	mode       ModeOptions
	configured bool
	active     *captureRecording
}

func NewCaptureSubsystem(ctx Context, device *DeviceInfo, dir string) *CaptureSubsystem {
	if dir == "" {
		dir = os.TempDir()
	}
	return &CaptureSubsystem{ctx: ctx, device: device, dir: dir}
}

// RequestPermission reports whether the selected capture device is reachable.
func (s *CaptureSubsystem) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	devices, err := s.ctx.Devices()
	if err != nil {
		return false, fmt.Errorf("enumerating capture devices: %w", err)
	}
	if s.device == nil {
		return len(devices) > 0, nil
	}
	for _, d := range devices {
		if d.Name == s.device.Name {
			return true, nil
		}
	}
	return false, nil
}

func (s *CaptureSubsystem) ConfigureMode(opts ModeOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.mode = opts
	s.configured = true
	s.mu.Unlock()
	return nil
}

func (s *CaptureSubsystem) StartRecording(ctx context.Context, preset Preset) (Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configured || !s.mode.AllowsRecording {
		return nil, ErrRecordingNotAllowed
	}
	if s.active != nil {
		return nil, ErrAlreadyRecording
	}

	cfg := preset.CaptureConfig()
	dev, err := s.ctx.NewCapture(s.device, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening capture device: %w", err)
	}
	enc, err := encoder.NewFlac(cfg.SampleRate)
	if err != nil {
		dev.Close()
		return nil, err
	}

	rec := &captureRecording{
		id:     uuid.NewString(),
		preset: preset,
		device: dev,
		enc:    enc,
	}
	dev.SetCallback(rec.write)
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		return nil, fmt.Errorf("starting capture: %w", err)
	}
	s.active = rec
	return rec, nil
}

func (s *CaptureSubsystem) StopRecording(_ context.Context, r Recording) (string, error) {
	rec, ok := r.(*captureRecording)
	if !ok || rec == nil {
		return "", ErrUnknownRecording
	}
	s.mu.Lock()
	if s.active == rec {
		s.active = nil
	}
	s.mu.Unlock()
	return rec.finish(s.dir)
}

// DeviceName returns the name of the capture device recordings use.
func (s *CaptureSubsystem) DeviceName() string {
	if s.device != nil {
		return s.device.Name
	}
	return "system default"
}

type captureRecording struct {
	id     string
	preset Preset
	device CaptureDevice
	enc    *encoder.FlacEncoder

	mu      sync.Mutex
	pending []int16
	stopped bool
	err     error

	releaseOnce sync.Once
	data        []byte
	encodeErr   error

	writeMu  sync.Mutex
	location string
}

func (r *captureRecording) ID() string { return r.id }

func (r *captureRecording) write(data []byte, _ uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.err != nil {
		return
	}
	for i := 0; i+1 < len(data); i += 2 {
		r.pending = append(r.pending, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	for len(r.pending) >= encoder.BlockSize {
		if err := r.enc.EncodeBlock(r.pending[:encoder.BlockSize]); err != nil {
			r.err = err
			return
		}
		r.pending = r.pending[encoder.BlockSize:]
	}
}

// release stops the device and finalizes the encoded stream. It runs once;
// an encoding failure is permanent since the samples are gone.
func (r *captureRecording) release() {
	r.device.Stop()
	r.device.ClearCallback()
	r.device.Close()

	r.mu.Lock()
	r.stopped = true
	if r.err == nil && len(r.pending) > 0 {
		r.err = r.enc.EncodeBlock(r.pending)
		r.pending = nil
	}
	encErr := r.err
	r.mu.Unlock()

	if encErr != nil {
		r.encodeErr = fmt.Errorf("encoding recording: %w", encErr)
		return
	}
	if err := r.enc.Close(); err != nil {
		r.encodeErr = fmt.Errorf("finalizing recording: %w", err)
		return
	}
	r.data = r.enc.Bytes()
}

// finish releases the device on the first call, then writes the artifact.
// A failed write is retried by the next call; once written, the location
// is returned unchanged.
func (r *captureRecording) finish(dir string) (string, error) {
	r.releaseOnce.Do(r.release)
	if r.encodeErr != nil {
		return "", r.encodeErr
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.location != "" {
		return r.location, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating recordings dir: %w", err)
	}
	path := filepath.Join(dir, "coverme-"+r.id+".flac")
	if err := os.WriteFile(path, r.data, 0644); err != nil {
		return "", fmt.Errorf("writing recording: %w", err)
	}
	r.location = path
	log.Artifact(log.ArtifactMetrics{
		AudioS:       encoder.Duration(r.enc.TotalFrames(), r.enc.SampleRate()).Seconds(),
		SizeKB:       float64(len(r.data)) / 1024,
		EncodeTimeMs: float64(r.enc.EncodeTime().Microseconds()) / 1000,
		SampleRate:   r.enc.SampleRate(),
	})
	return path, nil
}
