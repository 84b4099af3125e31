package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tonePCM(frames int) []byte {
	buf := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(i%200-100)))
	}
	return buf
}

func newTestSubsystem(t *testing.T) (*CaptureSubsystem, *FakeContext, string) {
	t.Helper()
	dir := t.TempDir()
	ctx := NewFakeContext(tonePCM(10000), false)
	sub := NewCaptureSubsystem(ctx, nil, dir)
	if err := sub.ConfigureMode(DefaultModeOptions()); err != nil {
		t.Fatalf("ConfigureMode: %v", err)
	}
	return sub, ctx, dir
}

func TestRequestPermission(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	sub := NewCaptureSubsystem(ctx, nil, t.TempDir())

	granted, err := sub.RequestPermission(context.Background())
	if err != nil || !granted {
		t.Fatalf("got (%v, %v), want granted", granted, err)
	}

	ctx.SetDevices(nil, nil)
	granted, err = sub.RequestPermission(context.Background())
	if err != nil || granted {
		t.Fatalf("no devices: got (%v, %v), want denied without error", granted, err)
	}

	boom := errors.New("server gone")
	ctx.SetDevices(nil, boom)
	if _, err := sub.RequestPermission(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped device error, got %v", err)
	}
}

func TestRequestPermissionNamedDevice(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	sub := NewCaptureSubsystem(ctx, &DeviceInfo{ID: "x", Name: "missing"}, t.TempDir())
	granted, err := sub.RequestPermission(context.Background())
	if err != nil || granted {
		t.Fatalf("got (%v, %v), want denied", granted, err)
	}
}

func TestStartRequiresRecordingMode(t *testing.T) {
	sub := NewCaptureSubsystem(NewFakeContext(nil, false), nil, t.TempDir())
	if _, err := sub.StartRecording(context.Background(), PresetLowQuality); !errors.Is(err, ErrRecordingNotAllowed) {
		t.Fatalf("unconfigured: expected ErrRecordingNotAllowed, got %v", err)
	}

	opts := DefaultModeOptions()
	opts.AllowsRecording = false
	if err := sub.ConfigureMode(opts); err != nil {
		t.Fatal(err)
	}
	if _, err := sub.StartRecording(context.Background(), PresetLowQuality); !errors.Is(err, ErrRecordingNotAllowed) {
		t.Fatalf("recording disabled: expected ErrRecordingNotAllowed, got %v", err)
	}
}

func TestConfigureModeRejectsInvalid(t *testing.T) {
	sub := NewCaptureSubsystem(NewFakeContext(nil, false), nil, t.TempDir())
	opts := DefaultModeOptions()
	opts.Interruption = InterruptionMode(42)
	if err := sub.ConfigureMode(opts); err == nil {
		t.Fatal("expected error for invalid interruption mode")
	}
}

func TestStartStopWritesArtifact(t *testing.T) {
	sub, _, dir := newTestSubsystem(t)

	rec, err := sub.StartRecording(context.Background(), PresetLowQuality)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if _, err := sub.StartRecording(context.Background(), PresetLowQuality); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second start: expected ErrAlreadyRecording, got %v", err)
	}

	path, err := sub.StopRecording(context.Background(), rec)
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("artifact %q not in %q", path, dir)
	}
	if !strings.Contains(path, rec.ID()) {
		t.Errorf("artifact %q does not carry recording id %q", path, rec.ID())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "fLaC" {
		t.Fatal("artifact is not FLAC")
	}

	again, err := sub.StopRecording(context.Background(), rec)
	if err != nil || again != path {
		t.Fatalf("repeated stop: got (%q, %v), want (%q, nil)", again, err, path)
	}

	if _, err := sub.StartRecording(context.Background(), PresetHighQuality); err != nil {
		t.Fatalf("start after stop: %v", err)
	}
}

func TestStopReleasesDeviceOnWriteFailure(t *testing.T) {
	sub, _, dir := newTestSubsystem(t)
	rec, err := sub.StartRecording(context.Background(), PresetLowQuality)
	if err != nil {
		t.Fatal(err)
	}

	// A regular file where the recordings dir should be makes the write fail.
	blocker := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	sub.dir = blocker

	if _, err := sub.StopRecording(context.Background(), rec); err == nil {
		t.Fatal("expected stop error")
	}
	if _, err := sub.StartRecording(context.Background(), PresetLowQuality); err != nil {
		t.Fatalf("device not released after failed stop: %v", err)
	}
}

func TestStopRetriesWriteAfterFailure(t *testing.T) {
	sub, _, dir := newTestSubsystem(t)
	rec, err := sub.StartRecording(context.Background(), PresetLowQuality)
	if err != nil {
		t.Fatal(err)
	}

	blocker := filepath.Join(dir, "recs")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	sub.dir = blocker

	for i := 0; i < 2; i++ {
		if _, err := sub.StopRecording(context.Background(), rec); err == nil {
			t.Fatalf("stop %d: expected error while dir is blocked", i)
		}
	}

	if err := os.Remove(blocker); err != nil {
		t.Fatal(err)
	}
	path, err := sub.StopRecording(context.Background(), rec)
	if err != nil {
		t.Fatalf("stop after unblocking: %v", err)
	}
	if filepath.Dir(path) != blocker {
		t.Errorf("artifact %q not in %q", path, blocker)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "fLaC" {
		t.Fatal("artifact is not FLAC")
	}

	again, err := sub.StopRecording(context.Background(), rec)
	if err != nil || again != path {
		t.Fatalf("repeated stop: got (%q, %v), want (%q, nil)", again, err, path)
	}
}

func TestStopUnknownRecording(t *testing.T) {
	sub, _, _ := newTestSubsystem(t)
	if _, err := sub.StopRecording(context.Background(), &fakeRecording{id: "nope"}); !errors.Is(err, ErrUnknownRecording) {
		t.Fatalf("expected ErrUnknownRecording, got %v", err)
	}
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    Preset
		wantErr bool
	}{
		{"", PresetHighQuality, false},
		{"high", PresetHighQuality, false},
		{"low", PresetLowQuality, false},
		{"lossless", PresetHighQuality, true},
	}
	for _, tt := range tests {
		got, err := ParsePreset(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePreset(%q) = (%v, %v)", tt.in, got, err)
		}
	}
	if PresetLowQuality.CaptureConfig().SampleRate != 16000 {
		t.Error("low preset should capture at 16kHz")
	}
}

func TestIsBluetooth(t *testing.T) {
	if !IsBluetooth("AirPods Pro") {
		t.Error("AirPods should be detected as a headset")
	}
	if IsBluetooth("Built-in Microphone") {
		t.Error("built-in mic flagged as headset")
	}
}

func TestDeviceInfoHeadset(t *testing.T) {
	if !newDeviceInfo("bluez_source.1", "WH-1000XM4").Headset {
		t.Error("WH-1000XM4 should be flagged as a headset")
	}
	if newDeviceInfo("alsa_input.0", "Built-in Audio Analog Stereo").Headset {
		t.Error("built-in input flagged as headset")
	}
	devices, err := NewFakeContext(nil, false).Devices()
	if err != nil || len(devices) != 1 || devices[0].Headset {
		t.Fatalf("fake devices = %+v, %v", devices, err)
	}
}
