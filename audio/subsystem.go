package audio

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrRecordingNotAllowed = errors.New("audio mode does not allow recording")
	ErrAlreadyRecording    = errors.New("already recording")
	ErrUnknownRecording    = errors.New("unknown recording handle")
)

// Preset selects the capture quality of a recording.
type Preset int

const (
	PresetHighQuality Preset = iota
	PresetLowQuality
)

func (p Preset) String() string {
	if p == PresetLowQuality {
		return "low"
	}
	return "high"
}

func ParsePreset(s string) (Preset, error) {
	switch s {
	case "", "high":
		return PresetHighQuality, nil
	case "low":
		return PresetLowQuality, nil
	}
	return PresetHighQuality, fmt.Errorf("unknown preset %q (use high or low)", s)
}

// CaptureConfig returns the capture format recorded for the preset.
func (p Preset) CaptureConfig() CaptureConfig {
	if p == PresetLowQuality {
		return CaptureConfig{SampleRate: 16000, Channels: 1}
	}
	return CaptureConfig{SampleRate: 44100, Channels: 1}
}

// InterruptionMode controls how the recording coexists with other audio.
type InterruptionMode int

const (
	InterruptionDoNotMix InterruptionMode = iota
	InterruptionMixWithOthers
	InterruptionDuckOthers
)

// ModeOptions configures the audio subsystem before a recording starts.
type ModeOptions struct {
	AllowsRecording   bool // simultaneous record and playback
	PlaysInSilentMode bool
	Interruption      InterruptionMode
	DuckOthers        bool // platform-specific ducking of other streams
}

// DefaultModeOptions is the mode used for listening sessions.
func DefaultModeOptions() ModeOptions {
	return ModeOptions{
		AllowsRecording:   true,
		PlaysInSilentMode: true,
		Interruption:      InterruptionDoNotMix,
		DuckOthers:        true,
	}
}

func (o ModeOptions) validate() error {
	switch o.Interruption {
	case InterruptionDoNotMix, InterruptionMixWithOthers, InterruptionDuckOthers:
		return nil
	}
	return fmt.Errorf("invalid interruption mode %d", o.Interruption)
}

// Recording is an opaque handle to an active recording.
type Recording interface {
	ID() string
}

// Subsystem is the boundary between the session controller and the
// platform's audio stack.
type Subsystem interface {
	RequestPermission(ctx context.Context) (bool, error)
	ConfigureMode(opts ModeOptions) error
	StartRecording(ctx context.Context, preset Preset) (Recording, error)
	// StopRecording releases the capture device even when it fails to
	// produce the artifact location.
	StopRecording(ctx context.Context, rec Recording) (string, error)
}
