package session

import "errors"

var (
	// ErrPermissionDenied is returned when microphone permission was not granted.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrRecordingStartFailed wraps any fault while starting a recording.
	ErrRecordingStartFailed = errors.New("recording start failed")
	// ErrRecordingStopFailed wraps any fault while stopping a recording.
	ErrRecordingStopFailed = errors.New("recording stop failed")

	// ErrBusy is returned when a command arrives while a start/stop is in flight.
	ErrBusy = errors.New("recording operation in progress")
	// ErrPermissionRequired is returned when toggling without granted permission.
	ErrPermissionRequired = errors.New("microphone permission not granted")
	// ErrListening is returned when retrying permission while recording.
	ErrListening = errors.New("cannot retry permission while listening")
	// ErrUnmounted is returned for commands issued after Unmount.
	ErrUnmounted = errors.New("session unmounted")
)
