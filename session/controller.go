// Package session implements the listening-session controller: microphone
// permission, recording lifecycle, the simulated headset connection, the
// periodic suggestion feed and the bounded suggestion history.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coverme/audio"
	"coverme/haptic"
	"coverme/log"

	"github.com/google/uuid"
)

const (
	ConnectDelay    = 1500 * time.Millisecond
	FeedPeriod      = 5 * time.Second
	CommitDelay     = time.Second
	HistoryCapacity = 10

	// ListeningPlaceholder is shown until the first suggestion arrives.
	ListeningPlaceholder = "Listening to conversation..."
)

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Clock  Clock
	Feed   *Feed
	Preset audio.Preset
	Mode   *audio.ModeOptions
}

// Controller owns all mutable session state. Every mutation happens under mu;
// blocking audio calls run with mu released and are guarded by loading.
type Controller struct {
	audio  audio.Subsystem
	haptic haptic.Sink
	clock  Clock
	feed   *Feed
	preset audio.Preset
	mode   audio.ModeOptions

	mu         sync.Mutex
	id         string
	version    uint64
	mounted    bool
	unmounted  bool
	listening  bool
	permission Permission
	permFault  bool
	connected  bool
	loading    bool
	requesting bool // permission request in flight
	errMsg     string
	suggestion string
	history    *History
	artifact   string
	committed  int

	recording audio.Recording

	connectTimer Timer
	feedTimer    Timer
	feedGen      uint64
	commits      map[uint64]Timer
	nextCommit   uint64

	observers []func(State)
}

func New(sub audio.Subsystem, sink haptic.Sink, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Feed == nil {
		opts.Feed = NewFeed(nil, nil)
	}
	mode := audio.DefaultModeOptions()
	if opts.Mode != nil {
		mode = *opts.Mode
	}
	if sink == nil {
		sink = haptic.Nop{}
	}
	return &Controller{
		audio:   sub,
		haptic:  sink,
		clock:   opts.Clock,
		feed:    opts.Feed,
		preset:  opts.Preset,
		mode:    mode,
		id:      uuid.NewString(),
		history: NewHistory(HistoryCapacity),
		commits: make(map[uint64]Timer),
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn is called without the controller lock held, possibly from a timer
// goroutine.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// FeedRunning reports whether the suggestion feed task is scheduled.
func (c *Controller) FeedRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feedTimer != nil
}

func (c *Controller) snapshotLocked() State {
	return State{
		SessionID:         c.id,
		Version:           c.version,
		Mounted:           c.mounted && !c.unmounted,
		Listening:         c.listening,
		Permission:        c.permission,
		Connected:         c.connected,
		Loading:           c.loading,
		Error:             c.errMsg,
		CurrentSuggestion: c.suggestion,
		History:           c.history.Items(),
		LastArtifact:      c.artifact,
	}
}

// changedLocked bumps the version and returns what to publish once mu is released.
func (c *Controller) changedLocked() (State, []func(State)) {
	c.version++
	obs := make([]func(State), len(c.observers))
	copy(obs, c.observers)
	return c.snapshotLocked(), obs
}

func publish(s State, obs []func(State)) {
	for _, fn := range obs {
		fn(s)
	}
}

// Mount arms the headset connection timer and requests microphone
// permission. It returns ErrPermissionDenied when permission was not granted;
// the outcome is also reflected in State.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted || c.unmounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	c.requesting = true
	c.connectTimer = c.clock.AfterFunc(ConnectDelay, c.onConnected)
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	log.SessionStart(c.id, c.preset.String())
	return c.requestPermission(ctx)
}

// RetryPermission re-requests microphone permission and overwrites the
// current status. It returns ErrBusy while a start, stop or another
// permission request is in flight, and ErrListening while recording, since
// a denial then would leave the recording impossible to stop.
func (c *Controller) RetryPermission(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.unmounted:
		c.mu.Unlock()
		return ErrUnmounted
	case c.loading || c.requesting:
		c.mu.Unlock()
		return ErrBusy
	case c.listening:
		c.mu.Unlock()
		return ErrListening
	}
	c.requesting = true
	c.mu.Unlock()
	return c.requestPermission(ctx)
}

func (c *Controller) requestPermission(ctx context.Context) error {
	granted, err := c.audio.RequestPermission(ctx)

	c.mu.Lock()
	c.requesting = false
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	var result error
	switch {
	case err != nil:
		c.permission = PermissionDenied
		c.permFault = true
		c.errMsg = "Microphone permission request failed: " + err.Error()
		result = fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case granted:
		c.permission = PermissionGranted
		if c.permFault {
			c.errMsg = ""
		}
		c.permFault = false
	default:
		c.permission = PermissionDenied
		result = ErrPermissionDenied
	}
	status := c.permission
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	if err != nil {
		log.Errorf("permission request error: %v", err)
	}
	log.Permission(status.String())
	return result
}

func (c *Controller) onConnected() {
	c.mu.Lock()
	if c.unmounted || c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = true
	c.connectTimer = nil
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	c.haptic.Pulse(haptic.ShortPulse)
	log.HeadsetConnected()
}

// Toggle starts listening when idle and stops when listening. It is ignored
// (returning ErrPermissionRequired or ErrBusy, state untouched) without
// granted permission or while a start, stop or permission request is in
// flight.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.unmounted:
		c.mu.Unlock()
		return ErrUnmounted
	case c.permission != PermissionGranted:
		c.mu.Unlock()
		return ErrPermissionRequired
	case c.loading || c.requesting:
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading = true
	listening := c.listening
	rec := c.recording
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	if listening {
		return c.stop(ctx, rec)
	}
	return c.start(ctx)
}

func (c *Controller) start(ctx context.Context) error {
	rec, err := c.startRecording(ctx)

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		if err == nil {
			c.release(rec)
		}
		return ErrUnmounted
	}
	c.loading = false
	if err != nil {
		c.errMsg = "Failed to start recording: " + err.Error()
		s, obs := c.changedLocked()
		c.mu.Unlock()
		publish(s, obs)

		log.RecordingError("start", err)
		return fmt.Errorf("%w: %w", ErrRecordingStartFailed, err)
	}
	c.recording = rec
	c.listening = true
	c.errMsg = ""
	c.suggestion = ListeningPlaceholder
	c.startFeedLocked()
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	c.haptic.Pulse(haptic.ShortPulse)
	log.RecordingStart(rec.ID())
	return nil
}

func (c *Controller) startRecording(ctx context.Context) (audio.Recording, error) {
	if err := c.audio.ConfigureMode(c.mode); err != nil {
		return nil, fmt.Errorf("configuring audio mode: %w", err)
	}
	return c.audio.StartRecording(ctx, c.preset)
}

// stop keeps the handle on failure so the next toggle retries the stop;
// the subsystem has already released the capture device either way.
func (c *Controller) stop(ctx context.Context, rec audio.Recording) error {
	location, err := c.audio.StopRecording(ctx, rec)

	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.loading = false
	if err != nil {
		c.errMsg = "Failed to stop recording: " + err.Error()
		s, obs := c.changedLocked()
		c.mu.Unlock()
		publish(s, obs)

		log.RecordingError("stop", err)
		return fmt.Errorf("%w: %w", ErrRecordingStopFailed, err)
	}
	c.recording = nil
	c.listening = false
	c.errMsg = ""
	c.suggestion = ""
	c.artifact = location
	c.stopFeedLocked()
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	c.haptic.Pattern(haptic.StopPattern)
	log.RecordingStop(rec.ID(), location)
	return nil
}

func (c *Controller) release(rec audio.Recording) {
	location, err := c.audio.StopRecording(context.Background(), rec)
	if err != nil {
		log.Warnf("release recording %s: %v", rec.ID(), err)
		return
	}
	log.RecordingStop(rec.ID(), location)
}

// DismissError clears the surfaced error message.
func (c *Controller) DismissError() {
	c.mu.Lock()
	if c.unmounted || c.errMsg == "" {
		c.mu.Unlock()
		return
	}
	c.errMsg = ""
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)
}

func (c *Controller) startFeedLocked() {
	c.feedGen++
	gen := c.feedGen
	c.feedTimer = c.clock.AfterFunc(FeedPeriod, func() { c.onFeedTick(gen) })
}

func (c *Controller) stopFeedLocked() {
	c.feedGen++
	if c.feedTimer != nil {
		c.feedTimer.Stop()
		c.feedTimer = nil
	}
}

func (c *Controller) onFeedTick(gen uint64) {
	c.mu.Lock()
	if c.unmounted || !c.listening || gen != c.feedGen {
		c.mu.Unlock()
		return
	}
	c.feedTimer = c.clock.AfterFunc(FeedPeriod, func() { c.onFeedTick(gen) })

	text := c.feed.Next()
	c.suggestion = text
	id := c.nextCommit
	c.nextCommit++
	c.commits[id] = c.clock.AfterFunc(CommitDelay, func() { c.onCommit(id, text) })
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	log.Suggestion(text)
}

// onCommit runs even if listening stopped after the tick that scheduled it.
func (c *Controller) onCommit(id uint64, text string) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	if _, ok := c.commits[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.commits, id)
	c.history.Push(text)
	c.committed++
	s, obs := c.changedLocked()
	c.mu.Unlock()
	publish(s, obs)

	log.SuggestionText(text)
}

// PendingCommits returns the number of suggestions waiting to enter history.
func (c *Controller) PendingCommits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commits)
}

// Unmount cancels every timer and releases any held recording. No state
// change or notification happens afterwards.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	if c.connectTimer != nil {
		c.connectTimer.Stop()
		c.connectTimer = nil
	}
	c.stopFeedLocked()
	for id, t := range c.commits {
		t.Stop()
		delete(c.commits, id)
	}
	rec := c.recording
	c.recording = nil
	c.listening = false
	c.observers = nil
	committed := c.committed
	c.mu.Unlock()

	if rec != nil {
		c.release(rec)
	}
	log.SessionEnd(c.id, committed)
}
