package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coverme/audio"
	"coverme/clipboard"
	"coverme/haptic"
	"coverme/hotkey"
	"coverme/log"
)

// Env holds everything the checks touch, so they can run against fakes.
type Env struct {
	In            io.Reader
	Out           io.Writer
	NewContext    func() (audio.Context, error)
	NewHotkey     func() hotkey.Hotkey
	Haptic        haptic.Sink
	Device        string
	RecordingsDir string
	Preset        audio.Preset
	RecordFor     time.Duration
	HotkeyWait    time.Duration
}

// DefaultEnv wires the real devices.
func DefaultEnv(device, recordingsDir string, preset audio.Preset) Env {
	return Env{
		In:            os.Stdin,
		Out:           os.Stdout,
		NewContext:    audio.NewContext,
		NewHotkey:     hotkey.New,
		Haptic:        haptic.New(),
		Device:        device,
		RecordingsDir: recordingsDir,
		Preset:        preset,
		RecordFor:     3 * time.Second,
		HotkeyWait:    10 * time.Second,
	}
}

type check struct {
	name string
	run  func(*runner) bool
}

var checks = []check{
	{"Log directory", (*runner).checkLogDir},
	{"Microphone permission and recording", (*runner).checkMicrophone},
	{"Haptic feedback", (*runner).checkHaptics},
	{"Hotkey detection", (*runner).checkHotkey},
	{"Clipboard", (*runner).checkClipboard},
}

type runner struct {
	env    Env
	reader *bufio.Reader
	term   *terminal
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.env.Out, format, args...)
}

func (r *runner) confirm(question string) bool {
	r.printf("%s [y/n]: ", question)
	answer, _ := r.reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(env Env) int {
	t := saveTerminal(os.Stdin)
	t.exitOnInterrupt()
	return run(env, t)
}

func run(env Env, t *terminal) int {
	r := &runner{env: env, reader: bufio.NewReader(env.In), term: t}

	r.printf("coverme doctor - interactive system diagnostics\n")
	r.printf("===============================================\n")

	allPass := true
	for i, c := range checks {
		r.printf("\n[%d/%d] %s\n", i+1, len(checks), c.name)
		if !c.run(r) {
			allPass = false
		}
	}

	r.printf("\n")
	if allPass {
		r.printf("All checks passed!\n")
		return 0
	}
	r.printf("Some checks failed. See details above.\n")
	return 1
}

func (r *runner) checkLogDir() bool {
	dir := log.Dir()
	if dir == "" {
		r.printf("  FAIL: log directory not resolved\n")
		return false
	}
	if err := log.EnsureDir(); err != nil {
		r.printf("  FAIL: %v\n", err)
		return false
	}
	probe := filepath.Join(dir, ".doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		r.printf("  FAIL: %s not writable: %v\n", dir, err)
		return false
	}
	os.Remove(probe)
	r.printf("  PASS: logs go to %s\n", dir)
	return true
}

func (r *runner) checkMicrophone() bool {
	actx, err := r.env.NewContext()
	if err != nil {
		r.printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if r.env.Device != "" {
		device, err = audio.FindDevice(actx, r.env.Device)
		if err != nil {
			r.printf("  FAIL: %v\n", err)
			return false
		}
	}

	sub := audio.NewCaptureSubsystem(actx, device, r.env.RecordingsDir)
	ctx := context.Background()
	granted, err := sub.RequestPermission(ctx)
	if err != nil {
		r.printf("  FAIL: permission request failed: %v\n", err)
		return false
	}
	if !granted {
		r.printf("  FAIL: microphone not available (no capture device)\n")
		return false
	}
	r.printf("  Permission granted, using %s\n", sub.DeviceName())

	if err := sub.ConfigureMode(audio.DefaultModeOptions()); err != nil {
		r.printf("  FAIL: configuring audio mode: %v\n", err)
		return false
	}
	rec, err := sub.StartRecording(ctx, r.env.Preset)
	if err != nil {
		r.printf("  FAIL: recording error: %v\n", err)
		return false
	}
	r.printf("  Recording for %s...\n", r.env.RecordFor)
	time.Sleep(r.env.RecordFor)

	location, err := sub.StopRecording(ctx, rec)
	if err != nil {
		r.printf("  FAIL: stopping recording: %v\n", err)
		return false
	}
	info, err := os.Stat(location)
	if err != nil {
		r.printf("  FAIL: recording not written: %v\n", err)
		return false
	}
	r.printf("  PASS: recorded %.1f KB to %s\n", float64(info.Size())/1024, location)
	return true
}

func (r *runner) checkHaptics() bool {
	r.printf("  Playing connect pulse, then stop pattern...\n")
	r.env.Haptic.Pulse(haptic.ShortPulse)
	time.Sleep(300 * time.Millisecond)
	r.env.Haptic.Pattern(haptic.StopPattern)

	if r.confirm("  Did you hear two kinds of ticks?") {
		r.printf("  PASS: haptic feedback verified by user\n")
		return true
	}
	r.printf("  FAIL: haptic feedback not confirmed (disable with -haptics=false)\n")
	return false
}

func (r *runner) checkHotkey() bool {
	msg, err := hotkey.Diagnose()
	if err != nil {
		r.printf("  FAIL: %v\n", err)
		return false
	}
	r.printf("  %s\n", msg)

	hk := r.env.NewHotkey()
	if err := hk.Register(); err != nil {
		r.printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	r.printf("Press %s...\n", hotkey.Binding)
	select {
	case <-hk.Keydown():
		r.printf("  PASS: hotkey detected\n")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// The hotkey grab can leave the terminal in raw mode.
		r.term.restore()
		return true
	case <-time.After(r.env.HotkeyWait):
		r.printf("  FAIL: timeout waiting for hotkey\n")
		return false
	}
}

func (r *runner) checkClipboard() bool {
	if !clipboard.Available() {
		r.printf("  FAIL: %v (install xclip, xsel or wl-clipboard)\n", clipboard.ErrUnsupported)
		return false
	}
	prev, _ := clipboard.Read()
	defer func() {
		if prev != "" {
			clipboard.Copy(prev)
		}
	}()

	sentinel := "coverme-doctor-test"
	if err := clipboard.Copy(sentinel); err != nil {
		r.printf("  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if err != nil {
		r.printf("  FAIL: could not read clipboard: %v\n", err)
		return false
	}
	if got != sentinel {
		r.printf("  FAIL: clipboard round trip got %q, want %q\n", got, sentinel)
		return false
	}
	r.printf("  PASS: suggestions can be copied\n")
	return true
}
