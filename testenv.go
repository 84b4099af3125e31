package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"coverme/audio"
	"coverme/config"
	"coverme/haptic"
	"coverme/log"
	"coverme/session"
)

const testWaitTimeout = 10 * time.Second

// runTestMode drives a session headlessly from line commands on in, using a
// fake microphone fed from the WAV file named by the first positional
// argument (silence when absent). It returns the process exit code.
func runTestMode(cfg config.Config, in io.Reader, out io.Writer) int {
	return runTestModeWith(cfg, in, out, session.RealClock())
}

func runTestModeWith(cfg config.Config, in io.Reader, out io.Writer, clock session.Clock) int {
	actx, err := testContext(cfg.Args)
	if err != nil {
		fmt.Fprintf(out, "ERROR loading WAV: %v\n", err)
		return 1
	}
	defer actx.Close()

	sub := audio.NewCaptureSubsystem(actx, nil, cfg.RecordingsDir)
	ctrl := session.New(sub, haptic.Nop{}, session.Options{Clock: clock, Preset: cfg.Preset})
	defer ctrl.Unmount()

	ctx := context.Background()
	if err := ctrl.Mount(ctx); err != nil {
		log.Warnf("test mode mount: %v", err)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" || strings.HasPrefix(cmd, "#") {
			continue
		}
		switch {
		case cmd == "TOGGLE":
			if err := ctrl.Toggle(ctx); err != nil {
				fmt.Fprintf(out, "TOGGLE error: %s\n", errorCode(err))
			}
		case cmd == "RETRY":
			if err := ctrl.RetryPermission(ctx); err != nil {
				fmt.Fprintf(out, "RETRY error: %s\n", errorCode(err))
			}
		case cmd == "DISMISS":
			ctrl.DismissError()
		case cmd == "WAIT_LISTENING":
			if !waitState(ctrl, func(s session.State) bool { return s.Listening && !s.Loading }) {
				fmt.Fprintln(out, "TIMEOUT waiting for listening")
				return 1
			}
		case cmd == "WAIT_IDLE":
			if !waitState(ctrl, func(s session.State) bool { return !s.Listening && !s.Loading }) {
				fmt.Fprintln(out, "TIMEOUT waiting for idle")
				return 1
			}
		case cmd == "STATE":
			fmt.Fprintln(out, formatState(ctrl.State()))
		case cmd == "QUIT":
			return 0
		case strings.HasPrefix(cmd, "SLEEP "):
			ms, err := strconv.Atoi(strings.TrimSpace(cmd[len("SLEEP "):]))
			if err != nil {
				fmt.Fprintf(out, "ERROR bad sleep %q\n", cmd)
				continue
			}
			sleep(clock, time.Duration(ms)*time.Millisecond)
		default:
			fmt.Fprintf(out, "ERROR unknown command %q\n", cmd)
		}
	}
	return 0
}

func testContext(args []string) (*audio.FakeContext, error) {
	if len(args) > 0 {
		return audio.NewFakeContextFromWAV(args[0], true)
	}
	return audio.NewFakeContext(nil, true), nil
}

// sleep waits d of session time; a fake clock is advanced instead.
func sleep(clock session.Clock, d time.Duration) {
	if fc, ok := clock.(*session.FakeClock); ok {
		fc.Advance(d)
		return
	}
	time.Sleep(d)
}

func waitState(ctrl *session.Controller, cond func(session.State) bool) bool {
	deadline := time.Now().Add(testWaitTimeout)
	for time.Now().Before(deadline) {
		if cond(ctrl.State()) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func formatState(s session.State) string {
	return fmt.Sprintf("STATE listening=%t permission=%s connected=%t loading=%t suggestion=%q history=%d error=%q",
		s.Listening, s.Permission, s.Connected, s.Loading, s.CurrentSuggestion, len(s.History), s.Error)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "busy"
	case errors.Is(err, session.ErrPermissionRequired):
		return "permission_required"
	case errors.Is(err, session.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, session.ErrRecordingStartFailed):
		return "start_failed"
	case errors.Is(err, session.ErrRecordingStopFailed):
		return "stop_failed"
	case errors.Is(err, session.ErrListening):
		return "listening"
	case errors.Is(err, session.ErrUnmounted):
		return "unmounted"
	default:
		return err.Error()
	}
}
