package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coverme/audio"
	"coverme/config"
	"coverme/session"
)

func script(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

func runHeadless(t *testing.T, stdin string) (out string, code int, dir string) {
	t.Helper()
	dir = t.TempDir()
	cfg := config.Config{RecordingsDir: dir, Preset: audio.PresetLowQuality}
	var buf bytes.Buffer
	code = runTestModeWith(cfg, strings.NewReader(stdin), &buf, session.NewFakeClock())
	return buf.String(), code, dir
}

func stateLines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "STATE ") {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestTestModeListeningCycle(t *testing.T) {
	out, code, dir := runHeadless(t, script(
		"TOGGLE", "WAIT_LISTENING", "STATE",
		"SLEEP 6000", "STATE",
		"TOGGLE", "WAIT_IDLE", "STATE",
		"QUIT",
	))
	if code != 0 {
		t.Fatalf("exit code %d, output:\n%s", code, out)
	}
	states := stateLines(out)
	if len(states) != 3 {
		t.Fatalf("expected 3 STATE lines, got:\n%s", out)
	}
	if !strings.Contains(states[0], "listening=true") ||
		!strings.Contains(states[0], `suggestion="Listening to conversation..."`) {
		t.Errorf("after start: %s", states[0])
	}
	if !strings.Contains(states[1], "connected=true") || !strings.Contains(states[1], "history=1") {
		t.Errorf("after 6s: %s", states[1])
	}
	if !strings.Contains(states[2], "listening=false") || !strings.Contains(states[2], `suggestion=""`) {
		t.Errorf("after stop: %s", states[2])
	}

	matches, err := filepath.Glob(filepath.Join(dir, "coverme-*.flac"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one recording in %s, got %v", dir, matches)
	}
	if info, err := os.Stat(matches[0]); err != nil || info.Size() == 0 {
		t.Fatalf("recording not written: %v", err)
	}
}

func TestTestModeUnknownCommand(t *testing.T) {
	out, code, _ := runHeadless(t, script("JUMP", "QUIT"))
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(out, `ERROR unknown command "JUMP"`) {
		t.Errorf("output:\n%s", out)
	}
}

func TestTestModeEOF(t *testing.T) {
	out, code, _ := runHeadless(t, script("TOGGLE", "WAIT_LISTENING"))
	if code != 0 {
		t.Fatalf("exit code %d, output:\n%s", code, out)
	}
}

func TestTestModeMissingWAV(t *testing.T) {
	cfg := config.Config{Args: []string{filepath.Join(t.TempDir(), "missing.wav")}}
	var buf bytes.Buffer
	if code := runTestModeWith(cfg, strings.NewReader(""), &buf, session.NewFakeClock()); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
}

func TestFormatState(t *testing.T) {
	s := session.State{Listening: true, Permission: session.PermissionGranted, History: []string{"a", "b"}}
	got := formatState(s)
	for _, want := range []string{"listening=true", "permission=granted", "history=2"} {
		if !strings.Contains(got, want) {
			t.Errorf("%q missing %q", got, want)
		}
	}
}
