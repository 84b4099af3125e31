package config

import (
	"os"
	"path/filepath"
	"testing"

	"coverme/audio"
)

// noEnvFile points the loader at a missing path so a stray .env in the
// working directory cannot leak into the test.
func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv(EnvFileVar, "")
	t.Chdir(t.TempDir())
}

func TestDefaults(t *testing.T) {
	noEnvFile(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Preset != audio.PresetHighQuality {
		t.Errorf("preset = %v, want high", cfg.Preset)
	}
	if !cfg.TUI || !cfg.Haptics || !cfg.Hotkey {
		t.Errorf("expected tui, haptics and hotkey on by default: %+v", cfg)
	}
	if cfg.Test || cfg.Doctor || cfg.Version || cfg.Setup {
		t.Errorf("expected mode flags off by default: %+v", cfg)
	}
}

func TestEnvOverridesDefault(t *testing.T) {
	noEnvFile(t)
	t.Setenv("COVERME_PRESET", "low")
	t.Setenv("COVERME_HAPTICS", "false")
	t.Setenv("COVERME_DEVICE", "USB Mic")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Preset != audio.PresetLowQuality {
		t.Errorf("preset = %v, want low", cfg.Preset)
	}
	if cfg.Haptics {
		t.Error("haptics should be off")
	}
	if cfg.Device != "USB Mic" {
		t.Errorf("device = %q", cfg.Device)
	}
}

func TestFlagOverridesEnv(t *testing.T) {
	noEnvFile(t)
	t.Setenv("COVERME_PRESET", "low")
	t.Setenv("COVERME_TUI", "false")

	cfg, err := Load([]string{"-preset", "high", "-tui=true"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Preset != audio.PresetHighQuality {
		t.Errorf("preset = %v, want high", cfg.Preset)
	}
	if !cfg.TUI {
		t.Error("tui flag should win over env")
	}
}

func TestInvalidBoolEnvFallsBack(t *testing.T) {
	noEnvFile(t)
	t.Setenv("COVERME_HOTKEY", "maybe")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Hotkey {
		t.Error("unparseable bool should keep the default")
	}
}

func TestInvalidPreset(t *testing.T) {
	noEnvFile(t)
	if _, err := Load([]string{"-preset", "lossless"}); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestEnvFile(t *testing.T) {
	noEnvFile(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "coverme.env")
	content := "COVERME_RECORDINGS_DIR=/tmp/from-file\nCOVERME_PRESET=low\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvFileVar, path)
	// Process env beats the file.
	t.Setenv("COVERME_PRESET", "high")
	t.Cleanup(func() { os.Unsetenv("COVERME_RECORDINGS_DIR") })

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RecordingsDir != "/tmp/from-file" {
		t.Errorf("recordings dir = %q, want /tmp/from-file", cfg.RecordingsDir)
	}
	if cfg.Preset != audio.PresetHighQuality {
		t.Errorf("preset = %v, want high from process env", cfg.Preset)
	}
}

func TestMissingExplicitEnvFile(t *testing.T) {
	noEnvFile(t)
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "missing.env"))
	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}

func TestDefaultEnvFileInWorkingDir(t *testing.T) {
	noEnvFile(t)
	if err := os.WriteFile(".env", []byte("COVERME_LOG_PATH=/tmp/from-dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("COVERME_LOG_PATH") })

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogPath != "/tmp/from-dotenv" {
		t.Errorf("log path = %q", cfg.LogPath)
	}
}

func TestPositionalArgs(t *testing.T) {
	noEnvFile(t)
	cfg, err := Load([]string{"-test", "data/short.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Test || len(cfg.Args) != 1 || cfg.Args[0] != "data/short.wav" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
