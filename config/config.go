// Package config resolves settings from flags, COVERME_* environment
// variables and an optional .env file, in that order of priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"coverme/audio"

	"github.com/joho/godotenv"
)

const (
	EnvPrefix  = "COVERME_"
	EnvFileVar = EnvPrefix + "ENV_FILE"
)

type Config struct {
	LogPath       string
	RecordingsDir string
	Preset        audio.Preset
	Device        string
	Haptics       bool
	TUI           bool
	Hotkey        bool

	Test    bool
	Setup   bool
	Doctor  bool
	Version bool

	Args []string // positional arguments, e.g. the -test WAV file
}

// Load reads the .env file named by COVERME_ENV_FILE (default ".env"), then
// parses args. Variables already set in the environment are not overridden
// by the file.
func Load(args []string) (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	var cfg Config
	var preset string
	flags := flag.NewFlagSet("coverme", flag.ContinueOnError)
	flags.StringVar(&cfg.LogPath, "logpath", getEnv("LOG_PATH", ""), "log directory path (default: OS-specific location, use ./ for current dir)")
	flags.StringVar(&cfg.RecordingsDir, "recordings", getEnv("RECORDINGS_DIR", ""), "directory for captured audio (default: system temp dir)")
	flags.StringVar(&preset, "preset", getEnv("PRESET", "high"), "recording quality: high or low")
	flags.StringVar(&cfg.Device, "device", getEnv("DEVICE", ""), "use named microphone device")
	flags.BoolVar(&cfg.Haptics, "haptics", getBool("HAPTICS", true), "play haptic ticks on connect, start and stop")
	flags.BoolVar(&cfg.TUI, "tui", getBool("TUI", true), "run with terminal UI")
	flags.BoolVar(&cfg.Hotkey, "hotkey", getBool("HOTKEY", true), "register the global Ctrl+Shift+Space toggle")
	flags.BoolVar(&cfg.Test, "test", getBool("TEST", false), "test mode (headless, stdin-driven)")
	flags.BoolVar(&cfg.Setup, "setup", false, "select microphone device (otherwise uses system default)")
	flags.BoolVar(&cfg.Doctor, "doctor", false, "run system diagnostics and exit")
	flags.BoolVar(&cfg.Version, "version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	p, err := audio.ParsePreset(preset)
	if err != nil {
		return Config{}, err
	}
	cfg.Preset = p
	cfg.Args = flags.Args()
	return cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv(EnvFileVar)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(EnvPrefix + key))
	if err != nil {
		return defaultValue
	}
	return v
}
