package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	suggestionFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

const EnvLogPath = "COVERME_LOG_PATH"

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: COVERME_LOG_PATH environment variable
	if envPath := os.Getenv(EnvLogPath); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	suggestionPath := filepath.Join(dir, "suggestions_log.txt")
	suggestionFile, err = os.OpenFile(suggestionPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if suggestionFile != nil {
		suggestionFile.Close()
		suggestionFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(id, preset string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("preset", preset).
		Msg("session_start")
}

func SessionEnd(id string, committed int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Int("suggestions", committed).
		Msg("session_end")
}

func Permission(status string) {
	if !ready() {
		return
	}
	diagLog.Info().Str("status", status).Msg("permission")
}

func HeadsetConnected() {
	if !ready() {
		return
	}
	diagLog.Info().Msg("headset_connected")
}

func RecordingStart(id string) {
	if !ready() {
		return
	}
	diagLog.Info().Str("recording", id).Msg("recording_start")
}

func RecordingStop(id, location string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("recording", id).
		Str("location", location).
		Msg("recording_stop")
}

func RecordingError(op string, err error) {
	if !ready() {
		return
	}
	diagLog.Error().Str("op", op).Err(err).Msg("recording_error")
}

type ArtifactMetrics struct {
	AudioS       float64
	SizeKB       float64
	EncodeTimeMs float64
	SampleRate   uint32
}

func Artifact(m ArtifactMetrics) {
	if !ready() {
		return
	}
	diagLog.Info().
		Float64("audio_s", m.AudioS).
		Float64("size_kb", m.SizeKB).
		Float64("encode_ms", m.EncodeTimeMs).
		Uint32("rate", m.SampleRate).
		Msg("artifact")
}

func Suggestion(text string) {
	if !ready() {
		return
	}
	diagLog.Info().Str("text", text).Msg("suggestion")
}

// SuggestionText appends a committed suggestion to suggestions_log.txt.
func SuggestionText(text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || suggestionFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	suggestionFile.WriteString(line)
}
