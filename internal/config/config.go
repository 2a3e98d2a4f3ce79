// Package config reads application settings from MEDIA2TXT_* environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media2txt/internal/chunk"
)

// Config holds every runtime setting of the tool server.
type Config struct {
	// Directories
	OutputDir string
	ModelDir  string
	CacheDir  string

	// External binaries
	FFmpegPath  string
	FFprobePath string
	WhisperPath string

	// Job execution
	JobTimeout     time.Duration
	ChunkThreshold time.Duration
	ChunkOverlap   time.Duration

	// Recognizer
	AutoDownload   bool
	Threads        int
	InferenceSlots int

	// HTTP serving (empty means stdio only)
	HTTPAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.OutputDir = expandPath(getEnv("MEDIA2TXT_OUTPUT_DIR", "./outputs"))
	cfg.ModelDir = expandPath(getEnv("MEDIA2TXT_MODEL_DIR", "./models"))
	cfg.CacheDir = expandPath(getEnv("MEDIA2TXT_CACHE_DIR", "./cache"))

	cfg.FFmpegPath = getEnv("MEDIA2TXT_FFMPEG_PATH", "ffmpeg")
	cfg.FFprobePath = getEnv("MEDIA2TXT_FFPROBE_PATH", "ffprobe")
	cfg.WhisperPath = getEnv("MEDIA2TXT_WHISPER_PATH", "")

	jobTimeout, err := getDuration("MEDIA2TXT_JOB_TIMEOUT", 300*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.JobTimeout = jobTimeout

	threshold, err := getDuration("MEDIA2TXT_CHUNK_THRESHOLD", chunk.DefaultThreshold)
	if err != nil {
		return nil, err
	}
	cfg.ChunkThreshold = threshold

	overlap, err := getDuration("MEDIA2TXT_CHUNK_OVERLAP", chunk.DefaultOverlap)
	if err != nil {
		return nil, err
	}
	cfg.ChunkOverlap = overlap

	if cfg.ChunkThreshold <= cfg.ChunkOverlap {
		return nil, fmt.Errorf("MEDIA2TXT_CHUNK_THRESHOLD (%s) must exceed MEDIA2TXT_CHUNK_OVERLAP (%s)", cfg.ChunkThreshold, cfg.ChunkOverlap)
	}

	autoDownload, err := getBool("MEDIA2TXT_AUTO_DOWNLOAD", true)
	if err != nil {
		return nil, err
	}
	cfg.AutoDownload = autoDownload

	threads, err := getInt("MEDIA2TXT_THREADS", 0)
	if err != nil {
		return nil, err
	}
	cfg.Threads = threads

	slots, err := getInt("MEDIA2TXT_INFERENCE_SLOTS", 1)
	if err != nil {
		return nil, err
	}
	if slots < 1 {
		slots = 1
	}
	cfg.InferenceSlots = slots

	cfg.HTTPAddr = getEnv("MEDIA2TXT_HTTP_ADDR", "")

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

// expandPath resolves a leading tilde against the user's home directory.
// Directory settings often arrive through .env files where no shell ever
// expands them.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// getDuration accepts Go duration strings ("5m") and bare second counts
// ("300").
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
