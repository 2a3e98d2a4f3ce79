package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "./outputs", cfg.OutputDir)
	require.Equal(t, "./models", cfg.ModelDir)
	require.Equal(t, 300*time.Second, cfg.JobTimeout)
	require.Equal(t, 600*time.Second, cfg.ChunkThreshold)
	require.Equal(t, 5*time.Second, cfg.ChunkOverlap)
	require.True(t, cfg.AutoDownload)
	require.Equal(t, 1, cfg.InferenceSlots)
	require.Empty(t, cfg.HTTPAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MEDIA2TXT_OUTPUT_DIR", "/data/out")
	t.Setenv("MEDIA2TXT_JOB_TIMEOUT", "10m")
	t.Setenv("MEDIA2TXT_CHUNK_THRESHOLD", "900")
	t.Setenv("MEDIA2TXT_AUTO_DOWNLOAD", "false")
	t.Setenv("MEDIA2TXT_INFERENCE_SLOTS", "2")
	t.Setenv("MEDIA2TXT_HTTP_ADDR", ":8080")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "/data/out", cfg.OutputDir)
	require.Equal(t, 10*time.Minute, cfg.JobTimeout)
	require.Equal(t, 900*time.Second, cfg.ChunkThreshold)
	require.False(t, cfg.AutoDownload)
	require.Equal(t, 2, cfg.InferenceSlots)
	require.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadExpandsTildeInDirectories(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MEDIA2TXT_MODEL_DIR", "~/models")
	t.Setenv("MEDIA2TXT_CACHE_DIR", "~")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, filepath.Join(home, "models"), cfg.ModelDir)
	require.Equal(t, home, cfg.CacheDir)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("MEDIA2TXT_JOB_TIMEOUT", "soon")

	_, err := Load()
	require.ErrorContains(t, err, "MEDIA2TXT_JOB_TIMEOUT")
}

func TestLoadRejectsOverlapAtOrAboveThreshold(t *testing.T) {
	t.Setenv("MEDIA2TXT_CHUNK_THRESHOLD", "5")
	t.Setenv("MEDIA2TXT_CHUNK_OVERLAP", "5")

	_, err := Load()
	require.ErrorContains(t, err, "must exceed")
}

func TestLoadClampsInferenceSlots(t *testing.T) {
	t.Setenv("MEDIA2TXT_INFERENCE_SLOTS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1, cfg.InferenceSlots)
}
