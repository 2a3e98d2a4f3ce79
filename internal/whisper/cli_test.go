package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseEngineOutputSegmentsAndLanguage(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"result": {"language": "en"},
		"transcription": [
			{"timestamps": {"from": "00:00:00,000", "to": "00:00:04,500"},
			 "offsets": {"from": 0, "to": 4500},
			 "text": " Hello there."},
			{"timestamps": {"from": "00:00:04,500", "to": "00:00:09,000"},
			 "offsets": {"from": 4500, "to": 9000},
			 "text": " General Kenobi."}
		]
	}`)

	result, err := parseEngineOutput(raw)
	require.NoError(t, err)
	require.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 2)
	require.Equal(t, 4500*time.Millisecond, result.Segments[0].End)
	require.Equal(t, 4500*time.Millisecond, result.Segments[1].Start)
	require.Equal(t, " Hello there.", result.Segments[0].Text)
	require.Equal(t, "Hello there. General Kenobi.", result.Text())
}

func TestParseEngineOutputRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := parseEngineOutput([]byte("not json"))
	require.ErrorContains(t, err, "parse whisper JSON output")
}

func TestBuildEngineArgsLanguageAndThreads(t *testing.T) {
	t.Parallel()

	req := Request{AudioPath: "in.wav", ModelPath: "ggml-base.bin", Language: "auto"}
	args := buildEngineArgs(req, "/tmp/out")
	require.Equal(t, []string{"-m", "ggml-base.bin", "-f", "in.wav", "-oj", "-of", "/tmp/out"}, args)

	req.Language = "DE"
	req.Threads = 4
	args = buildEngineArgs(req, "/tmp/out")
	require.Contains(t, args, "-l")
	require.Contains(t, args, "de")
	require.Contains(t, args, "-t")
	require.Contains(t, args, "4")
}

func TestNewCLIEngineRejectsMissingExplicitPath(t *testing.T) {
	t.Parallel()

	_, err := NewCLIEngine(filepath.Join(t.TempDir(), "whisper-cli"), 1, zap.NewNop())
	require.ErrorIs(t, err, ErrEngineNotFound)
}

func TestCLIEngineReadyDetectsRemovedBinary(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "whisper-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	engine, err := NewCLIEngine(path, 1, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, engine.Ready())

	require.NoError(t, os.Remove(path))
	require.ErrorIs(t, engine.Ready(), ErrEngineNotFound)
}

func TestUnavailableEngineReportsResolutionError(t *testing.T) {
	t.Parallel()

	base := errors.New("whisper-cli not found on PATH")
	engine := UnavailableEngine{Err: base}

	require.ErrorIs(t, engine.Ready(), base)
	_, err := engine.Transcribe(context.Background(), Request{AudioPath: "a.wav", ModelPath: "m.bin"})
	require.ErrorIs(t, err, base)
}

func TestTranscriptionTextJoinsSegments(t *testing.T) {
	t.Parallel()

	tr := Transcription{Segments: []Segment{
		{Text: " one"},
		{Text: " two"},
	}}
	require.Equal(t, "one two", tr.Text())
}
