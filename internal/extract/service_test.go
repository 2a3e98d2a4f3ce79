package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"media2txt/internal/ffmpeg"
)

type extractCall struct {
	input   string
	output  string
	quality ffmpeg.Quality
}

type fakeTranscoder struct {
	availableErr error
	extractErr   error
	partialWrite bool
	blockOnCtx   bool
	calls        []extractCall
}

func (f *fakeTranscoder) Available() error { return f.availableErr }

func (f *fakeTranscoder) ExtractMP3(ctx context.Context, inputPath, outputPath string, quality ffmpeg.Quality) error {
	f.calls = append(f.calls, extractCall{input: inputPath, output: outputPath, quality: quality})
	if f.blockOnCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.partialWrite {
		if err := os.WriteFile(outputPath, []byte("trunc"), 0o644); err != nil {
			return err
		}
	}
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(outputPath, []byte("mp3-bytes"), 0o644)
}

type fakeFetcher struct {
	path  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.calls++
	return f.path, f.err
}

func writeInputFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake media"), 0o644))
	return path
}

func TestRunExtractsLocalFile(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	outputDir := t.TempDir()
	transcoder := &fakeTranscoder{}
	svc := NewService(transcoder, nil, outputDir, time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: input, AudioQuality: "high"})

	require.True(t, result.Success, "error: %s", result.Error)
	require.Equal(t, "high", result.Quality)
	require.Equal(t, 320, result.Bitrate)
	require.Equal(t, 48000, result.SampleRate)
	require.Equal(t, int64(len("mp3-bytes")), result.FileSize)
	require.GreaterOrEqual(t, result.ProcessingTime, 0.0)
	require.Empty(t, result.Error)
	require.Empty(t, result.ErrorKind)

	require.Equal(t, outputDir, filepath.Dir(result.OutputFile))
	require.Regexp(t, regexp.MustCompile(`^talk_[0-9a-f]{8}\.mp3$`), filepath.Base(result.OutputFile))
	require.FileExists(t, result.OutputFile)

	require.Len(t, transcoder.calls, 1)
	require.Equal(t, input, transcoder.calls[0].input)
	require.Equal(t, result.OutputFile, transcoder.calls[0].output)
	require.Equal(t, 320, transcoder.calls[0].quality.BitrateKbps)
}

func TestRunDefaultsToMediumQuality(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	svc := NewService(&fakeTranscoder{}, nil, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: input})

	require.True(t, result.Success)
	require.Equal(t, "medium", result.Quality)
	require.Equal(t, 192, result.Bitrate)
	require.Equal(t, 44100, result.SampleRate)
}

func TestRunUsesOutputNameAndDir(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	outputDir := filepath.Join(t.TempDir(), "nested", "audio")
	svc := NewService(&fakeTranscoder{}, nil, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{
		InputPath:  input,
		OutputName: "meeting",
		OutputDir:  outputDir,
	})

	require.True(t, result.Success)
	require.Equal(t, outputDir, filepath.Dir(result.OutputFile))
	require.Regexp(t, regexp.MustCompile(`^meeting_[0-9a-f]{8}\.mp3$`), filepath.Base(result.OutputFile))
}

func TestRunRejectsUnknownQuality(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	transcoder := &fakeTranscoder{}
	svc := NewService(transcoder, nil, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: input, AudioQuality: "ultra"})

	require.False(t, result.Success)
	require.Equal(t, "validation", result.ErrorKind)
	require.Contains(t, result.Error, "ultra")
	require.Empty(t, transcoder.calls, "engine must not start for invalid arguments")
}

func TestRunRejectsMissingInput(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeTranscoder{}, nil, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: filepath.Join(t.TempDir(), "missing.mp4")})

	require.False(t, result.Success)
	require.Equal(t, "validation", result.ErrorKind)
	require.Contains(t, result.Error, "not found")
}

func TestRunRejectsEmptyInputPath(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeTranscoder{}, nil, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: "   "})

	require.False(t, result.Success)
	require.Equal(t, "validation", result.ErrorKind)
	require.Contains(t, result.Error, "input_path is required")
}

func TestRunReportsEngineUnavailable(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	transcoder := &fakeTranscoder{availableErr: errors.New("ffmpeg not found in PATH")}
	svc := NewService(transcoder, nil, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: input})

	require.False(t, result.Success)
	require.Equal(t, "engine_unavailable", result.ErrorKind)
	require.Contains(t, result.Error, "ffmpeg")
}

func TestRunCleansUpOnEngineFailure(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	outputDir := t.TempDir()
	transcoder := &fakeTranscoder{partialWrite: true, extractErr: errors.New("moov atom not found")}
	svc := NewService(transcoder, nil, outputDir, time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: input})

	require.False(t, result.Success)
	require.Equal(t, "engine_execution", result.ErrorKind)
	require.Contains(t, result.Error, "moov atom not found")

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Empty(t, entries, "failed jobs must not leave artifacts behind")
}

func TestRunReportsTimeoutDistinctly(t *testing.T) {
	t.Parallel()

	input := writeInputFile(t, "talk.mp4")
	outputDir := t.TempDir()
	transcoder := &fakeTranscoder{blockOnCtx: true}
	svc := NewService(transcoder, nil, outputDir, 30*time.Millisecond, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: input})

	require.False(t, result.Success)
	require.Equal(t, "timeout", result.ErrorKind)
	require.Contains(t, result.Error, "exceeded")

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunFetchesRemoteInput(t *testing.T) {
	t.Parallel()

	cached := writeInputFile(t, "media_abc.mp4")
	fetcher := &fakeFetcher{path: cached}
	svc := NewService(&fakeTranscoder{}, fetcher, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: "https://example.com/talk.mp4"})

	require.True(t, result.Success, "error: %s", result.Error)
	require.Equal(t, 1, fetcher.calls)
	require.Regexp(t, regexp.MustCompile(`^url_audio_[0-9a-f]{8}\.mp3$`), filepath.Base(result.OutputFile))
}

func TestRunReportsFetchFailureAsValidation(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("unexpected status 404")}
	svc := NewService(&fakeTranscoder{}, fetcher, t.TempDir(), time.Minute, zap.NewNop())

	result := svc.Run(context.Background(), Request{InputPath: "https://example.com/talk.mp4"})

	require.False(t, result.Success)
	require.Equal(t, "validation", result.ErrorKind)
	require.Contains(t, result.Error, "404")
}
