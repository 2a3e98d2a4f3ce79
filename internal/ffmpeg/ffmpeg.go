// Package ffmpeg adapts the external transcoder: mp3 extraction, window
// cutting for chunked transcription, and duration probing.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = 5 * time.Second
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Transcoder wraps ffmpeg/ffprobe invocations.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	logger      *zap.Logger
}

func NewTranscoder(ffmpegPath, ffprobePath string, logger *zap.Logger) *Transcoder {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      &execRunner{},
		logger:      logger,
	}
}

// NewTranscoderForTests constructs a transcoder with an injectable runner.
func NewTranscoderForTests(ffmpegPath, ffprobePath string, runner commandRunner) *Transcoder {
	return &Transcoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      runner,
		logger:      zap.NewNop(),
	}
}

// Available reports whether both binaries can be located on the PATH (or at
// their configured locations).
func (t *Transcoder) Available() error {
	for _, name := range []string{t.ffmpegPath, t.ffprobePath} {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found; install ffmpeg: %w", name, err)
		}
	}
	return nil
}

// ExtractMP3 pulls the audio track out of inputPath and encodes it as mp3 at
// the given quality, writing directly to outputPath.
func (t *Transcoder) ExtractMP3(ctx context.Context, inputPath, outputPath string, quality Quality) error {
	args := []string{
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", fmt.Sprintf("%dk", quality.BitrateKbps),
		"-ar", strconv.Itoa(quality.SampleRateHz),
		"-y",
		outputPath,
	}
	return t.runFFmpeg(ctx, args)
}

// CutWindow extracts the [start, start+length) range of inputPath as the
// 16 kHz mono PCM WAV the recognizer expects.
func (t *Transcoder) CutWindow(ctx context.Context, inputPath, outputPath string, start, length time.Duration) error {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}
	return t.runFFmpeg(ctx, args)
}

// PrepareAudio converts the whole input into the recognizer's 16 kHz mono
// PCM WAV format.
func (t *Transcoder) PrepareAudio(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	}
	return t.runFFmpeg(ctx, args)
}

// ProbeDuration asks ffprobe for the container-reported duration.
func (t *Transcoder) ProbeDuration(ctx context.Context, inputPath string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		inputPath,
	}

	result, err := t.runner.Run(ctx, t.ffprobePath, args...)
	if err != nil {
		return 0, commandError(t.ffprobePath, result, err)
	}

	value := strings.TrimSpace(result.Stdout)
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", inputPath)
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", value, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration for %s", inputPath)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

func (t *Transcoder) runFFmpeg(ctx context.Context, args []string) error {
	t.logger.Debug("running ffmpeg", zap.Strings("args", args))
	result, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		return commandError(t.ffmpegPath, result, err)
	}
	return nil
}

func commandError(name string, result commandResult, err error) error {
	detail := strings.TrimSpace(result.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(result.Stdout)
	}
	if detail != "" {
		return fmt.Errorf("%s failed: %w: %s", name, err, lastLines(detail, 4))
	}
	return fmt.Errorf("%s failed: %w", name, err)
}

// lastLines keeps the tail of a stderr dump, where ffmpeg puts the actual
// failure reason.
func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " | ")
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
