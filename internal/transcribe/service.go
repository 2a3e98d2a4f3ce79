// Package transcribe turns media files into text transcripts through the
// whisper engine, chunking long inputs into overlapping windows.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"media2txt/internal/audio"
	"media2txt/internal/chunk"
	"media2txt/internal/fetch"
	"media2txt/internal/job"
	"media2txt/internal/whisper"
)

// Transcoder is the slice of the ffmpeg adapter transcription needs: duration
// probing plus 16kHz mono WAV preparation for the recognizer.
type Transcoder interface {
	Available() error
	ProbeDuration(ctx context.Context, inputPath string) (time.Duration, error)
	PrepareAudio(ctx context.Context, inputPath, outputPath string) error
	CutWindow(ctx context.Context, inputPath, outputPath string, start, length time.Duration) error
}

// Engine runs speech recognition. Ready is checked before any job work so a
// missing binary is reported without probing or model downloads first.
type Engine interface {
	Ready() error
	Transcribe(ctx context.Context, req whisper.Request) (whisper.Transcription, error)
}

// Fetcher resolves remote URLs into local files.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Config carries the runtime settings one service instance works with.
type Config struct {
	OutputDir      string
	ModelDir       string
	Timeout        time.Duration
	ChunkThreshold time.Duration
	ChunkOverlap   time.Duration
	AutoDownload   bool
	Threads        int
}

type Request struct {
	InputPath  string
	OutputName string
	OutputDir  string
	ModelSize  string
	Language   string
}

// Result is the structured outcome reported back to tool callers. Failures
// are carried in-band through Error and ErrorKind, never as transport errors.
type Result struct {
	Success          bool    `json:"success"`
	Text             string  `json:"text,omitempty"`
	OutputFile       string  `json:"output_file,omitempty"`
	LanguageDetected string  `json:"language_detected,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
	ChunksUsed       bool    `json:"chunks_used"`
	ProcessingTime   float64 `json:"processing_time,omitempty"`
	Error            string  `json:"error,omitempty"`
	ErrorKind        string  `json:"error_kind,omitempty"`
}

type Service struct {
	transcoder Transcoder
	engine     Engine
	fetcher    Fetcher
	cfg        Config
	logger     *zap.Logger

	ensureModel func(ctx context.Context, modelSize, modelDir string, opts whisper.EnsureOptions) (string, error)
}

func NewService(transcoder Transcoder, engine Engine, fetcher Fetcher, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkThreshold <= 0 {
		cfg.ChunkThreshold = chunk.DefaultThreshold
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	return &Service{
		transcoder:  transcoder,
		engine:      engine,
		fetcher:     fetcher,
		cfg:         cfg,
		logger:      logger,
		ensureModel: whisper.EnsureModel,
	}
}

// Run executes one transcription job end to end: validate, resolve the input,
// probe its duration, plan recognition windows, run the engine per window
// under the job timeout, stitch the transcript, and write it next to a
// structured result. On any failure partial artifacts are removed.
func (s *Service) Run(ctx context.Context, req Request) Result {
	start := time.Now()

	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return s.failure(job.Validation("input_path is required"))
	}

	modelSize := strings.ToLower(strings.TrimSpace(req.ModelSize))
	if modelSize == "" {
		modelSize = whisper.DefaultModel
	}
	if _, ok := whisper.LookupModel(modelSize); !ok {
		return s.failure(job.Validation("unknown model size %q (known sizes: %s)", modelSize, strings.Join(whisper.ModelNames(), ", ")))
	}

	language := strings.ToLower(strings.TrimSpace(req.Language))
	if language == "" {
		language = "auto"
	}

	if err := s.transcoder.Available(); err != nil {
		return s.failure(job.EngineUnavailable("audio engine is not available", err))
	}
	if err := s.engine.Ready(); err != nil {
		return s.failure(job.EngineUnavailable("speech engine is not available", err))
	}

	local, remote, jobErr := s.resolveInput(ctx, input)
	if jobErr != nil {
		return s.failure(jobErr)
	}

	duration, jobErr := s.mediaDuration(ctx, local)
	if jobErr != nil {
		return s.failure(jobErr)
	}

	modelPath, err := s.ensureModel(ctx, modelSize, s.cfg.ModelDir, whisper.EnsureOptions{
		AutoDownload: s.cfg.AutoDownload,
		NoProgress:   true,
		Logger:       s.logger,
	})
	if err != nil {
		return s.failure(job.EngineUnavailable("speech model is not available", err))
	}

	windows := chunk.Plan(duration, s.cfg.ChunkThreshold, s.cfg.ChunkOverlap)
	if len(windows) == 0 {
		return s.failure(job.Validation("media input has no audible duration: %s", input))
	}
	if len(windows) > 1 {
		s.logger.Info("chunking long audio",
			zap.String("input", input),
			zap.Duration("duration", duration),
			zap.Int("windows", len(windows)))
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.cfg.OutputDir
	}
	fallback := job.InputStem(local)
	if remote {
		fallback = "url_audio"
	}
	outputPath, err := job.OutputPath(outputDir, req.OutputName, fallback, "txt")
	if err != nil {
		return s.failure(job.Validation("%v", err))
	}

	var transcript string
	var detected string

	_, jobErr = job.Execute(ctx, s.cfg.Timeout, outputPath, func(ctx context.Context) error {
		workDir, err := os.MkdirTemp("", "media2txt-*")
		if err != nil {
			return fmt.Errorf("create work directory: %w", err)
		}
		defer func() {
			_ = os.RemoveAll(workDir)
		}()

		pieces := make([]chunk.Piece, 0, len(windows))
		for _, window := range windows {
			wavPath := filepath.Join(workDir, fmt.Sprintf("window_%03d.wav", window.Index))
			if len(windows) == 1 {
				err = s.transcoder.PrepareAudio(ctx, local, wavPath)
			} else {
				err = s.transcoder.CutWindow(ctx, local, wavPath, window.Start, window.Length)
			}
			if err != nil {
				return s.windowError(window, len(windows), fmt.Errorf("prepare window audio: %w", err))
			}

			result, err := s.engine.Transcribe(ctx, whisper.Request{
				AudioPath: wavPath,
				ModelPath: modelPath,
				Language:  language,
				Threads:   s.cfg.Threads,
			})
			if err != nil {
				return s.windowError(window, len(windows), err)
			}

			pieces = append(pieces, chunk.Piece{Window: window, Result: result})
			s.logger.Debug("window transcribed",
				zap.Int("window", window.Index+1),
				zap.Int("windows", len(windows)),
				zap.Int("segments", len(result.Segments)),
				zap.String("language", result.Language))
		}

		transcript = chunk.Stitch(pieces)
		detected = chunk.DominantLanguage(pieces)
		if detected == "" && language != "auto" {
			detected = language
		}

		if err := os.WriteFile(outputPath, []byte(transcript+"\n"), 0o644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		return nil
	})
	if jobErr != nil {
		return s.failure(jobErr)
	}

	elapsed := job.Seconds(time.Since(start))
	s.logger.Info("transcribed media",
		zap.String("input", input),
		zap.String("output", outputPath),
		zap.String("model", modelSize),
		zap.String("language", detected),
		zap.Float64("media_seconds", job.Seconds(duration)),
		zap.Bool("chunked", len(windows) > 1),
		zap.Float64("seconds", elapsed))

	return Result{
		Success:          true,
		Text:             transcript,
		OutputFile:       outputPath,
		LanguageDetected: detected,
		Duration:         job.Seconds(duration),
		ChunksUsed:       len(windows) > 1,
		ProcessingTime:   elapsed,
	}
}

func (s *Service) resolveInput(ctx context.Context, locator string) (string, bool, *job.Error) {
	if fetch.IsRemote(locator) {
		if s.fetcher == nil {
			return "", false, job.Validation("remote inputs are not enabled")
		}
		local, err := s.fetcher.Fetch(ctx, locator)
		if err != nil {
			return "", false, job.Validation("fetch %s: %v", locator, err)
		}
		return local, true, nil
	}

	info, err := os.Stat(locator)
	if err != nil {
		return "", false, job.Validation("input file not found: %s", locator)
	}
	if info.IsDir() {
		return "", false, job.Validation("input path is a directory: %s", locator)
	}
	return locator, false, nil
}

// mediaDuration reads WAV headers directly and shells out to ffprobe for
// everything else. An unreadable or zero-length input fails before any
// recognition starts.
func (s *Service) mediaDuration(ctx context.Context, path string) (time.Duration, *job.Error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if d, err := audio.WAVDuration(path); err == nil {
			return d, nil
		}
	}
	d, err := s.transcoder.ProbeDuration(ctx, path)
	if err != nil {
		return 0, job.Validation("cannot determine media duration: %v", err)
	}
	return d, nil
}

// windowError maps a failure inside the window loop onto the error taxonomy:
// a vanished engine stays engine_unavailable, anything else in a chunked run
// becomes a chunk failure that aborts the whole job.
func (s *Service) windowError(window chunk.Window, windowCount int, err error) error {
	if errors.Is(err, whisper.ErrEngineNotFound) {
		return job.EngineUnavailable("speech engine is not available", err)
	}
	if windowCount > 1 {
		return job.ChunkFailure(fmt.Sprintf("chunk %d/%d failed", window.Index+1, windowCount), err)
	}
	return err
}

func (s *Service) failure(jobErr *job.Error) Result {
	s.logger.Warn("transcription failed",
		zap.String("kind", string(jobErr.Kind)),
		zap.Error(jobErr))
	return Result{Success: false, Error: jobErr.Error(), ErrorKind: string(jobErr.Kind)}
}
