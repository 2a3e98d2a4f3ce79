// Package extract pulls mp3 audio tracks out of local or remote media files.
package extract

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"media2txt/internal/fetch"
	"media2txt/internal/ffmpeg"
	"media2txt/internal/job"
)

// Transcoder is the slice of the ffmpeg adapter extraction needs.
type Transcoder interface {
	Available() error
	ExtractMP3(ctx context.Context, inputPath, outputPath string, quality ffmpeg.Quality) error
}

// Fetcher resolves remote URLs into local files.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Request struct {
	InputPath    string
	OutputName   string
	OutputDir    string
	AudioQuality string
}

// Result is the structured outcome reported back to tool callers. Failures
// are carried in-band through Error and ErrorKind, never as panics or
// transport errors.
type Result struct {
	Success        bool    `json:"success"`
	OutputFile     string  `json:"output_file,omitempty"`
	FileSize       int64   `json:"file_size,omitempty"`
	Quality        string  `json:"quality,omitempty"`
	Bitrate        int     `json:"bitrate,omitempty"`
	SampleRate     int     `json:"sample_rate,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Error          string  `json:"error,omitempty"`
	ErrorKind      string  `json:"error_kind,omitempty"`
}

type Service struct {
	transcoder Transcoder
	fetcher    Fetcher
	outputDir  string
	timeout    time.Duration
	logger     *zap.Logger
}

func NewService(transcoder Transcoder, fetcher Fetcher, outputDir string, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transcoder: transcoder,
		fetcher:    fetcher,
		outputDir:  outputDir,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run executes one extraction job end to end: validate, resolve the input,
// transcode under the job timeout, and report the artifact. On any failure
// the partial artifact is removed before the result is returned.
func (s *Service) Run(ctx context.Context, req Request) Result {
	start := time.Now()

	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return s.failure(job.Validation("input_path is required"))
	}

	quality, ok := ffmpeg.LookupQuality(req.AudioQuality)
	if !ok {
		return s.failure(job.Validation("unknown audio quality %q (known qualities: %s)", req.AudioQuality, strings.Join(ffmpeg.QualityNames(), ", ")))
	}

	if err := s.transcoder.Available(); err != nil {
		return s.failure(job.EngineUnavailable("audio engine is not available", err))
	}

	local, remote, jobErr := s.resolveInput(ctx, input)
	if jobErr != nil {
		return s.failure(jobErr)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = s.outputDir
	}
	fallback := job.InputStem(local)
	if remote {
		fallback = "url_audio"
	}
	outputPath, err := job.OutputPath(outputDir, req.OutputName, fallback, "mp3")
	if err != nil {
		return s.failure(job.Validation("%v", err))
	}

	size, jobErr := job.Execute(ctx, s.timeout, outputPath, func(ctx context.Context) error {
		return s.transcoder.ExtractMP3(ctx, local, outputPath, quality)
	})
	if jobErr != nil {
		return s.failure(jobErr)
	}

	elapsed := job.Seconds(time.Since(start))
	s.logger.Info("extracted audio track",
		zap.String("input", input),
		zap.String("output", outputPath),
		zap.Int64("size_bytes", size),
		zap.String("quality", quality.Name),
		zap.Float64("seconds", elapsed))

	return Result{
		Success:        true,
		OutputFile:     outputPath,
		FileSize:       size,
		Quality:        quality.Name,
		Bitrate:        quality.BitrateKbps,
		SampleRate:     quality.SampleRateHz,
		ProcessingTime: elapsed,
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

func (s *Service) failure(jobErr *job.Error) Result {
	s.logger.Warn("audio extraction failed",
		zap.String("kind", string(jobErr.Kind)),
		zap.Error(jobErr))
	return Result{Success: false, Error: jobErr.Error(), ErrorKind: string(jobErr.Kind)}
}
