package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEngineNotFound reports that no whisper-cli binary could be located.
var ErrEngineNotFound = errors.New("whisper-cli not found")

// CLIEngine shells out to whisper-cli and parses its JSON transcript output.
// Inference runs are serialized through a fixed number of slots so concurrent
// tool calls cannot oversubscribe the compute device.
type CLIEngine struct {
	Executable string
	Logger     *zap.Logger

	slots chan struct{}
}

// NewCLIEngine resolves the whisper-cli binary (explicit path, or PATH
// lookup when empty) and sizes the inference gate. slots below 1 is treated
// as 1.
func NewCLIEngine(executable string, slots int, logger *zap.Logger) (*CLIEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if slots < 1 {
		slots = 1
	}

	resolved := strings.TrimSpace(executable)
	if resolved == "" {
		path, err := exec.LookPath(engineBinaryName())
		if err != nil {
			return nil, fmt.Errorf("%w on PATH; install whisper.cpp or set MEDIA2TXT_WHISPER_PATH: %w", ErrEngineNotFound, err)
		}
		resolved = path
	} else if err := ensureExecutable(resolved); err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrEngineNotFound, resolved, err)
	}

	return &CLIEngine{
		Executable: resolved,
		Logger:     logger,
		slots:      make(chan struct{}, slots),
	}, nil
}

// Ready reports whether the resolved binary still looks runnable. Serving
// surfaces call this before starting a job so a missing engine fails fast
// instead of after model download and window cutting.
func (e *CLIEngine) Ready() error {
	if err := ensureExecutable(e.Executable); err != nil {
		return fmt.Errorf("%w at %s: %w", ErrEngineNotFound, e.Executable, err)
	}
	return nil
}

func (e *CLIEngine) Transcribe(ctx context.Context, req Request) (Transcription, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Transcription{}, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return Transcription{}, errors.New("model path is required")
	}

	if err := ensureExecutable(e.Executable); err != nil {
		return Transcription{}, fmt.Errorf("%w at %s: %w", ErrEngineNotFound, e.Executable, err)
	}

	if err := e.acquireSlot(ctx); err != nil {
		return Transcription{}, err
	}
	defer e.releaseSlot()

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("media2txt-%d", time.Now().UnixNano()))
	jsonOut := outBase + ".json"
	defer func() {
		_ = os.Remove(jsonOut)
	}()

	args := buildEngineArgs(req, outBase)
	cmd := exec.CommandContext(ctx, e.Executable, args...)
	cmd.WaitDelay = 5 * time.Second
	var stderr bytes.Buffer
	cmd.Stdout = ioDiscard{}
	cmd.Stderr = &stderr

	e.Logger.Debug("running whisper engine", zap.String("engine", e.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return Transcription{}, fmt.Errorf("whisper-cli at %s is missing required shared libraries (%s); rebuild whisper.cpp with BUILD_SHARED_LIBS=OFF or fix the library path", e.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return Transcription{}, fmt.Errorf("whisper-cli crashed with an illegal CPU instruction; " +
				"your CPU may lack required instruction set extensions; " +
				"point MEDIA2TXT_WHISPER_PATH at a whisper-cli built for your CPU")
		}
		if errText != "" {
			return Transcription{}, fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
		}
		return Transcription{}, fmt.Errorf("whisper transcribe failed: %w", err)
	}

	raw, err := os.ReadFile(jsonOut)
	if err != nil {
		return Transcription{}, fmt.Errorf("read whisper output: %w", err)
	}

	return parseEngineOutput(raw)
}

// buildEngineArgs assembles the whisper-cli invocation. -oj makes the engine
// write a JSON transcript with per-segment millisecond offsets and the
// detected language, which stitching and language reporting depend on.
func buildEngineArgs(req Request, outBase string) []string {
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-oj", "-of", outBase}
	lang := strings.TrimSpace(strings.ToLower(req.Language))
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}
	if req.Threads > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", req.Threads))
	}
	return args
}

type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseEngineOutput(raw []byte) (Transcription, error) {
	var out engineOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return Transcription{}, fmt.Errorf("parse whisper JSON output: %w", err)
	}

	result := Transcription{Language: strings.TrimSpace(out.Result.Language)}
	for _, seg := range out.Transcription {
		result.Segments = append(result.Segments, Segment{
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
			Text:  seg.Text,
		})
	}

	return result, nil
}

func (e *CLIEngine) acquireSlot(ctx context.Context) error {
	if e.slots == nil {
		return nil
	}
	select {
	case e.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *CLIEngine) releaseSlot() {
	if e.slots == nil {
		return
	}
	<-e.slots
}

type ioDiscard struct{}

func (ioDiscard) Write(p []byte) (int, error) {
	return len(p), nil
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
