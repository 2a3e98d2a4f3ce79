package whisper

import (
	"context"
	"strings"
	"time"
)

// Segment is one recognized span with timestamps relative to the audio fed
// into the engine. Text keeps the engine's leading-space formatting so
// concatenation reproduces natural spacing.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcription is the engine output for one audio file: ordered segments
// plus the language the engine detected (or was told to use).
type Transcription struct {
	Segments []Segment
	Language string
}

// Text returns the plain transcript assembled from all segments.
func (t Transcription) Text() string {
	var b strings.Builder
	for _, seg := range t.Segments {
		b.WriteString(seg.Text)
	}
	return strings.TrimSpace(b.String())
}

type Request struct {
	AudioPath string
	ModelPath string
	Language  string
	Threads   int
}

// Engine is the contract both the resolved CLI engine and the unavailable
// placeholder satisfy. Ready is a cheap liveness probe; Transcribe runs one
// recognition pass over a prepared WAV file.
type Engine interface {
	Ready() error
	Transcribe(ctx context.Context, req Request) (Transcription, error)
}

// UnavailableEngine stands in when no usable whisper-cli could be resolved at
// startup. Serving keeps running; every transcription then reports the
// recorded resolution error instead of the whole process refusing to start.
type UnavailableEngine struct {
	Err error
}

func (e UnavailableEngine) Ready() error {
	return e.Err
}

func (e UnavailableEngine) Transcribe(context.Context, Request) (Transcription, error) {
	return Transcription{}, e.Err
}
