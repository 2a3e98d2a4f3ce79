// Package audio reads media metadata needed for chunk planning.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a wav file")

// WAVDuration reads the duration of a WAV file from its header, without
// decoding the sample data. Non-WAV inputs return ErrNotWAV so callers can
// fall back to a probe through the transcoder.
func WAVDuration(path string) (time.Duration, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return 0, ErrNotWAV
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%w: invalid header", ErrNotWAV)
	}

	duration, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("read wav duration: %w", err)
	}
	if duration <= 0 {
		return 0, errors.New("wav reports zero duration")
	}

	return duration, nil
}
