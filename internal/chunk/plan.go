// Package chunk bounds recognizer cost for long inputs by splitting them
// into overlapping windows and reconciling the per-window transcripts back
// into one ordered text.
package chunk

import "time"

// Default window geometry. Ten minutes keeps a single recognizer pass well
// inside typical job timeouts; five seconds of shared audio gives stitching
// enough context to reconcile the seam.
const (
	DefaultThreshold = 10 * time.Minute
	DefaultOverlap   = 5 * time.Second
)

// Window is one bounded sub-range of the input. Start and Length are offsets
// into the original media; consecutive windows share the configured overlap.
type Window struct {
	Index  int
	Start  time.Duration
	Length time.Duration
}

// End returns the exclusive end offset of the window.
func (w Window) End() time.Duration {
	return w.Start + w.Length
}

// Plan partitions [0, duration) into windows of at most threshold length
// where window i starts overlap before the previous window's end, so
// neighbors share overlap seconds. Inputs at or below the threshold get a
// single window covering the whole range. threshold must exceed overlap;
// degenerate settings also fall back to a single window.
func Plan(duration, threshold, overlap time.Duration) []Window {
	if duration <= 0 {
		return nil
	}
	if duration <= threshold || threshold <= overlap {
		return []Window{{Index: 0, Start: 0, Length: duration}}
	}

	stride := threshold - overlap
	var windows []Window
	for start := time.Duration(0); start < duration; start += stride {
		length := threshold
		if start+length > duration {
			length = duration - start
		}
		windows = append(windows, Window{Index: len(windows), Start: start, Length: length})
		if start+threshold >= duration {
			break
		}
	}

	return windows
}
