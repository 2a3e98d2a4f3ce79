package chunk

import (
	"strings"
	"time"

	"media2txt/internal/whisper"
)

// Piece pairs a window with the recognizer output produced for it. Segment
// timestamps inside Result are relative to the window start.
type Piece struct {
	Window Window
	Result whisper.Transcription
}

// Stitch merges per-window transcripts into one ordered text. Each window
// contributes exactly the segments whose absolute midpoint falls before the
// next window's start, so content inside an overlap region is always taken
// from the later window and appears exactly once.
func Stitch(pieces []Piece) string {
	var parts []string
	for i, piece := range pieces {
		cutoff := time.Duration(-1)
		if i+1 < len(pieces) {
			cutoff = pieces[i+1].Window.Start
		}

		var b strings.Builder
		for _, seg := range piece.Result.Segments {
			if cutoff >= 0 {
				absMid := piece.Window.Start + (seg.Start+seg.End)/2
				if absMid >= cutoff {
					continue
				}
			}
			b.WriteString(seg.Text)
		}

		if text := strings.TrimSpace(b.String()); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// DominantLanguage picks the most frequent per-window language detection,
// breaking ties in favor of the earliest window. Windows without a detection
// are ignored.
func DominantLanguage(pieces []Piece) string {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, piece := range pieces {
		lang := strings.TrimSpace(strings.ToLower(piece.Result.Language))
		if lang == "" {
			continue
		}
		if _, ok := firstSeen[lang]; !ok {
			firstSeen[lang] = i
		}
		counts[lang]++
	}

	best := ""
	for lang, count := range counts {
		if best == "" {
			best = lang
			continue
		}
		if count > counts[best] || (count == counts[best] && firstSeen[lang] < firstSeen[best]) {
			best = lang
		}
	}

	return best
}
