package ffmpeg

import (
	"sort"
	"strings"
)

const DefaultQuality = "medium"

// Quality maps an extraction quality name to mp3 encoder parameters.
type Quality struct {
	Name         string
	BitrateKbps  int
	SampleRateHz int
}

var qualities = map[string]Quality{
	"low":    {Name: "low", BitrateKbps: 128, SampleRateHz: 44100},
	"medium": {Name: "medium", BitrateKbps: 192, SampleRateHz: 44100},
	"high":   {Name: "high", BitrateKbps: 320, SampleRateHz: 48000},
}

// LookupQuality resolves a quality name; an empty name selects the default.
func LookupQuality(name string) (Quality, bool) {
	trimmed := strings.TrimSpace(strings.ToLower(name))
	if trimmed == "" {
		trimmed = DefaultQuality
	}
	q, ok := qualities[trimmed]
	return q, ok
}

func QualityNames() []string {
	names := make([]string, 0, len(qualities))
	for name := range qualities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
