package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// reservedNameChars are characters stripped from caller-supplied base names,
// covering path separators and the filename characters Windows rejects.
const reservedNameChars = `/\:*?"<>|`

// OutputPath builds the artifact path `{base}_{token}.{ext}` under dir and
// creates dir if it is missing. baseName is the caller-supplied name (may be
// empty), fallback the input-derived stem used when baseName sanitizes away.
// The token is freshly generated per call, so two jobs with identical names
// never collide.
func OutputPath(dir, baseName, fallback, ext string) (string, error) {
	base := SanitizeBaseName(baseName)
	if base == "" {
		base = SanitizeBaseName(fallback)
	}
	if base == "" {
		base = "output"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}

	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, NewToken(), ext)), nil
}

// SanitizeBaseName strips reserved filename characters, control characters,
// and surrounding whitespace/dots from a caller-supplied base name.
func SanitizeBaseName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(reservedNameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(strings.TrimSpace(b.String()), ".")
}

// InputStem derives a base name from the final path element of an input
// locator, without its extension.
func InputStem(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewToken returns the 8-hex-character collision-avoidance token appended to
// every artifact name.
func NewToken() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}
