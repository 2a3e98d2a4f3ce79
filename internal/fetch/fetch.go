// Package fetch resolves remote input locators into local cache files so the
// rest of the pipeline only ever sees paths on disk.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// sniffLen covers the largest magic-number offset filetype inspects.
const sniffLen = 262

var ErrNotMedia = errors.New("remote content is not audio or video")

type Fetcher struct {
	cacheDir string
	client   *http.Client
	logger   *zap.Logger
}

func New(cacheDir string, client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cacheDir: cacheDir, client: client, logger: logger}
}

// IsRemote reports whether the locator is a well-formed http(s) URL.
func IsRemote(locator string) bool {
	lower := strings.ToLower(locator)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	parsed, err := url.Parse(locator)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

// Fetch downloads a remote media URL into the cache directory and returns
// the local path. The cache name is derived from the URL hash, so repeated
// fetches of the same URL reuse the cached file. Payloads whose leading
// bytes are neither audio nor video are rejected with ErrNotMedia.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !IsRemote(rawURL) {
		return "", fmt.Errorf("invalid media URL: %s", rawURL)
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory %s: %w", f.cacheDir, err)
	}

	if cached := f.cachedPath(rawURL); cached != "" {
		f.logger.Debug("remote media already cached", zap.String("url", rawURL), zap.String("path", cached))
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "media2txt/1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(resp.Body, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read media header: %w", err)
	}
	header = header[:n]

	kind, err := filetype.Match(header)
	if err != nil {
		return "", fmt.Errorf("detect media type: %w", err)
	}
	if !filetype.IsAudio(header) && !filetype.IsVideo(header) {
		return "", fmt.Errorf("%w (detected %q)", ErrNotMedia, kind.MIME.Value)
	}

	finalPath := filepath.Join(f.cacheDir, cacheFileName(rawURL, kind.Extension))
	tempPath := finalPath + ".part"
	_ = os.Remove(tempPath)

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create cache file: %w", err)
	}

	success := false
	defer func() {
		_ = out.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := out.Write(header); err != nil {
		return "", fmt.Errorf("write cache file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write cache file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close cache file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return "", fmt.Errorf("move cache file: %w", err)
	}

	success = true
	f.logger.Info("fetched remote media", zap.String("url", rawURL), zap.String("path", finalPath))
	return finalPath, nil
}

// cachedPath finds a previous fetch of the same URL regardless of the
// extension its payload was sniffed to.
func (f *Fetcher) cachedPath(rawURL string) string {
	matches, err := filepath.Glob(filepath.Join(f.cacheDir, urlHash(rawURL)+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") {
			continue
		}
		if info, err := os.Stat(match); err == nil && info.Size() > 0 {
			return match
		}
	}
	return ""
}

func cacheFileName(rawURL, extension string) string {
	if extension == "" {
		extension = "bin"
	}
	return fmt.Sprintf("%s.%s", urlHash(rawURL), extension)
}

func urlHash(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "media_" + hex.EncodeToString(sum[:])[:16]
}
