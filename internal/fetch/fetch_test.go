package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wavPayload returns bytes that sniff as audio/x-wav.
func wavPayload(extra int) []byte {
	payload := []byte("RIFF\x24\x08\x00\x00WAVEfmt ")
	return append(payload, make([]byte, extra)...)
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	cases := []struct {
		locator string
		want    bool
	}{
		{"https://example.com/talk.mp4", true},
		{"http://example.com/talk.mp4", true},
		{"HTTPS://EXAMPLE.COM/talk.mp4", true},
		{"ftp://example.com/talk.mp4", false},
		{"/home/user/talk.mp4", false},
		{"talk.mp4", false},
		{"https://", false},
		{"", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsRemote(tc.locator), "locator %q", tc.locator)
	}
}

func TestFetchCachesRemoteMedia(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	payload := wavPayload(4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	fetcher := New(cacheDir, server.Client(), zap.NewNop())

	first, err := fetcher.Fetch(context.Background(), server.URL+"/talk.wav")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(first, ".wav"))
	require.Equal(t, cacheDir, filepath.Dir(first))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	require.Equal(t, payload, data)

	second, err := fetcher.Fetch(context.Background(), server.URL+"/talk.wav")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), hits.Load(), "second fetch should hit the cache")
}

func TestFetchRejectsNonMediaPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>not a video</body></html>"))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	fetcher := New(cacheDir, server.Client(), zap.NewNop())

	_, err := fetcher.Fetch(context.Background(), server.URL+"/talk.mp4")
	require.ErrorIs(t, err, ErrNotMedia)

	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Empty(t, entries, "rejected payload should leave no cache artifacts")
}

func TestFetchRejectsBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := New(t.TempDir(), server.Client(), zap.NewNop())

	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.mp4")
	require.ErrorContains(t, err, "status 404")
}

func TestFetchRejectsLocalPath(t *testing.T) {
	t.Parallel()

	fetcher := New(t.TempDir(), nil, zap.NewNop())

	_, err := fetcher.Fetch(context.Background(), "/home/user/talk.mp4")
	require.ErrorContains(t, err, "invalid media URL")
}
