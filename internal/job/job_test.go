package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecuteSuccessReturnsArtifactSize(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "out.mp3")
	size, jobErr := Execute(context.Background(), time.Minute, artifact, func(_ context.Context) error {
		return os.WriteFile(artifact, []byte("audio-bytes"), 0o644)
	})
	require.Nil(t, jobErr)
	require.Equal(t, int64(len("audio-bytes")), size)
}

func TestExecuteFailureRemovesPartialArtifact(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "out.mp3")
	boom := errors.New("encoder exploded")

	_, jobErr := Execute(context.Background(), time.Minute, artifact, func(_ context.Context) error {
		require.NoError(t, os.WriteFile(artifact, []byte("partial"), 0o644))
		return boom
	})
	require.NotNil(t, jobErr)
	require.Equal(t, KindEngineExecution, jobErr.Kind)
	require.ErrorIs(t, jobErr, boom)
	require.NoFileExists(t, artifact)
}

func TestExecuteTimeoutReportsTimeoutKindAndCleansUp(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "out.txt")
	_, jobErr := Execute(context.Background(), 20*time.Millisecond, artifact, func(ctx context.Context) error {
		require.NoError(t, os.WriteFile(artifact, []byte("partial"), 0o644))
		<-ctx.Done()
		return ctx.Err()
	})
	require.NotNil(t, jobErr)
	require.Equal(t, KindTimeout, jobErr.Kind)
	require.NoFileExists(t, artifact)
}

func TestExecuteMissingArtifactAfterSuccessIsFailure(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "out.txt")
	_, jobErr := Execute(context.Background(), time.Minute, artifact, func(_ context.Context) error {
		return nil
	})
	require.NotNil(t, jobErr)
	require.Equal(t, KindEngineExecution, jobErr.Kind)
}

func TestExecuteEmptyArtifactIsFailure(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "out.txt")
	_, jobErr := Execute(context.Background(), time.Minute, artifact, func(_ context.Context) error {
		return os.WriteFile(artifact, nil, 0o644)
	})
	require.NotNil(t, jobErr)
	require.Equal(t, KindEngineExecution, jobErr.Kind)
	require.NoFileExists(t, artifact)
}

func TestExecutePreservesClassifiedErrors(t *testing.T) {
	t.Parallel()

	artifact := filepath.Join(t.TempDir(), "out.txt")
	_, jobErr := Execute(context.Background(), time.Minute, artifact, func(_ context.Context) error {
		return EngineUnavailable("whisper-cli not found on PATH", nil)
	})
	require.NotNil(t, jobErr)
	require.Equal(t, KindEngineUnavailable, jobErr.Kind)
}

func TestSecondsRoundsToTwoDecimals(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.23, Seconds(1234*time.Millisecond))
	require.Equal(t, 0.01, Seconds(5*time.Millisecond))
	require.Equal(t, 0.0, Seconds(0))
}
