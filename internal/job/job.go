// Package job implements the lifecycle shared by every media tool call:
// bounded execution of an external engine, a single output artifact on
// success, and guaranteed cleanup of partial artifacts on any failure.
package job

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Execute runs fn under the given wall-clock timeout and enforces the
// artifact invariant: on success the file at artifactPath must exist with
// nonzero size and its size is returned; on any failure (including timeout)
// the partial artifact is removed before the error is reported. A timeout of
// zero disables the bound.
func Execute(ctx context.Context, timeout time.Duration, artifactPath string, fn func(ctx context.Context) error) (int64, *Error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := fn(runCtx); err != nil {
		removeArtifact(artifactPath)
		if runCtx.Err() == context.DeadlineExceeded {
			return 0, Timeout(fmt.Sprintf("processing exceeded the %s limit", timeout), err)
		}
		return 0, Classify(err, "processing")
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		removeArtifact(artifactPath)
		return 0, EngineExecution("engine reported success but produced no output artifact", err)
	}
	if info.Size() == 0 {
		removeArtifact(artifactPath)
		return 0, EngineExecution("engine produced an empty output artifact", nil)
	}

	return info.Size(), nil
}

// Seconds converts an elapsed duration into the two-decimal seconds value
// reported as processing_time.
func Seconds(d time.Duration) float64 {
	return float64(int64(d.Seconds()*100+0.5)) / 100
}

func removeArtifact(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	_ = os.Remove(path)
}
