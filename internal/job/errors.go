package job

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a job failure so callers can tell a timeout apart from an
// engine crash and decide whether retrying with a larger bound makes sense.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindEngineUnavailable Kind = "engine_unavailable"
	KindEngineExecution   Kind = "engine_execution"
	KindTimeout           Kind = "timeout"
	KindChunkFailure      Kind = "chunk_failure"
)

// Error is the failure type every job operation reports. Message is safe to
// surface verbatim in tool results; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func EngineUnavailable(message string, err error) *Error {
	return &Error{Kind: KindEngineUnavailable, Message: message, Err: err}
}

func EngineExecution(message string, err error) *Error {
	return &Error{Kind: KindEngineExecution, Message: message, Err: err}
}

func Timeout(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Err: err}
}

func ChunkFailure(message string, err error) *Error {
	return &Error{Kind: KindChunkFailure, Message: message, Err: err}
}

// Classify maps an arbitrary error to a job error without losing an already
// classified one. Deadline expiry becomes KindTimeout; everything else is
// treated as an engine execution failure.
func Classify(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(message+" timed out", err)
	}

	return EngineExecution(message+" failed", err)
}
