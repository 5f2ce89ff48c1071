// Package rag wires retrieval, context assembly, and generation into the
// question answering pipeline.
package rag

import (
	"errors"
	"fmt"

	"github.com/fitcoach/kotae/internal/generate"
)

var (
	// ErrInvalidInput marks a query rejected before the pipeline ran.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIndexUnavailable marks a missing or unusable index artifact.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// PipelineError attributes a failure to the stage that produced it.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ErrorKind maps a pipeline error to the stable kind string exposed to API
// callers and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, generate.ErrTimeout):
		return "generation_timeout"
	case errors.Is(err, generate.ErrGeneration):
		return "generation_failed"
	default:
		return "internal"
	}
}
