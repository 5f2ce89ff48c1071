// Package generate invokes the external generation model and parses its output.
package generate

import (
	"context"
	"errors"
)

// Error kinds for generation failures. Non-retryable provider errors (auth,
// malformed request) surface as ErrGeneration with zero retries; transient
// failures (timeout, 429, 5xx) surface as ErrTimeout only after the retry
// budget is exhausted.
var (
	ErrGeneration = errors.New("generation failed")
	ErrTimeout    = errors.New("generation timed out")
)

// Request is one generation call.
type Request struct {
	System string
	User   string
}

// Response is the raw model output.
type Response struct {
	Text       string
	TokensUsed int
	Model      string
}

// Generator produces text from a prompt. Implementations own their timeout
// and retry behavior; cancelling ctx aborts the outstanding network call.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
