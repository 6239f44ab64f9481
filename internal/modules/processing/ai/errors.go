package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream marks a generation that failed at the inference service.
	ErrUpstream = errors.New("generation failed")
	// ErrEmptyCompletion is returned by completers when the model produced no text.
	ErrEmptyCompletion = errors.New("empty response from AI")
	// ErrNoProvider is returned when no enabled provider is configured.
	ErrNoProvider = errors.New("no AI provider configured")
)

// UpstreamError is the terminal failure of the retry ladder.
type UpstreamError struct {
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// ValidationError rejects a malformed generation request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
