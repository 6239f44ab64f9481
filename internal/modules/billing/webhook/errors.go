package webhook

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks payloads missing a required field. Nothing is written.
	ErrValidation = errors.New("webhook payload invalid")
	// ErrIgnored marks event kinds the reconciler does not handle.
	ErrIgnored = errors.New("webhook event ignored")
	// ErrSignature marks payloads whose signature does not verify.
	ErrSignature = errors.New("webhook signature invalid")
)

type ValidationError struct {
	Event  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Event, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
