package quota

import (
	"errors"
	"fmt"
)

var (
	ErrNotEntitled      = errors.New("feature not available on current plan")
	ErrNoCredits        = errors.New("ai credits exhausted")
	ErrAccountNotFound  = errors.New("account not found")
	ErrInvalidReceipt   = errors.New("invalid deduction receipt")
	ErrInvalidPatch     = errors.New("invalid subscription patch")
	errDuplicateAccount = errors.New("account already exists")
)

// EntitlementError is returned when the caller's tier lacks a feature.
type EntitlementError struct {
	Feature  Feature
	Tier     Tier
	Required Tier
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("%s requires the %s plan (current: %s)", e.Feature, e.Required, e.Tier)
}

func (e *EntitlementError) Unwrap() error { return ErrNotEntitled }

// QuotaExhaustedError carries the balance at the time of denial.
type QuotaExhaustedError struct {
	Remaining int
	Total     int
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("ai credits exhausted (%d/%d remaining)", e.Remaining, e.Total)
}

func (e *QuotaExhaustedError) Unwrap() error { return ErrNoCredits }
