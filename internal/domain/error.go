package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrPlanRestricted      = errors.New("resolution not available on current plan")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrLedgerUnavailable   = errors.New("credit store unavailable")
	ErrSubmissionFailed    = errors.New("generation submission failed")
	ErrGenerationFailed    = errors.New("provider reported generation failure")
	ErrPollExhausted       = errors.New("status polling exhausted")
	ErrTimedOut            = errors.New("generation timed out")
	ErrEmptyResult         = errors.New("provider reported success without an artifact")
	ErrJobInFlight         = errors.New("user already has a generation in flight")
)
