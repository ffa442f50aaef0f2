package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData marks a series shorter than two windows. The core
	// returns an empty score series instead; callers use this to report it.
	ErrInsufficientData = errors.New("insufficient data for two windows")
	// ErrInvalidConfig is wrapped by every rejected configuration value.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidSeries is wrapped by series validation failures.
	ErrInvalidSeries = errors.New("invalid series")
)

// ComputationError reports a failure while evaluating one window or pair.
// It aborts the whole run.
type ComputationError struct {
	Stage string
	Index int
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s failed at index %d: %v", e.Stage, e.Index, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
