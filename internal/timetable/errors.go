package timetable

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidInput = errors.New("timetable: invalid input")
	ErrNoSolution   = errors.New("timetable: no solution found")
	ErrInvalidState = errors.New("timetable: invalid grid state")
)

// InputError reports a malformed or empty catalog detected before any placement.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("timetable: invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func inputError(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NoSolutionReason explains why a complete search gave up.
type NoSolutionReason string

const (
	NoSolutionExhausted NoSolutionReason = "exhausted"
	NoSolutionDeadline  NoSolutionReason = "deadline"
	NoSolutionCanceled  NoSolutionReason = "canceled"
)

// NoSolutionError is returned by complete solvers that could not satisfy every demand unit.
type NoSolutionError struct {
	Strategy Strategy
	Reason   NoSolutionReason
	Explored int
}

func (e *NoSolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("timetable: %s found no solution (%s after %d nodes)", e.Strategy, e.Reason, e.Explored)
}

// Is lets errors.Is match ErrNoSolution.
func (e *NoSolutionError) Is(target error) bool {
	return target == ErrNoSolution
}

// InvalidStateError signals a solver defect: the grid was asked to do something impossible.
type InvalidStateError struct {
	Op     string
	Day    Day
	Period int
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("timetable: %s %s/%d: %s", e.Op, e.Day, e.Period, e.Reason)
}

// Is lets errors.Is match ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}
