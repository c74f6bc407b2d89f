package domain

import (
	"fmt"
)

// ValidationError is returned when command input is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError is returned when a referenced deal or stage does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// InvalidStateError is returned when an operation is not legal for the
// deal's current status.
type InvalidStateError struct {
	DealID string
	Status Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s deal %q in status %q", e.Op, e.DealID, e.Status)
}

// RequiresClosureDataError is returned when a generic move targets a terminal
// stage. Closure is the closing command's job.
type RequiresClosureDataError struct {
	StageID string
	Closure string
}

func (e *RequiresClosureDataError) Error() string {
	return fmt.Sprintf("stage %q is terminal; use %s to close the deal", e.StageID, e.Closure)
}

// ConflictError is returned when a deal changed between the caller's read
// and the commit.
type ConflictError struct {
	DealID   string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("deal %q was modified concurrently", e.DealID)
	}
	return fmt.Sprintf("deal %q: expected %q, found %q", e.DealID, e.Expected, e.Actual)
}

// ConfigurationError is returned when the stage registry cannot serve a
// request, e.g. there is no open stage to seed new deals into.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "pipeline configuration: " + e.Reason
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}
