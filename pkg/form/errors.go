package form

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when a name is not part of the definition.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrNotCheckbox is returned by checkbox operations on other kinds.
	ErrNotCheckbox = errors.New("form: field is not a checkbox group")
	// ErrInvalidOption is returned for values outside a choice field's options.
	ErrInvalidOption = errors.New("form: invalid option")
	// ErrHidden is returned when writing to a field hidden by a condition.
	ErrHidden = errors.New("form: field is hidden")
	// ErrCapExceeded is returned when a write would exceed a selection cap.
	ErrCapExceeded = errors.New("form: selection cap exceeded")
	// ErrSubmissionInProgress is returned when Submit is called while another
	// submission is in flight.
	ErrSubmissionInProgress = errors.New("form: submission in progress")
	// ErrInvalid matches *InvalidError.
	ErrInvalid = errors.New("form: validation failed")
	// ErrMissingServerFields is returned when collected data lacks a
	// server-mandated field right before sending.
	ErrMissingServerFields = errors.New("form: missing server-required fields")
	// ErrNoSender is returned by Submit when no transport is configured.
	ErrNoSender = errors.New("form: no sender configured")
	// ErrNoSnapshotStore is returned by persistence calls without a store.
	ErrNoSnapshotStore = errors.New("form: no snapshot store configured")
)

// InvalidError carries the validation result that blocked a submission.
type InvalidError struct {
	Result Result
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("form: validation failed with %d error(s)", len(e.Result.Errors))
}

// Is lets errors.Is match ErrInvalid.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}
