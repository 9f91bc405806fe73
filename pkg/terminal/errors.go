package terminal

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("terminal: aborted")
	// ErrNoController is returned by NewRunner without a controller.
	ErrNoController = errors.New("terminal: controller is required")
	// ErrGaveUp is returned when the user declines to retry a failed
	// submission. The answers stay in the snapshot store.
	ErrGaveUp = errors.New("terminal: submission not completed")
	// ErrUnknownTheme is returned for theme or variant names no manifest
	// defines.
	ErrUnknownTheme = errors.New("terminal: unknown theme")
)
