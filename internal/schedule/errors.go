package schedule

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned when the run is cancelled by the operator.
var ErrInterrupted = errors.New("interrupted")

// FormatError reports text that is not a valid duration or time of day.
type FormatError struct {
	Value  string
	Layout string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid time %q: expected %s", e.Value, e.Layout)
	}
	return fmt.Sprintf("invalid time %q: %s", e.Value, e.Reason)
}

// InvalidScheduleError reports timing parameters that cannot produce a plan.
type InvalidScheduleError struct {
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return "invalid schedule: " + e.Reason
}
