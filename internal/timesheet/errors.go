package timesheet

import (
	"errors"
	"fmt"
)

// ErrInvalidOperation marks a conflict with the live backend state. It is
// meant to be shown to the user and never retried automatically.
var ErrInvalidOperation = errors.New("invalid operation")

var (
	ErrTimerRunning      = fmt.Errorf("%w: timer already running", ErrInvalidOperation)
	ErrTimerNotRunning   = fmt.Errorf("%w: timer isn't running", ErrInvalidOperation)
	ErrInconsistentState = fmt.Errorf("%w: backend holds more than one open timesheet detail", ErrInvalidOperation)
	ErrLocked            = fmt.Errorf("%w: timesheet is already submitted", ErrInvalidOperation)
	ErrNotLoggedIn       = fmt.Errorf("%w: not logged in", ErrInvalidOperation)
	ErrInvalidRange      = fmt.Errorf("%w: end date is before start date", ErrInvalidOperation)
)
