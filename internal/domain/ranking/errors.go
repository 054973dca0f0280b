package ranking

import (
	"errors"
	"fmt"
)

// Sentinel kinds for ranking errors.
var (
	ErrInvalidSubject = errors.New("subject identifier is required")
	ErrInvalidMode    = errors.New("invalid ranking mode")
	ErrProcess        = errors.New("ranking process failed")
	ErrDecode         = errors.New("ranking output could not be decoded")
	ErrBusy           = errors.New("ranking capacity exhausted")
)

// ProcessError reports that the ranking process could not be launched,
// exited abnormally, or ran past its deadline. Stderr holds whatever
// diagnostic text the process wrote.
type ProcessError struct {
	Mode     Mode
	Subject  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("ranking process failed (mode=%s subject=%s exit=%d)", e.Mode, e.Subject, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause.
func (e *ProcessError) Unwrap() error { return e.Err }

// Is matches ErrProcess.
func (e *ProcessError) Is(target error) bool { return target == ErrProcess }

// DecodeError reports that the ranking process ran but its primary output
// was not a single list of identifier strings.
type DecodeError struct {
	Mode   Mode
	Output string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("ranking output could not be decoded (mode=%s)", e.Mode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
