package errors

import (
	"errors"
	"fmt"
)

var (
	ErrFileOpen        = errors.New("file open failed")
	ErrFileRead        = errors.New("file read failed")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrNoInput         = errors.New("no input files given")
	ErrAlreadyRun      = errors.New("coordinator already run")
	ErrFrozen          = errors.New("word set is frozen")
	ErrSinkUnavailable = errors.New("log sink unavailable")
	ErrTimeout         = errors.New("operation timed out")
)

// Exit codes returned by the command-line tools.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitConfig   = 3
	ExitInternal = 70
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name errors do not need a second import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrNoInput):
		return ExitUsage
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfig
	case errors.Is(err, ErrAlreadyRun), errors.Is(err, ErrFrozen):
		return ExitInternal
	default:
		return ExitFailure
	}
}
