package dataprocessing

import (
	"errors"
	"fmt"
)

// ErrUnreadableInput is matched by every error that prevents a table from being loaded.
var ErrUnreadableInput = errors.New("unreadable input")

// ParseError describes why an upload could not be read as a table.
// Line is the 1-based source line when the failure is tied to one, otherwise 0.
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes every ParseError match ErrUnreadableInput.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnreadableInput
}

func parseErrorf(line int, cause error, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...), Err: cause}
}
