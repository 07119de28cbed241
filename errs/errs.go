// Package errs carries coded errors across subsystem boundaries. Every
// failure path in the pipeline returns one of these instead of aborting
// the process; the code tells the caller which fallback applies.
package errs

import (
	"fmt"
	"runtime"
	"strings"
)

type Error struct {
	Code    int
	Message string
	Cause   error
	Stack   string
}

func New(code int, cause error) *Error {
	if cause == nil {
		return nil
	}
	if e, ok := cause.(*Error); ok {
		return e
	}
	return &Error{Code: code, Cause: cause, Stack: CallStack(2, 10)}
}

func NewMsg(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Stack: CallStack(2, 10)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		if e.Message != "" {
			return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
		}
		return fmt.Sprintf("[%d] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Short returns the message without the stack, for compact log fields.
func (e *Error) Short() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return fmt.Sprintf("code: %d", e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func CallStack(skip, maxNum int) string {
	pcs := make([]uintptr, maxNum)
	num := runtime.Callers(skip+1, pcs)
	if num == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:num])
	var b strings.Builder
	for {
		frame, more := frames.Next()
		b.WriteString(fmt.Sprintf("%s:%d\n", frame.File, frame.Line))
		if !more {
			break
		}
	}
	return b.String()
}
