// Package fault reports contract violations: invalid handles, pointers not
// owned by the stated heap, corrupted arena bounds and other programmer
// errors the runtime cannot recover from.
//
// A violation is logged at error level and raised as a panic carrying an
// *Error. Left unrecovered, the panic terminates the process with the
// file, line and message of the failed check.
package fault

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/joshuapare/osrt/rt/logger"
)

// Error describes a contract violation.
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Panicf reports a contract violation detected by its caller.
func Panicf(format string, args ...any) {
	panic(newError(2, format, args...))
}

// Assert calls Panicf when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(newError(2, format, args...))
	}
}

func newError(skip int, format string, args ...any) *Error {
	e := &Error{File: "???", Msg: fmt.Sprintf(format, args...)}
	if _, file, line, ok := runtime.Caller(skip); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	logger.L.Error("contract violation", "file", e.File, "line", e.Line, "msg", e.Msg)
	return e
}

// From extracts the *Error from a recovered panic value.
func From(r any) (*Error, bool) {
	err, ok := r.(error)
	if !ok {
		return nil, false
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
