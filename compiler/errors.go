package compiler

import (
	"errors"
	"fmt"
)

// Error kinds. Every *Error wraps exactly one of these, so callers can
// classify failures with errors.Is.
var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrArity         = errors.New("arity violation")
	ErrUnresolved    = errors.New("unresolved symbol")
	ErrDuplicate     = errors.New("duplicate symbol")
	ErrClassMismatch = errors.New("class mismatch")
	ErrNumeric       = errors.New("numeric conversion failure")
	ErrAllocation    = errors.New("allocation failure")
	ErrState         = errors.New("invalid compiler state")
)

// Error is a diagnostic for one source instruction.
type Error struct {
	Kind  error
	File  string
	Line  int
	Token string
	Msg   string
}

func (e *Error) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if loc == "" {
		return e.Msg
	}
	return loc + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// IsFatal reports whether err must abort the whole compiler run rather than
// just the current source file.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAllocation)
}

// errorf builds a diagnostic located at op. A nil op yields an unlocated
// error.
func errorf(kind error, op *Op, format string, args ...any) *Error {
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	if op != nil {
		e.File, e.Line, e.Token = op.File, op.Line, op.Token
	}
	return e
}
