// Package calcerr defines the errors a calculation can end in.
package calcerr

import (
	"errors"
	"fmt"
)

// Kind classifies a calculation error.
type Kind int

const (
	// Domain means a function argument was outside its valid range.
	Domain Kind = iota + 1
	// Syntax means an expression could not be parsed.
	Syntax
	// Overflow means a valid operation produced a non-finite result.
	Overflow
)

func (k Kind) String() string {
	switch k {
	case Domain:
		return "domain"
	case Syntax:
		return "syntax"
	case Overflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Error is a calculation error.
type Error struct {
	Kind Kind
	Op   string // function or operator that failed
	Msg  string
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrDomain   = &Error{Kind: Domain}
	ErrSyntax   = &Error{Kind: Syntax}
	ErrOverflow = &Error{Kind: Overflow}
)

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, e.Msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	case e.Msg != "":
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	default:
		return e.Kind.String() + " error"
	}
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Newf creates an error of the given kind.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewDomain creates a domain error for op.
func NewDomain(op, format string, args ...interface{}) *Error {
	return Newf(Domain, op, format, args...)
}

// NewSyntax creates a syntax error.
func NewSyntax(format string, args ...interface{}) *Error {
	return Newf(Syntax, "", format, args...)
}

// NewOverflow creates an overflow error for op.
func NewOverflow(op, format string, args ...interface{}) *Error {
	return Newf(Overflow, op, format, args...)
}

// KindOf returns the kind of err, or zero if err is not a calculation error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
