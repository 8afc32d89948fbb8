// Package jerr defines the error taxonomy shared across the parser, the
// compiler and the CLI: every fatal condition the engine can raise is one of
// a small set of kinds, each carrying the template path and source position
// that triggered it.
package jerr

import (
	"fmt"

	"github.com/fatih/color"
	"golang.org/x/xerrors"

	"github.com/deicod/jinjac/lexer"
)

// Kind classifies a fatal error, following the five kinds enumerated by the
// engine's error handling design: a parse failure, a structural violation
// (multiple extends, misplaced top-level-only nodes), a failed name
// resolution (unknown macro, missing _parent field), an expression-level
// defect (unknown loop attribute, indentation underflow) or a render-time
// failure in the generated code.
type Kind string

const (
	Syntax     Kind = "syntax"
	Structural Kind = "structural"
	Resolution Kind = "resolution"
	Expression Kind = "expression"
	Runtime    Kind = "runtime"
)

// Error is the concrete error type returned by every package in this module.
type Error struct {
	Kind     Kind
	Template string
	Position lexer.Position
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("%s: %s: %s", e.Position, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s:%s: %s: %s", e.Template, e.Position, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, template string, pos lexer.Position, format string, args ...any) *Error {
	return &Error{
		Kind:     kind,
		Template: template,
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches kind/template/position context to an existing error using
// xerrors so that %+v formatting preserves the originating frame.
func Wrap(kind Kind, template string, pos lexer.Position, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{
		Kind:     kind,
		Template: template,
		Position: pos,
		Message:  msg,
		Cause:    xerrors.Errorf("%s: %w", msg, cause),
	}
}

// FormatError renders a one-line "path:line:col: kind: message" diagnostic,
// colorized when colored is true.
func FormatError(err error, colored bool) string {
	var je *Error
	if !xerrors.As(err, &je) {
		return err.Error()
	}
	if !colored {
		return je.Error()
	}
	kindFn := color.New(color.Bold, color.FgHiRed).SprintFunc()
	posFn := color.New(color.FgHiWhite).SprintFunc()
	loc := je.Position.String()
	if je.Template != "" {
		loc = je.Template + ":" + loc
	}
	return fmt.Sprintf("%s: %s: %s", posFn(loc), kindFn(string(je.Kind)), je.Message)
}
