// Package sheeterr defines the error categories surfaced by sheet loading,
// formula evaluation, coercion and export.
package sheeterr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindIO       Kind = "io"
	KindParse    Kind = "parse"
	KindSchema   Kind = "schema"
	KindFormula  Kind = "formula"
	KindCoercion Kind = "coercion"
	KindExport   Kind = "export"
)

// Error carries a Kind plus optional file path and underlying cause.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s: %s", e.Kind, e.Path, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
