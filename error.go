package svelib

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Error annotates an error with the operation that failed and the frame
// where the annotation happened. Printing it with %+v shows the frame.
type Error struct {
	op    string
	err   error
	frame xerrors.Frame
}

// Annotate returns nil if err is nil, otherwise an *Error whose frame points
// to the caller of Annotate.
func Annotate(err error, op string) error {
	return AnnotateSkip(err, op, 1)
}

// AnnotateSkip is Annotate with the frame taken skip calls up the stack.
func AnnotateSkip(err error, op string, skip int) error {
	if err == nil {
		return nil
	}
	return &Error{
		op:    op,
		err:   err,
		frame: xerrors.Caller(skip + 1),
	}
}

// Wrap keeps the message of err untouched but records the frame of its
// caller.
func Wrap(err error) error {
	return AnnotateSkip(err, "", 1)
}

// Op returns the failed operation, or an empty string.
func (e *Error) Op() string {
	return e.op
}

func (e *Error) Error() string {
	if e.op == "" {
		return e.err.Error()
	}
	return e.op + ": " + e.err.Error()
}

// Unwrap returns the annotated error.
func (e *Error) Unwrap() error {
	return e.err
}

// Format implements fmt.Formatter.
func (e *Error) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

// FormatError implements xerrors.Formatter. The frame is only printed in
// detail mode (%+v).
func (e *Error) FormatError(p xerrors.Printer) error {
	if e.op != "" {
		p.Printf("%s: ", e.op)
	}
	p.Printf("%v", e.err)
	if p.Detail() {
		e.frame.Format(p)
		p.Printf("%+v", e.err)
	}
	return nil
}
