// Package errors attaches stable codes to failures so callers can map them
// to exit paths and HTTP statuses without matching on message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure
type ErrorCode string

// Error is an error carrying an ErrorCode. WithMessage and WithData return
// copies; the receiver is never modified.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	Unwrap() error
}

type codedError struct {
	code  ErrorCode
	msg   string
	cause error
	data  any
}

// New creates an error carrying only a code.
func New(code ErrorCode) Error {
	return &codedError{code: code}
}

// Wrap attaches a code to an underlying error.
func Wrap(code ErrorCode, err error) Error {
	return &codedError{code: code, cause: err}
}

func (e *codedError) Error() string {
	msg := e.msg
	if msg == "" {
		msg = messageFor(e.code)
	}

	switch {
	case e.data != nil:
		return fmt.Sprintf("%s: %v", msg, e.data)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", msg, e.cause)
	default:
		return msg
	}
}

func (e *codedError) Code() ErrorCode { return e.code }

func (e *codedError) Unwrap() error { return e.cause }

func (e *codedError) WithMessage(msg string) Error {
	c := *e
	c.msg = msg
	return &c
}

func (e *codedError) WithData(data any) Error {
	c := *e
	c.data = data
	return &c
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code() == code {
			return true
		}
		err = e.Unwrap()
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return ErrInternal
}
