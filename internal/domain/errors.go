package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a station-event could not be (fully) computed.
type ErrorKind string

const (
	KindInvalidRecord     ErrorKind = "InvalidRecord"
	KindCalibration       ErrorKind = "CalibrationError"
	KindInsufficientData  ErrorKind = "InsufficientData"
	KindIncompleteStation ErrorKind = "IncompleteStation"
	KindCancelled         ErrorKind = "Cancelled"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrInvalidRecord     = &Error{Kind: KindInvalidRecord}
	ErrCalibration       = &Error{Kind: KindCalibration}
	ErrInsufficientData  = &Error{Kind: KindInsufficientData}
	ErrIncompleteStation = &Error{Kind: KindIncompleteStation}
	ErrCancelled         = &Error{Kind: KindCancelled}
)

// Error is a classified pipeline failure.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with a detail must
// also match the detail, so the bare sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

// NewCancelled reports that a unit was abandoned because its batch was
// aborted.
func NewCancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Detail: "batch aborted before completion", Err: cause}
}

// KindOf extracts the kind of err. Context cancellation maps to Cancelled;
// unclassified errors map to InvalidRecord because they originate from the
// data of the unit being processed.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindInvalidRecord
}
