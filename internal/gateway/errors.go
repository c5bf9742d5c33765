package gateway

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindTransportFailure ErrorKind = "transport_failure"
	KindMalformedReply   ErrorKind = "malformed_reply"
)

var (
	ErrTransportFailure = errors.New("gateway transport failure")
	ErrMalformedReply   = errors.New("gateway malformed reply")
	ErrEmptyMessage     = errors.New("gateway message is empty")
)

// Error is returned for every failed forwarded send. Err carries the cause for logging.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransportFailure:
		return e.Kind == KindTransportFailure
	case ErrMalformedReply:
		return e.Kind == KindMalformedReply
	}
	return false
}

func transportFailure(err error) *Error {
	return &Error{Kind: KindTransportFailure, Err: err}
}

func malformedReply(err error) *Error {
	return &Error{Kind: KindMalformedReply, Err: err}
}
