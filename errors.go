/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package xfrcore

import "fmt"

// ErrorKind classifies the failures the core can return, per the error
// taxonomy of the transfer and apply protocol.
type ErrorKind uint8

const (
	NoError ErrorKind = iota
	BadArgument
	OutOfMemory
	Oversize
	MalformedStream
	SerialMismatch
	ConcurrentUpdateInProgress
)

var ErrorKindToString = map[ErrorKind]string{
	NoError:                    "no-error",
	BadArgument:                "bad-argument",
	OutOfMemory:                "out-of-memory",
	Oversize:                   "oversize",
	MalformedStream:            "malformed-stream",
	SerialMismatch:             "serial-mismatch",
	ConcurrentUpdateInProgress: "concurrent-update-in-progress",
}

// CoreError is the error type returned by every exported operation in this
// package. Callers that need to branch on failure kind should use
// errors.As and inspect Kind.
type CoreError struct {
	Kind ErrorKind
	Msg  string
	err  error // optional wrapped cause
}

func (e *CoreError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrorKindToString[e.Kind], e.Msg, e.err)
	}
	return fmt.Sprintf("%s: %s", ErrorKindToString[e.Kind], e.Msg)
}

func (e *CoreError) Unwrap() error {
	return e.err
}

func newErr(kind ErrorKind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapErr(kind ErrorKind, cause error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Msg: fmt.Sprintf(format, args...), err: cause}
}

// IsKind reports whether err is a *CoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ce, ok := err.(*CoreError)
	if !ok {
		return false
	}
	return ce.Kind == kind
}
