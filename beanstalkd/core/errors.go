package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors for the generic status words a server can reply with.
var (
	// ErrOutOfMemory - the server cannot allocate enough memory for the job.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInternalError - a bug in the server.
	ErrInternalError = errors.New("internal error")

	// ErrBadFormat - the server rejected the command line as not well-formed.
	ErrBadFormat = errors.New("bad format")

	// ErrUnknownCommand - the server does not know the command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrExpectedCRLF - the job body was not terminated by \r\n.
	ErrExpectedCRLF = errors.New("expected CRLF")

	// ErrJobTooBig - the job body is larger than the server's max-job-size.
	ErrJobTooBig = errors.New("job too big")

	// ErrDraining - the server is in drain mode and does not accept new jobs.
	ErrDraining = errors.New("draining")

	// ErrNotFound - the job or tube does not exist (or is not reserved by this client).
	ErrNotFound = errors.New("not found")

	// ErrNotIgnored - the client attempted to ignore the only tube in its watch list.
	ErrNotIgnored = errors.New("not ignored")
)

// Errors raised by the client itself.
var (
	// ErrInvalidTubeName - tube name is empty, longer than 200 bytes or has
	// a space or a control character
	ErrInvalidTubeName = errors.New("invalid tube name")

	// ErrInvalidArgument - a numeric argument is outside the range the protocol allows
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConnClosed - the connection is closed, no further commands can be sent
	ErrConnClosed = errors.New("connection closed")

	// ErrBadFrame - the response violates the wire format
	ErrBadFrame = errors.New("malformed frame")

	// ErrLineTooLong - no \r\n was found within MaxLineSizeBytes
	ErrLineTooLong = errors.New("response line too long")

	// ErrUnexpectedStatus - the status word is not a valid reply to the command sent
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrNoData - when the input stream has no data this can be the case
	// if the underlying reader return zero bytes  and is however not at EOF
	ErrNoData = errors.New("no data")
)

// ErrorKind classifies an Error
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// malformed arguments caught before anything is sent
	KindValidation

	// a well-formed error status word from the server
	KindProtocol

	// the response broke the framing contract
	KindMalformedFrame

	// the underlying stream failed
	KindTransport

	// the connection was already closed
	KindClosed
)

var errorKindNames = [...]string{
	KindUnknown:        "unknown",
	KindValidation:     "validation",
	KindProtocol:       "protocol",
	KindMalformedFrame: "malformed-frame",
	KindTransport:      "transport",
	KindClosed:         "closed",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindNames) {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return errorKindNames[k]
}

// Fatal reports if an error of this kind leaves the connection unusable.
func (k ErrorKind) Fatal() bool {
	return k == KindMalformedFrame || k == KindTransport || k == KindClosed
}

// Error is returned by every command. Op is the verb of the command
// (ex: "reserve-with-timeout"), Kind classifies the failure and Err is
// the underlying cause, usually one of the Err* values of this package.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func NewError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause returns the innermost error, for callers using errors.Cause
func (e *Error) Cause() error {
	return errors.Cause(e.Err)
}

// KindOf returns the ErrorKind of err, KindUnknown if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
