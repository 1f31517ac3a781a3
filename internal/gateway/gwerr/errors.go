// Package gwerr defines the error taxonomy shared by the chain adapter, the
// signer, the nonce sequencer, the transaction gateway and the contract facade.
package gwerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by how the caller is expected to react to it.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindInvalidKey
	KindProviderUnavailable
	KindProviderRejected
	KindNonceGapDetected
	KindTimedOut
	KindReverted
	KindRejected
	KindDecodeError
	KindUnknownFunction
	KindUnknownEvent
	KindNotFound
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindInvalidInput:        "InvalidInput",
	KindInvalidKey:          "InvalidKey",
	KindProviderUnavailable: "ProviderUnavailable",
	KindProviderRejected:    "ProviderRejected",
	KindNonceGapDetected:    "NonceGapDetected",
	KindTimedOut:            "TimedOut",
	KindReverted:            "Reverted",
	KindRejected:            "Rejected",
	KindDecodeError:         "DecodeError",
	KindUnknownFunction:     "UnknownFunction",
	KindUnknownEvent:        "UnknownEvent",
	KindNotFound:            "NotFound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is the typed error carried across component boundaries.
type Error struct {
	Kind Kind
	Op   string // component operation, e.g. "gateway.submit"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause keeps compatibility with errors.Cause from github.com/pkg/errors.
func (e *Error) Cause() error {
	return e.Err
}

// New returns an error of the given kind without an underlying cause.
func New(kind Kind, op string, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(err error, kind Kind, op string, msg string) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the kind of the outermost *Error found in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}

	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the operation may succeed if repeated verbatim.
func Retryable(err error) bool {
	return Is(err, KindProviderUnavailable)
}
