package driver

import (
	"errors"
	"fmt"
)

// Kind classifies a driver failure so callers can distinguish
// "no such item" from "backend refused" from "backend unreachable".
type Kind int

const (
	// KindConfig marks missing or malformed credentials. Never retried.
	KindConfig Kind = iota
	// KindTransport marks connection, TLS or timeout failures.
	KindTransport
	// KindProtocol marks commands the backend rejected.
	KindProtocol
	// KindDecode marks a message body that failed to parse.
	KindDecode
	// KindNotFound marks a missing message, label or draft.
	KindNotFound
	// KindUnsupported marks a documented capability gap of the backend.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDecode:
		return "decode"
	case KindNotFound:
		return "not_found"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error carries a failure kind, the operation that produced it and a
// human-readable message. The backend's own error text is preserved in
// the wrapped error and surfaced upward unchanged.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, ErrNotFound) matches any
// not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is matching by kind.
var (
	ErrConfig      = &Error{Kind: KindConfig, Message: "invalid configuration"}
	ErrTransport   = &Error{Kind: KindTransport, Message: "backend unreachable"}
	ErrProtocol    = &Error{Kind: KindProtocol, Message: "backend rejected command"}
	ErrDecode      = &Error{Kind: KindDecode, Message: "message decode failed"}
	ErrNotFound    = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnsupported = &Error{Kind: KindUnsupported, Message: "operation not supported"}
)

// NewError builds a kinded driver error.
func NewError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func ConfigError(op, message string, err error) *Error {
	return NewError(KindConfig, op, message, err)
}

func TransportError(op, message string, err error) *Error {
	return NewError(KindTransport, op, message, err)
}

func ProtocolError(op, message string, err error) *Error {
	return NewError(KindProtocol, op, message, err)
}

func DecodeError(op, message string, err error) *Error {
	return NewError(KindDecode, op, message, err)
}

func NotFoundError(op, message string) *Error {
	return NewError(KindNotFound, op, message, nil)
}

func UnsupportedError(op, message string) *Error {
	return NewError(KindUnsupported, op, message, nil)
}

// KindOf extracts the kind of a driver error, or KindTransport for
// unclassified errors coming out of the transport layer.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransport
}
