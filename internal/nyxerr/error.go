// Package nyxerr defines the error taxonomy shared across nyx's packages.
package nyxerr

import "fmt"

// Kind classifies an Error so callers (and the RPC layer) can react to a
// category without string-matching messages.
type Kind int

const (
	Db Kind = iota
	Io
	Crypto
	Http
	Json
	Rpc
	Validate
	Generic
	InvalidArguments
)

func (k Kind) String() string {
	switch k {
	case Db:
		return "Database error"
	case Io:
		return "I/O error"
	case Crypto:
		return "Crypto error"
	case Http:
		return "HTTP error"
	case Json:
		return "JSON error"
	case Rpc:
		return "RPC error"
	case Validate:
		return "Validate error"
	case Generic:
		return "Generic error"
	case InvalidArguments:
		return "Invalid arguments"
	default:
		return "Unknown error"
	}
}

// Error is the single error type used across nyx. It carries a Kind so
// upstream code (the RPC dispatcher, in particular) can map it to an
// appropriate wire-level response without parsing message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == Validate || e.Kind == Generic {
		return e.Message
	}
	if e.Kind == InvalidArguments {
		return "Invalid arguments"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying error,
// preserving it for errors.Is/As via Unwrap.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...) + ": " + err.Error(), Err: err}
}

var ErrInvalidArguments = &Error{Kind: InvalidArguments}
