package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error returned by the data layer
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindTransient
	KindStore
	KindInvalidIdentifier
	KindConnectionFatal
	KindNotFound
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("already exists")
	ErrTransient         = errors.New("store temporarily unavailable")
	ErrStore             = errors.New("store operation failed")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrConnectionFatal   = errors.New("store connection could not be established")
	ErrNotFound          = errors.New("not found")
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindStore:
		return "store"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindConnectionFatal:
		return "connection_fatal"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindTransient:
		return ErrTransient
	case KindStore:
		return ErrStore
	case KindInvalidIdentifier:
		return ErrInvalidIdentifier
	case KindConnectionFatal:
		return ErrConnectionFatal
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Error is the error type surfaced by repositories and the connection manager.
// errors.Is matches it against the sentinel of its Kind.
type Error struct {
	Kind       Kind
	Op         string
	Collection string
	Err        error
}

// NewError creates a classified error
func NewError(kind Kind, op, collection string, err error) *Error {
	return &Error{Kind: kind, Op: op, Collection: collection, Err: err}
}

func (e *Error) Error() string {
	prefix := e.Op
	if e.Collection != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Collection)
	}
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if prefix == "" {
		return msg
	}
	return prefix + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
